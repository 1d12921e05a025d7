// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package provider

import "github.com/pkg/errors"

var (
	// ErrAlreadyRegistered is returned by Register when a different provider has already been
	// registered for the process.
	ErrAlreadyRegistered = errors.New("a different serialization provider is already registered")

	// ErrNotStruct is returned by Describe for types that are not structs or pointers to structs.
	ErrNotStruct = errors.New("type is not a struct")
)
