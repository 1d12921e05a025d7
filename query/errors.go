// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package query

import "github.com/pkg/errors"

var (
	// ErrFieldNotFound is returned when a predicate names a field the type does not have.
	ErrFieldNotFound = errors.New("field not found")

	// ErrFieldNotSerialized is returned when a predicate names a field the provider skips.
	ErrFieldNotSerialized = errors.New("field is not serialized")

	// ErrNotArray is returned when an array predicate is applied to a field that does not
	// serialize as an array.
	ErrNotArray = errors.New("field is not an array")

	// ErrTypeMismatch is returned when a predicate value cannot be compared with the field.
	ErrTypeMismatch = errors.New("value type does not match field type")

	// ErrNoDocuments is returned by First and Single when nothing matches.
	ErrNoDocuments = errors.New("no documents in result")

	// ErrMoreThanOneDocument is returned by Single when more than one document matches.
	ErrMoreThanOneDocument = errors.New("more than one document in result")
)
