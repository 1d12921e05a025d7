// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package provider is a serialization provider that makes the driver's BSON codecs follow
// encoding/json struct tags.
//
// A struct such as
//
//	type C struct {
//	    Id int   `json:"_id"`
//	    X  int   `json:"x"`
//	    A  []int `json:"a"`
//	}
//
// is encoded as {_id: 1, x: 2, a: [3, 4, 5]} once the provider is in use. Field names default
// to the Go field name unchanged, "-" skips a field, omitempty is honored and untagged
// embedded structs are inlined, all as encoding/json does. A field that carries a bson tag is
// still encoded by that tag, with the driver's rules.
//
// Struct types may opt in to member serialization by implementing MemberSerializer. In
// opt-in mode only fields carrying a json or bson tag are serialized.
//
// A provider is used either explicitly, through Provider.Registry, or process-wide, by
// calling EnsureProviderIsRegistered or Register during program initialization. Registration
// replaces bson.DefaultRegistry, so clients created afterwards without an explicit registry
// use the provider as well.
package provider
