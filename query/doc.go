// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package query builds typed queries over store collections.
//
// Predicates name fields the way Go code does, by their struct field names:
//
//	q := query.AsQueryable[fixture.C](coll).Where(query.Field("A").Contains(1))
//	res, err := q.ToList(ctx)
//
// Translation resolves field names through the serialization provider, so the filter sent to
// the collection uses element names, here {"a": 1}. Predicates on unknown or unserialized
// fields, and values of the wrong type, are reported as errors before anything is sent.
package query
