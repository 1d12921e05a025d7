// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package fixture holds the records the query and provider tests run against.
package fixture

import (
	"context"

	"github.com/ikmak/mongo-jsonbridge/provider"
	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/pkg/errors"
)

// CollectionName is the collection InitializeCollection seeds by default.
const CollectionName = "linq"

// C is a record with a scalar and an array element. Only tagged fields are stored.
type C struct {
	ID int   `json:"_id"`
	X  int   `json:"x"`
	A  []int `json:"a"`

	Comment string
}

// MemberSerialization implements provider.MemberSerializer.
func (C) MemberSerialization() provider.MemberSerialization { return provider.OptIn }

// Documents returns the seed records.
func Documents() []C {
	return []C{
		{ID: 1, X: 1, A: []int{1, 2, 3}},
		{ID: 2, X: 2, A: []int{4, 5, 6}},
	}
}

// InitializeCollection drops the named collection and inserts the seed records into it.
func InitializeCollection(ctx context.Context, db store.Database, name string) (store.Collection, error) {
	if err := db.DropCollection(ctx, name); err != nil {
		return nil, errors.Wrapf(err, "cannot drop %s.%s", db.Name(), name)
	}

	docs := Documents()
	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}

	coll := db.Collection(name)
	if _, err := coll.InsertMany(ctx, batch); err != nil {
		return nil, errors.Wrapf(err, "cannot seed %s.%s", db.Name(), name)
	}
	return coll, nil
}
