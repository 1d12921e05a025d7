// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

func ids(t *testing.T, docs []bson.Raw) []int32 {
	t.Helper()
	out := make([]int32, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Lookup("_id").Int32())
	}
	return out
}

func seeded(t *testing.T) store.Collection {
	t.Helper()

	coll := NewDatabase("test", nil).Collection("c")
	n, err := coll.InsertMany(context.Background(), []interface{}{
		bson.D{{Key: "_id", Value: int32(3)}, {Key: "x", Value: int32(2)}, {Key: "a", Value: bson.A{int32(7), int32(8)}}},
		bson.D{{Key: "_id", Value: int32(1)}, {Key: "x", Value: int32(1)}, {Key: "a", Value: bson.A{int32(1), int32(2), int32(3)}}},
		bson.D{{Key: "_id", Value: int32(2)}, {Key: "x", Value: int32(2)}, {Key: "a", Value: bson.A{int32(4), int32(5), int32(6)}}},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return coll
}

func TestCollectionFind(t *testing.T) {
	ctx := context.Background()
	coll := seeded(t)

	all, err := coll.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ids(t, all), "documents are returned in _id order")

	docs, err := coll.Find(ctx, bson.D{{Key: "a", Value: int32(1)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, ids(t, docs))

	docs, err = coll.Find(ctx, bson.D{{Key: "x", Value: int32(2)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 3}, ids(t, docs))

	n, err := coll.CountDocuments(ctx, bson.D{{Key: "x", Value: int32(2)}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCollectionFindOptions(t *testing.T) {
	ctx := context.Background()
	coll := seeded(t)

	testCases := []struct {
		name string
		opts *store.FindOptions
		want []int32
	}{
		{"sort descending", &store.FindOptions{Sort: bson.D{{Key: "_id", Value: -1}}}, []int32{3, 2, 1}},
		{"compound sort", &store.FindOptions{Sort: bson.D{{Key: "x", Value: -1}, {Key: "_id", Value: 1}}}, []int32{2, 3, 1}},
		{"array sort key ascending", &store.FindOptions{Sort: bson.D{{Key: "a", Value: 1}}}, []int32{1, 2, 3}},
		{"array sort key descending", &store.FindOptions{Sort: bson.D{{Key: "a", Value: -1}}}, []int32{3, 2, 1}},
		{"skip", &store.FindOptions{Skip: 1}, []int32{2, 3}},
		{"limit", &store.FindOptions{Limit: 2}, []int32{1, 2}},
		{"skip and limit", &store.FindOptions{Skip: 1, Limit: 1}, []int32{2}},
		{"skip past end", &store.FindOptions{Skip: 5}, []int32{}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			docs, err := coll.Find(ctx, nil, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(t, docs))
		})
	}

	_, err := coll.Find(ctx, nil, &store.FindOptions{Sort: bson.D{{Key: "x", Value: 2}}})
	assert.Equal(t, store.ErrInvalidFilter, errors.Cause(err))
}

func TestCollectionInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	coll := seeded(t)

	n, err := coll.InsertMany(ctx, []interface{}{
		bson.D{{Key: "_id", Value: int32(4)}},
		bson.D{{Key: "_id", Value: int64(1)}},
		bson.D{{Key: "_id", Value: int32(5)}},
	})
	assert.Equal(t, 1, n, "ordered insert stops at the first failure")
	assert.Equal(t, store.ErrDuplicateKey, errors.Cause(err))

	count, err := coll.CountDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestCollectionInsertGeneratesID(t *testing.T) {
	ctx := context.Background()
	coll := NewDatabase("test", nil).Collection("c")

	_, err := coll.InsertMany(ctx, []interface{}{bson.D{{Key: "x", Value: int32(1)}}})
	require.NoError(t, err)

	docs, err := coll.Find(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	elems, err := docs[0].Elements()
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.Equal(t, "_id", elems[0].Key(), "generated _id is the first element")
	assert.Equal(t, bsontype.ObjectID, elems[0].Value().Type)
	assert.Equal(t, int32(1), docs[0].Lookup("x").Int32())
}

func TestCollectionDrop(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase("test", nil)
	coll := db.Collection("c")
	_, err := coll.InsertMany(ctx, []interface{}{bson.D{{Key: "_id", Value: int32(1)}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, db.CollectionNames())
	assert.Same(t, coll, db.Collection("c"))

	require.NoError(t, db.DropCollection(ctx, "c"))
	assert.Empty(t, db.CollectionNames())

	n, err := coll.CountDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollectionCanceledInsert(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewDatabase("test", nil).Collection("c").InsertMany(ctx, []interface{}{bson.D{{Key: "_id", Value: int32(1)}}})
	assert.Zero(t, n)
	assert.Equal(t, context.Canceled, err)
}

func TestCollectionConcurrentUse(t *testing.T) {
	ctx := context.Background()
	coll := NewDatabase("test", nil).Collection("c")

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := coll.InsertMany(ctx, []interface{}{bson.D{{Key: "_id", Value: fmt.Sprintf("%d-%d", w, i)}, {Key: "w", Value: int32(w)}}})
				assert.NoError(t, err)
				_, err = coll.Find(ctx, bson.D{{Key: "w", Value: int32(w)}}, nil)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	n, err := coll.CountDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
}
