// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package memstore

import (
	"testing"

	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

func raw(t *testing.T, v interface{}) bson.Raw {
	t.Helper()
	b, err := bson.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestMatch(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: int32(1)},
		{Key: "x", Value: int32(1)},
		{Key: "a", Value: bson.A{int32(1), int32(2), int32(3)}},
		{Key: "f", Value: 2.5},
		{Key: "s", Value: "hello"},
		{Key: "n", Value: nil},
		{Key: "d", Value: bson.D{{Key: "e", Value: int64(7)}, {Key: "tags", Value: bson.A{"red", "blue"}}}},
		{Key: "items", Value: bson.A{
			bson.D{{Key: "sku", Value: "a"}, {Key: "qty", Value: int32(5)}},
			bson.D{{Key: "sku", Value: "b"}, {Key: "qty", Value: int32(15)}},
		}},
	}

	testCases := []struct {
		name   string
		filter interface{}
		want   bool
	}{
		{"empty filter", bson.D{}, true},
		{"scalar equality", bson.D{{Key: "x", Value: int32(1)}}, true},
		{"scalar inequality", bson.D{{Key: "x", Value: int32(2)}}, false},
		{"cross-type numeric equality", bson.D{{Key: "x", Value: 1.0}}, true},
		{"array contains", bson.D{{Key: "a", Value: int32(1)}}, true},
		{"array does not contain", bson.D{{Key: "a", Value: int32(4)}}, false},
		{"whole array equality", bson.D{{Key: "a", Value: bson.A{int32(1), int32(2), int32(3)}}}, true},
		{"array order matters", bson.D{{Key: "a", Value: bson.A{int32(3), int32(2), int32(1)}}}, false},
		{"array index path", bson.D{{Key: "a.1", Value: int32(2)}}, true},
		{"embedded path", bson.D{{Key: "d.e", Value: int32(7)}}, true},
		{"embedded array path", bson.D{{Key: "d.tags", Value: "blue"}}, true},
		{"path through array of documents", bson.D{{Key: "items.sku", Value: "b"}}, true},
		{"missing field equals null", bson.D{{Key: "missing", Value: nil}}, true},
		{"explicit null", bson.D{{Key: "n", Value: nil}}, true},
		{"string mismatch", bson.D{{Key: "s", Value: "world"}}, false},
		{"implicit and", bson.D{{Key: "x", Value: int32(1)}, {Key: "s", Value: "hello"}}, true},
		{"implicit and fails", bson.D{{Key: "x", Value: int32(1)}, {Key: "s", Value: "nope"}}, false},
		{"$eq", bson.D{{Key: "x", Value: bson.D{{Key: "$eq", Value: int32(1)}}}}, true},
		{"$ne", bson.D{{Key: "x", Value: bson.D{{Key: "$ne", Value: int32(1)}}}}, false},
		{"$ne on array", bson.D{{Key: "a", Value: bson.D{{Key: "$ne", Value: int32(9)}}}}, true},
		{"$gt", bson.D{{Key: "f", Value: bson.D{{Key: "$gt", Value: int32(2)}}}}, true},
		{"$gte boundary", bson.D{{Key: "f", Value: bson.D{{Key: "$gte", Value: 2.5}}}}, true},
		{"$lt", bson.D{{Key: "f", Value: bson.D{{Key: "$lt", Value: int32(2)}}}}, false},
		{"$lte any element", bson.D{{Key: "a", Value: bson.D{{Key: "$lte", Value: int32(1)}}}}, true},
		{"range across brackets", bson.D{{Key: "s", Value: bson.D{{Key: "$gt", Value: int32(0)}}}}, false},
		{"range combined", bson.D{{Key: "a", Value: bson.D{{Key: "$gt", Value: int32(2)}, {Key: "$lt", Value: int32(4)}}}}, true},
		{"$in", bson.D{{Key: "x", Value: bson.D{{Key: "$in", Value: bson.A{int32(5), int32(1)}}}}}, true},
		{"$in array field", bson.D{{Key: "a", Value: bson.D{{Key: "$in", Value: bson.A{int32(3), int32(9)}}}}}, true},
		{"$in regex", bson.D{{Key: "s", Value: bson.D{{Key: "$in", Value: bson.A{primitive.Regex{Pattern: "^he"}}}}}}, true},
		{"$nin", bson.D{{Key: "x", Value: bson.D{{Key: "$nin", Value: bson.A{int32(5), int32(1)}}}}}, false},
		{"$all", bson.D{{Key: "a", Value: bson.D{{Key: "$all", Value: bson.A{int32(1), int32(3)}}}}}, true},
		{"$all missing element", bson.D{{Key: "a", Value: bson.D{{Key: "$all", Value: bson.A{int32(1), int32(4)}}}}}, false},
		{"$all empty", bson.D{{Key: "a", Value: bson.D{{Key: "$all", Value: bson.A{}}}}}, false},
		{"$exists true", bson.D{{Key: "s", Value: bson.D{{Key: "$exists", Value: true}}}}, true},
		{"$exists false", bson.D{{Key: "missing", Value: bson.D{{Key: "$exists", Value: false}}}}, true},
		{"$exists null field", bson.D{{Key: "n", Value: bson.D{{Key: "$exists", Value: true}}}}, true},
		{"$size", bson.D{{Key: "a", Value: bson.D{{Key: "$size", Value: int32(3)}}}}, true},
		{"$size mismatch", bson.D{{Key: "a", Value: bson.D{{Key: "$size", Value: int32(2)}}}}, false},
		{"$not", bson.D{{Key: "x", Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$gt", Value: int32(5)}}}}}}, true},
		{"$not regex", bson.D{{Key: "s", Value: bson.D{{Key: "$not", Value: primitive.Regex{Pattern: "^h"}}}}}, false},
		{"regex literal", bson.D{{Key: "s", Value: primitive.Regex{Pattern: "^HEL", Options: "i"}}}, true},
		{"$regex with $options", bson.D{{Key: "s", Value: bson.D{{Key: "$regex", Value: "LLO$"}, {Key: "$options", Value: "i"}}}}, true},
		{"$regex on array", bson.D{{Key: "d.tags", Value: bson.D{{Key: "$regex", Value: "^bl"}}}}, true},
		{"$elemMatch documents", bson.D{{Key: "items", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "sku", Value: "b"}, {Key: "qty", Value: bson.D{{Key: "$gt", Value: int32(10)}}}}}}}}, true},
		{"$elemMatch same element", bson.D{{Key: "items", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "sku", Value: "a"}, {Key: "qty", Value: bson.D{{Key: "$gt", Value: int32(10)}}}}}}}}, false},
		{"$elemMatch $and", bson.D{{Key: "items", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "sku", Value: "b"}},
			bson.D{{Key: "qty", Value: bson.D{{Key: "$gt", Value: int32(10)}}}},
		}}}}}}}, true},
		{"$elemMatch $and same element", bson.D{{Key: "items", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "sku", Value: "a"}},
			bson.D{{Key: "qty", Value: bson.D{{Key: "$gt", Value: int32(10)}}}},
		}}}}}}}, false},
		{"$elemMatch $or", bson.D{{Key: "items", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "sku", Value: "z"}},
			bson.D{{Key: "qty", Value: int32(5)}},
		}}}}}}}, true},
		{"$elemMatch $nor", bson.D{{Key: "items", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$nor", Value: bson.A{
			bson.D{{Key: "sku", Value: "a"}},
			bson.D{{Key: "sku", Value: "b"}},
		}}}}}}}, false},
		{"$elemMatch scalars", bson.D{{Key: "a", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$gt", Value: int32(2)}, {Key: "$lt", Value: int32(4)}}}}}}, true},
		{"$and", bson.D{{Key: "$and", Value: bson.A{bson.D{{Key: "x", Value: int32(1)}}, bson.D{{Key: "a", Value: int32(2)}}}}}, true},
		{"$and fails", bson.D{{Key: "$and", Value: bson.A{bson.D{{Key: "x", Value: int32(1)}}, bson.D{{Key: "a", Value: int32(9)}}}}}, false},
		{"$or", bson.D{{Key: "$or", Value: bson.A{bson.D{{Key: "x", Value: int32(9)}}, bson.D{{Key: "a", Value: int32(2)}}}}}, true},
		{"$or fails", bson.D{{Key: "$or", Value: bson.A{bson.D{{Key: "x", Value: int32(9)}}, bson.D{{Key: "a", Value: int32(9)}}}}}, false},
		{"$nor", bson.D{{Key: "$nor", Value: bson.A{bson.D{{Key: "x", Value: int32(9)}}}}}, true},
		{"$nor fails", bson.D{{Key: "$nor", Value: bson.A{bson.D{{Key: "x", Value: int32(1)}}}}}, false},
		{"embedded document equality", bson.D{{Key: "d", Value: bson.D{{Key: "e", Value: int64(7)}, {Key: "tags", Value: bson.A{"red", "blue"}}}}}, true},
		{"embedded document field order", bson.D{{Key: "d", Value: bson.D{{Key: "tags", Value: bson.A{"red", "blue"}}, {Key: "e", Value: int64(7)}}}}, false},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := Match(raw(t, doc), raw(t, tc.filter))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchErrors(t *testing.T) {
	doc := raw(t, bson.D{{Key: "x", Value: int32(1)}})

	testCases := []struct {
		name   string
		filter interface{}
		cause  error
	}{
		{"unknown top-level operator", bson.D{{Key: "$where", Value: "true"}}, store.ErrUnsupportedOperator},
		{"unknown field operator", bson.D{{Key: "x", Value: bson.D{{Key: "$near", Value: int32(1)}}}}, store.ErrUnsupportedOperator},
		{"$and not array", bson.D{{Key: "$and", Value: bson.D{}}}, store.ErrInvalidFilter},
		{"$or empty", bson.D{{Key: "$or", Value: bson.A{}}}, store.ErrInvalidFilter},
		{"$in not array", bson.D{{Key: "x", Value: bson.D{{Key: "$in", Value: int32(1)}}}}, store.ErrInvalidFilter},
		{"$size not number", bson.D{{Key: "x", Value: bson.D{{Key: "$size", Value: "one"}}}}, store.ErrInvalidFilter},
		{"$not scalar", bson.D{{Key: "x", Value: bson.D{{Key: "$not", Value: int32(1)}}}}, store.ErrInvalidFilter},
		{"bad regex", bson.D{{Key: "x", Value: bson.D{{Key: "$regex", Value: "("}}}}, store.ErrInvalidFilter},
		{"unsupported regex option", bson.D{{Key: "x", Value: primitive.Regex{Pattern: "a", Options: "x"}}}, store.ErrUnsupportedOperator},
		{"$options alone", bson.D{{Key: "x", Value: bson.D{{Key: "$options", Value: "i"}}}}, store.ErrInvalidFilter},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := Match(doc, raw(t, tc.filter))
			require.Error(t, err)
			assert.Equal(t, tc.cause, errors.Cause(err))
		})
	}
}

func TestCompareValuesOrder(t *testing.T) {
	// Values in ascending server sort order.
	ordered := bson.A{
		primitive.MinKey{},
		nil,
		int32(-1),
		int64(2),
		2.5,
		"a",
		"b",
		bson.D{{Key: "a", Value: int32(1)}},
		bson.A{int32(1)},
		primitive.Binary{Data: []byte{1}},
		primitive.ObjectID{},
		false,
		true,
		primitive.DateTime(0),
		primitive.Timestamp{T: 1},
		primitive.Regex{Pattern: "a"},
		primitive.MaxKey{},
	}
	doc := raw(t, bson.D{{Key: "v", Value: ordered}})
	vals := lookup(bsoncore.Document(doc), "v")
	require.Len(t, vals, 1)
	elems, err := vals[0].Array().Values()
	require.NoError(t, err)

	for i := 1; i < len(elems); i++ {
		assert.Equal(t, -1, compareValues(elems[i-1], elems[i]), "index %d", i)
		assert.Equal(t, 1, compareValues(elems[i], elems[i-1]), "index %d", i)
		assert.Equal(t, 0, compareValues(elems[i], elems[i]), "index %d", i)
	}
}
