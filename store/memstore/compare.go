// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package memstore

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// typeRank orders BSON types the way the server sorts values of different types.
func typeRank(t bsontype.Type) int {
	switch t {
	case bsontype.MinKey:
		return 1
	case bsontype.Undefined, bsontype.Null:
		return 2
	case bsontype.Int32, bsontype.Int64, bsontype.Double, bsontype.Decimal128:
		return 3
	case bsontype.String, bsontype.Symbol:
		return 4
	case bsontype.EmbeddedDocument:
		return 5
	case bsontype.Array:
		return 6
	case bsontype.Binary:
		return 7
	case bsontype.ObjectID:
		return 8
	case bsontype.Boolean:
		return 9
	case bsontype.DateTime:
		return 10
	case bsontype.Timestamp:
		return 11
	case bsontype.Regex:
		return 12
	case bsontype.MaxKey:
		return 14
	default:
		return 13
	}
}

// sameBracket reports whether a and b belong to the same type bracket. Range operators only
// match values within one bracket.
func sameBracket(a, b bsoncore.Value) bool {
	return typeRank(a.Type) == typeRank(b.Type)
}

func equal(a, b bsoncore.Value) bool {
	return sameBracket(a, b) && compareValues(a, b) == 0
}

// compareValues returns -1, 0 or 1 ordering a and b by type bracket first and value second.
func compareValues(a, b bsoncore.Value) int {
	ra, rb := typeRank(a.Type), typeRank(b.Type)
	if ra != rb {
		return compareInts(int64(ra), int64(rb))
	}

	switch ra {
	case 3:
		return compareNumbers(a, b)
	case 4:
		return strings.Compare(stringOf(a), stringOf(b))
	case 5:
		return compareDocuments(a.Document(), b.Document(), true)
	case 6:
		return compareDocuments(bsoncore.Document(a.Array()), bsoncore.Document(b.Array()), false)
	case 7:
		sa, da := a.Binary()
		sb, db := b.Binary()
		if c := compareInts(int64(len(da)), int64(len(db))); c != 0 {
			return c
		}
		if c := compareInts(int64(sa), int64(sb)); c != 0 {
			return c
		}
		return bytes.Compare(da, db)
	case 8:
		oa, ob := a.ObjectID(), b.ObjectID()
		return bytes.Compare(oa[:], ob[:])
	case 9:
		ba, bb := a.Boolean(), b.Boolean()
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case 10:
		return compareInts(a.DateTime(), b.DateTime())
	case 11:
		ta, ia := a.Timestamp()
		tb, ib := b.Timestamp()
		if c := compareInts(int64(ta), int64(tb)); c != 0 {
			return c
		}
		return compareInts(int64(ia), int64(ib))
	case 12:
		pa, oa := a.Regex()
		pb, ob := b.Regex()
		if c := strings.Compare(pa, pb); c != 0 {
			return c
		}
		return strings.Compare(oa, ob)
	case 13:
		return bytes.Compare(a.Data, b.Data)
	default:
		return 0
	}
}

func compareDocuments(a, b bsoncore.Document, keys bool) int {
	ea, _ := a.Elements()
	eb, _ := b.Elements()
	for i := 0; i < len(ea) && i < len(eb); i++ {
		if keys {
			if c := strings.Compare(ea[i].Key(), eb[i].Key()); c != 0 {
				return c
			}
		}
		if c := compareValues(ea[i].Value(), eb[i].Value()); c != 0 {
			return c
		}
	}
	return compareInts(int64(len(ea)), int64(len(eb)))
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareNumbers compares integers exactly and falls back to float64 when either side is a
// double or decimal. NaN sorts before every other number.
func compareNumbers(a, b bsoncore.Value) int {
	ia, aInt := integerOf(a)
	ib, bInt := integerOf(b)
	if aInt && bInt {
		return compareInts(ia, ib)
	}

	fa, fb := floatOf(a), floatOf(b)
	switch {
	case math.IsNaN(fa) && math.IsNaN(fb):
		return 0
	case math.IsNaN(fa):
		return -1
	case math.IsNaN(fb):
		return 1
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

func integerOf(v bsoncore.Value) (int64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return int64(v.Int32()), true
	case bsontype.Int64:
		return v.Int64(), true
	}
	return 0, false
}

func floatOf(v bsoncore.Value) float64 {
	switch v.Type {
	case bsontype.Int32:
		return float64(v.Int32())
	case bsontype.Int64:
		return float64(v.Int64())
	case bsontype.Double:
		return v.Double()
	case bsontype.Decimal128:
		f, err := strconv.ParseFloat(v.Decimal128().String(), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func stringOf(v bsoncore.Value) string {
	if v.Type == bsontype.Symbol {
		return v.Symbol()
	}
	return v.StringValue()
}

func isNumber(v bsoncore.Value) bool {
	return typeRank(v.Type) == 3
}
