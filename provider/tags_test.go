// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package provider

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

type embedded struct {
	E int
}

func TestParseJSONTags(t *testing.T) {
	testCases := []struct {
		name string
		sf   reflect.StructField
		mode MemberSerialization
		want bsoncodec.StructTags
	}{
		{"no tag", reflect.StructField{Name: "Foo"}, OptOut, bsoncodec.StructTags{Name: "Foo"}},
		{"no tag opt-in", reflect.StructField{Name: "Foo"}, OptIn, bsoncodec.StructTags{Name: "Foo", Skip: true}},
		{"name", reflect.StructField{Name: "Foo", Tag: `json:"foo"`}, OptIn, bsoncodec.StructTags{Name: "foo"}},
		{"empty name keeps case", reflect.StructField{Name: "Foo", Tag: `json:",omitempty"`}, OptOut, bsoncodec.StructTags{Name: "Foo", OmitEmpty: true}},
		{"skip", reflect.StructField{Name: "Foo", Tag: `json:"-"`}, OptOut, bsoncodec.StructTags{Name: "Foo", Skip: true}},
		{"dash name", reflect.StructField{Name: "Foo", Tag: `json:"-,"`}, OptOut, bsoncodec.StructTags{Name: "-"}},
		{"string flag ignored", reflect.StructField{Name: "Foo", Tag: `json:"foo,string"`}, OptOut, bsoncodec.StructTags{Name: "foo"}},
		{"extensions", reflect.StructField{Name: "Foo", Tag: `json:"foo,minsize,inline"`}, OptOut, bsoncodec.StructTags{Name: "foo", MinSize: true, Inline: true}},
		{"bson tag wins", reflect.StructField{Name: "Foo", Tag: `bson:"bar" json:"foo"`}, OptOut, bsoncodec.StructTags{Name: "bar"}},
		{"bson tag opts in", reflect.StructField{Name: "Foo", Tag: `bson:"bar"`}, OptIn, bsoncodec.StructTags{Name: "bar"}},
		{"bson tag without name", reflect.StructField{Name: "FooBar", Tag: `bson:",omitempty,truncate"`}, OptOut, bsoncodec.StructTags{Name: "foobar", OmitEmpty: true, Truncate: true}},
		{"bson skip", reflect.StructField{Name: "Foo", Tag: `bson:"-" json:"foo"`}, OptOut, bsoncodec.StructTags{Name: "foo", Skip: true}},
		{
			"bson tagged anonymous struct is not inlined",
			reflect.StructField{Name: "embedded", Anonymous: true, Type: reflect.TypeOf(embedded{}), Tag: `bson:""`},
			OptOut,
			bsoncodec.StructTags{Name: "embedded"},
		},
		{
			"anonymous struct is inlined",
			reflect.StructField{Name: "embedded", Anonymous: true, Type: reflect.TypeOf(embedded{})},
			OptOut,
			bsoncodec.StructTags{Name: "embedded", Inline: true},
		},
		{
			"named anonymous struct is not inlined",
			reflect.StructField{Name: "embedded", Anonymous: true, Type: reflect.TypeOf(embedded{}), Tag: `json:"emb"`},
			OptOut,
			bsoncodec.StructTags{Name: "emb"},
		},
		{
			"anonymous pointer is not inlined",
			reflect.StructField{Name: "embedded", Anonymous: true, Type: reflect.TypeOf(&embedded{})},
			OptOut,
			bsoncodec.StructTags{Name: "embedded"},
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseJSONTags(tc.sf, tc.mode))
		})
	}
}

func TestMemberSerializationString(t *testing.T) {
	assert.Equal(t, "OptIn", OptIn.String())
	assert.Equal(t, "OptOut", OptOut.String())
}
