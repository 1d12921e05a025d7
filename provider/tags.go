// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package provider

import (
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// MemberSerialization selects which struct fields are serialized.
type MemberSerialization int

const (
	// OptOut serializes every exported field unless it is tagged `json:"-"`.
	OptOut MemberSerialization = iota

	// OptIn serializes only the fields that carry a json tag.
	OptIn
)

func (m MemberSerialization) String() string {
	if m == OptIn {
		return "OptIn"
	}
	return "OptOut"
}

// MemberSerializer is implemented by struct types that choose their own MemberSerialization.
// The method is called on a zero value, so it must not depend on field values.
type MemberSerializer interface {
	MemberSerialization() MemberSerialization
}

var tMemberSerializer = reflect.TypeOf((*MemberSerializer)(nil)).Elem()

// jsonTagParser returns a StructTagParser that reads the json tag of a field with the given
// member serialization.
//
// The tag format is the one accepted by encoding/json:
//
//	`json:"[<key>][,<flag1>[,<flag2>]]"`
//
// Recognized flags are omitempty, and the driver extensions inline and minsize. The string
// flag is accepted and ignored.
//
// A bson tag takes precedence over the json tag and is read with the driver's rules, so types
// written for the driver keep their layout once a provider is registered process-wide. A
// field with a bson tag counts as opted in.
func jsonTagParser(mode MemberSerialization) bsoncodec.StructTagParserFunc {
	return func(sf reflect.StructField) (bsoncodec.StructTags, error) {
		return parseJSONTags(sf, mode), nil
	}
}

func parseJSONTags(sf reflect.StructField, mode MemberSerialization) bsoncodec.StructTags {
	if tag, ok := sf.Tag.Lookup("bson"); ok {
		return parseBSONTag(sf, tag)
	}

	tag, ok := sf.Tag.Lookup("json")
	if !ok && mode == OptIn {
		return bsoncodec.StructTags{Name: sf.Name, Skip: true}
	}
	if tag == "-" {
		return bsoncodec.StructTags{Name: sf.Name, Skip: true}
	}

	st := bsoncodec.StructTags{Name: sf.Name}
	name, flags := tag, ""
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		name, flags = tag[:idx], tag[idx+1:]
	}
	if name != "" {
		st.Name = name
	}

	for _, flag := range strings.Split(flags, ",") {
		switch flag {
		case "omitempty":
			st.OmitEmpty = true
		case "inline":
			st.Inline = true
		case "minsize":
			st.MinSize = true
		}
	}

	// encoding/json promotes the fields of untagged embedded structs.
	if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
		st.Inline = true
	}

	return st
}

// parseBSONTag follows the driver's default struct tag parser: the element name defaults to
// the lowercased field name and embedded structs are only inlined when asked to.
func parseBSONTag(sf reflect.StructField, tag string) bsoncodec.StructTags {
	st := bsoncodec.StructTags{Name: strings.ToLower(sf.Name)}
	if tag == "-" {
		st.Skip = true
		return st
	}

	for idx, str := range strings.Split(tag, ",") {
		if idx == 0 && str != "" {
			st.Name = str
		}
		switch str {
		case "inline":
			st.Inline = true
		case "minsize":
			st.MinSize = true
		case "omitempty":
			st.OmitEmpty = true
		case "truncate":
			st.Truncate = true
		}
	}

	return st
}
