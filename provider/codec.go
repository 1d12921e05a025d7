// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package provider

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonoptions"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
)

// structCodec is the struct kind codec installed by the provider. It delegates to one of two
// driver StructCodecs depending on the member serialization of the value's type.
type structCodec struct {
	p      *Provider
	optIn  *bsoncodec.StructCodec
	optOut *bsoncodec.StructCodec
}

var (
	_ bsoncodec.ValueEncoder = (*structCodec)(nil)
	_ bsoncodec.ValueDecoder = (*structCodec)(nil)
)

func newStructCodec(p *Provider) (*structCodec, error) {
	// Anonymous unexported structs are promoted by encoding/json, so they are allowed here too.
	opts := bsonoptions.StructCodec().SetAllowUnexportedFields(true)

	optIn, err := bsoncodec.NewStructCodec(jsonTagParser(OptIn), opts)
	if err != nil {
		return nil, err
	}
	optOut, err := bsoncodec.NewStructCodec(jsonTagParser(OptOut), opts)
	if err != nil {
		return nil, err
	}

	return &structCodec{p: p, optIn: optIn, optOut: optOut}, nil
}

func (sc *structCodec) codecFor(t reflect.Type) *bsoncodec.StructCodec {
	if sc.p.MemberSerializationOf(t) == OptIn {
		return sc.optIn
	}
	return sc.optOut
}

// EncodeValue implements bsoncodec.ValueEncoder.
func (sc *structCodec) EncodeValue(ec bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Kind() != reflect.Struct {
		return bsoncodec.ValueEncoderError{Name: "provider.structCodec", Kinds: []reflect.Kind{reflect.Struct}, Received: val}
	}
	return sc.codecFor(val.Type()).EncodeValue(ec, vw, val)
}

// DecodeValue implements bsoncodec.ValueDecoder.
func (sc *structCodec) DecodeValue(dc bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.IsValid() || val.Kind() != reflect.Struct {
		return bsoncodec.ValueDecoderError{Name: "provider.structCodec", Kinds: []reflect.Kind{reflect.Struct}, Received: val}
	}
	return sc.codecFor(val.Type()).DecodeValue(dc, vr, val)
}
