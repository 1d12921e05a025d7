// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package render turns BSON documents and values into text.
//
// The default Shell mode produces the mongo shell flavored JSON used in test expectations and
// log output, e.g.
//
//	{ "_id" : 1, "x" : 2, "a" : [3, 4, 5] }
//
// Relaxed and Canonical produce MongoDB Extended JSON v2 through the driver.
package render

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Mode selects the output flavor.
type Mode int

const (
	// Shell renders mongo shell syntax: int64 as NumberLong(n), ObjectId("..."), ISODate("..."), etc.
	Shell Mode = iota
	// Relaxed renders relaxed Extended JSON.
	Relaxed
	// Canonical renders canonical Extended JSON.
	Canonical
)

func (m Mode) String() string {
	switch m {
	case Relaxed:
		return "relaxed"
	case Canonical:
		return "canonical"
	default:
		return "shell"
	}
}

// ParseMode returns the Mode named s. Unknown names are an error.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "shell":
		return Shell, nil
	case "relaxed":
		return Relaxed, nil
	case "canonical":
		return Canonical, nil
	}
	return Shell, errors.Errorf("unknown render mode %q", s)
}

type options struct {
	mode   Mode
	indent string
}

// Option configures rendering.
type Option func(*options)

// WithMode sets the output mode.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithIndent puts every document element on its own line, indented by s per nesting level.
// In Shell mode arrays stay on a single line.
func WithIndent(s string) Option {
	return func(o *options) { o.indent = s }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Document renders a BSON document.
func Document(doc bson.Raw, opts ...Option) (string, error) {
	return Value(bson.RawValue{Type: bsontype.EmbeddedDocument, Value: doc}, opts...)
}

// Value renders a single BSON value.
func Value(val bson.RawValue, opts ...Option) (string, error) {
	o := newOptions(opts)

	core := bsoncore.Value{Type: val.Type, Data: val.Value}
	err := core.Validate()
	if err == nil && (val.Type == bsontype.EmbeddedDocument || val.Type == bsontype.Array) {
		// Arrays share the document layout, so one deep validation covers both.
		err = bsoncore.Document(val.Value).Validate()
	}
	if err != nil {
		return "", errors.Wrapf(err, "invalid %s value", val.Type)
	}

	if o.mode == Shell {
		w := &shellWriter{indent: o.indent}
		w.writeValue(core, 0, o.indent != "")
		return w.String(), nil
	}

	return extJSON(val, o)
}

// extJSON renders through the driver's Extended JSON marshaler. Non-document values are
// wrapped in a document and extracted again, since the marshaler only accepts documents.
func extJSON(val bson.RawValue, o *options) (string, error) {
	canonical := o.mode == Canonical

	var (
		b   []byte
		err error
	)
	if val.Type == bsontype.EmbeddedDocument {
		b, err = bson.MarshalExtJSON(bson.Raw(val.Value), canonical, false)
	} else {
		b, err = bson.MarshalExtJSON(bson.D{{Key: "v", Value: val}}, canonical, false)
		if err == nil {
			b = []byte(gjson.GetBytes(b, "v").Raw)
		}
	}
	if err != nil {
		return "", errors.Wrapf(err, "cannot render %s extended JSON", o.mode)
	}

	if o.indent != "" {
		b = pretty.PrettyOptions(b, &pretty.Options{Width: 80, Indent: o.indent})
		return strings.TrimRight(string(b), "\n"), nil
	}
	return string(b), nil
}
