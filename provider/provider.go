// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package provider

import (
	"reflect"
	"sync"

	"github.com/ikmak/mongo-jsonbridge/internal/logger"
	"github.com/ikmak/mongo-jsonbridge/render"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// Provider builds and owns a codec registry that serializes structs by their json tags.
// A Provider is safe for concurrent use once constructed.
type Provider struct {
	mode      MemberSerialization
	overrides map[reflect.Type]MemberSerialization
	registry  *bsoncodec.Registry
	log       *logger.Logger

	descriptions sync.Map // reflect.Type -> *TypeDescription
}

// Option configures a Provider.
type Option func(*Provider)

// WithMemberSerialization sets the member serialization used for struct types that neither
// implement MemberSerializer nor are listed with WithOptIn or WithOptOut. The default is OptOut.
func WithMemberSerialization(m MemberSerialization) Option {
	return func(p *Provider) { p.mode = m }
}

// WithOptIn forces OptIn member serialization for the types of the given values.
func WithOptIn(values ...interface{}) Option {
	return func(p *Provider) { p.override(OptIn, values) }
}

// WithOptOut forces OptOut member serialization for the types of the given values.
func WithOptOut(values ...interface{}) Option {
	return func(p *Provider) { p.override(OptOut, values) }
}

// WithLogger sets the logger used by the provider. The default is logger.Default().
func WithLogger(l *logger.Logger) Option {
	return func(p *Provider) { p.log = l }
}

func (p *Provider) override(m MemberSerialization, values []interface{}) {
	for _, v := range values {
		t := reflect.TypeOf(v)
		for t != nil && t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t != nil {
			p.overrides[t] = m
		}
	}
}

// New creates a Provider.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		overrides: make(map[reflect.Type]MemberSerialization),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Default()
	}

	sc, err := newStructCodec(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build struct codec")
	}

	reg := bson.NewRegistry()
	reg.RegisterKindEncoder(reflect.Struct, sc)
	reg.RegisterKindDecoder(reflect.Struct, sc)
	p.registry = reg

	p.log.Print(logger.LevelDebug, logger.ComponentProvider, "serialization provider created",
		"memberSerialization", p.mode.String(), "overrides", len(p.overrides))

	return p, nil
}

// Registry returns the codec registry of the provider. It can be passed to
// options.Client().SetRegistry or options.Collection().SetRegistry.
func (p *Provider) Registry() *bsoncodec.Registry {
	return p.registry
}

// MemberSerializationOf reports the member serialization used for struct type t.
func (p *Provider) MemberSerializationOf(t reflect.Type) MemberSerialization {
	if m, ok := p.overrides[t]; ok {
		return m
	}
	if reflect.PtrTo(t).Implements(tMemberSerializer) {
		return reflect.New(t).Interface().(MemberSerializer).MemberSerialization()
	}
	return p.mode
}

// Marshal encodes v, which must encode to a document, into BSON.
func (p *Provider) Marshal(v interface{}) (bson.Raw, error) {
	b, err := bson.MarshalWithRegistry(p.registry, v)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot marshal %T", v)
	}
	return b, nil
}

// MarshalValue encodes any value into a single BSON value.
func (p *Provider) MarshalValue(v interface{}) (bson.RawValue, error) {
	t, b, err := bson.MarshalValueWithRegistry(p.registry, v)
	if err != nil {
		return bson.RawValue{}, errors.Wrapf(err, "cannot marshal %T", v)
	}
	return bson.RawValue{Type: t, Value: b}, nil
}

// Unmarshal decodes the BSON document data into v.
func (p *Provider) Unmarshal(data []byte, v interface{}) error {
	if err := bson.UnmarshalWithRegistry(p.registry, data, v); err != nil {
		return errors.Wrapf(err, "cannot unmarshal into %T", v)
	}
	return nil
}

// ToJSON encodes v with the provider and renders the result as text. The shell mode of the
// render package is used unless another mode is given.
func (p *Provider) ToJSON(v interface{}, opts ...render.Option) (string, error) {
	val, err := p.MarshalValue(v)
	if err != nil {
		return "", err
	}
	return render.Value(val, opts...)
}
