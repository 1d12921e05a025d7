// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package store defines the collection abstraction queries run against. Implementations live
// in the memstore and mongostore subpackages.
package store

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

var (
	// ErrDuplicateKey is returned when an inserted document has an _id that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnsupportedOperator is returned when a filter uses an operator the backend cannot evaluate.
	ErrUnsupportedOperator = errors.New("unsupported query operator")

	// ErrInvalidFilter is returned when a filter is malformed, e.g. $and without an array.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Database is a named group of collections.
type Database interface {
	Name() string
	// Collection returns a handle to the named collection. Collections come into existence on
	// first insert.
	Collection(name string) Collection
	DropCollection(ctx context.Context, name string) error
	// Registry is the codec registry documents are encoded and decoded with.
	Registry() *bsoncodec.Registry
}

// Collection stores documents.
type Collection interface {
	Name() string
	Drop(ctx context.Context) error
	// InsertMany inserts docs in order and stops at the first failure. It returns the number
	// of documents inserted.
	InsertMany(ctx context.Context, docs []interface{}) (int, error)
	// Find returns the documents matching filter. A nil filter matches every document.
	Find(ctx context.Context, filter interface{}, opts *FindOptions) ([]bson.Raw, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

// FindOptions modifies a Find.
type FindOptions struct {
	// Sort is a document of field paths to 1 (ascending) or -1 (descending).
	Sort  bson.D
	Skip  int64
	Limit int64
}

// CountOp increments the operation counter of a backend.
func CountOp(backend, op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`jsonbridge_store_ops_total{backend=%q,op=%q}`, backend, op)).Inc()
}

// CountError increments the error counter of a backend.
func CountError(backend, op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`jsonbridge_store_errors_total{backend=%q,op=%q}`, backend, op)).Inc()
}
