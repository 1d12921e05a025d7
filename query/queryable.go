// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package query

import (
	"context"
	"reflect"

	"github.com/ikmak/mongo-jsonbridge/internal/logger"
	"github.com/ikmak/mongo-jsonbridge/provider"
	"github.com/ikmak/mongo-jsonbridge/render"
	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

type options struct {
	prov *provider.Provider
	log  *logger.Logger
}

// Option configures a Queryable.
type Option func(*options)

// WithProvider sets the provider used to translate predicates and decode results. The default
// is the registered provider.
func WithProvider(p *provider.Provider) Option {
	return func(o *options) { o.prov = p }
}

// WithLogger sets the logger. The default is logger.Default().
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

type sortKey struct {
	path      string
	direction int
}

// Queryable is a query over the documents of a collection, decoded as T. Its methods return
// modified copies, so a Queryable can be shared and extended freely.
type Queryable[T any] struct {
	coll  store.Collection
	prov  *provider.Provider
	log   *logger.Logger
	where []Predicate
	order []sortKey
	skip  int64
	limit int64
}

// AsQueryable starts a query over coll.
func AsQueryable[T any](coll store.Collection, opts ...Option) Queryable[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.prov == nil {
		o.prov = provider.Default()
	}
	if o.log == nil {
		o.log = logger.Default()
	}
	return Queryable[T]{coll: coll, prov: o.prov, log: o.log}
}

// Where restricts the query to documents satisfying p. Successive calls are combined with And.
func (q Queryable[T]) Where(p Predicate) Queryable[T] {
	q.where = append(q.where[:len(q.where):len(q.where)], p)
	return q
}

// OrderBy sorts by the field at the Go path in ascending order. Further OrderBy and
// OrderByDescending calls add secondary sort keys.
func (q Queryable[T]) OrderBy(path string) Queryable[T] {
	q.order = append(q.order[:len(q.order):len(q.order)], sortKey{path: path, direction: 1})
	return q
}

// OrderByDescending sorts by the field at the Go path in descending order.
func (q Queryable[T]) OrderByDescending(path string) Queryable[T] {
	q.order = append(q.order[:len(q.order):len(q.order)], sortKey{path: path, direction: -1})
	return q
}

// Skip sets the number of matching documents to skip.
func (q Queryable[T]) Skip(n int64) Queryable[T] {
	q.skip = n
	return q
}

// Take limits the number of documents returned. Zero means no limit.
func (q Queryable[T]) Take(n int64) Queryable[T] {
	q.limit = n
	return q
}

func (q Queryable[T]) elemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Filter returns the filter document the query sends to the collection.
func (q Queryable[T]) Filter() (bson.D, error) {
	return Translate(q.elemType(), And(q.where...), q.prov)
}

func (q Queryable[T]) findOptions() (*store.FindOptions, error) {
	opts := &store.FindOptions{Skip: q.skip, Limit: q.limit}
	if len(q.order) == 0 {
		return opts, nil
	}

	tr := &translator{prov: q.prov}
	t := indirect(q.elemType())
	for _, key := range q.order {
		name, _, err := tr.resolve(t, key.path)
		if err != nil {
			return nil, errors.Wrap(err, "invalid sort key")
		}
		opts.Sort = append(opts.Sort, bson.E{Key: name, Value: key.direction})
	}
	return opts, nil
}

func (q Queryable[T]) find(ctx context.Context) ([]bson.Raw, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}
	opts, err := q.findOptions()
	if err != nil {
		return nil, err
	}

	if q.log.Is(logger.LevelDebug, logger.ComponentQuery) {
		q.log.Print(logger.LevelDebug, logger.ComponentQuery, "running query",
			"collection", q.coll.Name(), "filter", q.describe(filter),
			"skip", opts.Skip, "limit", opts.Limit)
	}

	return q.coll.Find(ctx, filter, opts)
}

func (q Queryable[T]) describe(filter bson.D) string {
	b, err := q.prov.Marshal(filter)
	if err != nil {
		return err.Error()
	}
	s, err := render.Document(b)
	if err != nil {
		return err.Error()
	}
	return s
}

// ToList runs the query and decodes every result.
func (q Queryable[T]) ToList(ctx context.Context) ([]T, error) {
	docs, err := q.find(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := q.prov.Unmarshal(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// First returns the first result. It returns ErrNoDocuments if there is none.
func (q Queryable[T]) First(ctx context.Context) (T, error) {
	var zero T

	res, err := q.Take(1).ToList(ctx)
	if err != nil {
		return zero, err
	}
	if len(res) == 0 {
		return zero, ErrNoDocuments
	}
	return res[0], nil
}

// Single returns the only result. It returns ErrNoDocuments if there is none and
// ErrMoreThanOneDocument if there are several.
func (q Queryable[T]) Single(ctx context.Context) (T, error) {
	var zero T

	limit := int64(2)
	if q.limit > 0 && q.limit < limit {
		limit = q.limit
	}
	res, err := q.Take(limit).ToList(ctx)
	if err != nil {
		return zero, err
	}
	switch len(res) {
	case 0:
		return zero, ErrNoDocuments
	case 1:
		return res[0], nil
	}
	return zero, ErrMoreThanOneDocument
}

// Count returns the number of results, taking Skip and Take into account.
func (q Queryable[T]) Count(ctx context.Context) (int64, error) {
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}
	n, err := q.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}

	n -= q.skip
	if n < 0 {
		n = 0
	}
	if q.limit > 0 && n > q.limit {
		n = q.limit
	}
	return n, nil
}

// Any reports whether the query has at least one result.
func (q Queryable[T]) Any(ctx context.Context) (bool, error) {
	docs, err := q.Take(1).find(ctx)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}
