// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package memstore is an in-memory implementation of the store interfaces. Documents are kept
// as BSON, ordered by _id, and filters are evaluated with the query semantics of the server
// for the supported operators.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ikmak/mongo-jsonbridge/internal/logger"
	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/pkg/errors"
	"github.com/tidwall/btree"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

const backend = "memory"

// Database is an in-memory store.Database.
type Database struct {
	name     string
	registry *bsoncodec.Registry
	log      *logger.Logger

	mu          sync.Mutex
	collections map[string]*Collection
}

var _ store.Database = (*Database)(nil)

// NewDatabase creates an empty database. Documents are encoded and decoded with registry; a
// nil registry means bson.DefaultRegistry at the time of the call.
func NewDatabase(name string, registry *bsoncodec.Registry) *Database {
	if registry == nil {
		registry = bson.DefaultRegistry
	}
	return &Database{
		name:        name,
		registry:    registry,
		log:         logger.Default(),
		collections: make(map[string]*Collection),
	}
}

// Name implements store.Database.
func (db *Database) Name() string { return db.name }

// Registry implements store.Database.
func (db *Database) Registry() *bsoncodec.Registry { return db.registry }

// Collection implements store.Database.
func (db *Database) Collection(name string) store.Collection {
	db.mu.Lock()
	defer db.mu.Unlock()

	coll, ok := db.collections[name]
	if !ok {
		coll = &Collection{
			db:   db,
			name: name,
			docs: btree.NewNonConcurrent(byID),
		}
		db.collections[name] = coll
	}
	return coll
}

// CollectionNames returns the names of the collections holding at least one document.
func (db *Database) CollectionNames() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	var names []string
	for name, coll := range db.collections {
		if coll.len() > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DropCollection implements store.Database.
func (db *Database) DropCollection(ctx context.Context, name string) error {
	return db.Collection(name).Drop(ctx)
}

type entry struct {
	id  bsoncore.Value
	doc bson.Raw
}

func byID(a, b interface{}) bool {
	return compareValues(a.(*entry).id, b.(*entry).id) < 0
}

// Collection is an in-memory store.Collection. It is safe for concurrent use.
type Collection struct {
	db   *Database
	name string

	mu   sync.RWMutex
	docs *btree.BTree
}

var _ store.Collection = (*Collection)(nil)

// Name implements store.Collection.
func (c *Collection) Name() string { return c.name }

func (c *Collection) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docs.Len()
}

// Drop implements store.Collection.
func (c *Collection) Drop(ctx context.Context) error {
	store.CountOp(backend, "drop")

	c.mu.Lock()
	n := c.docs.Len()
	c.docs = btree.NewNonConcurrent(byID)
	c.mu.Unlock()

	c.db.log.Print(logger.LevelInfo, logger.ComponentStore, "collection dropped",
		"backend", backend, "collection", c.name, "documents", n)
	return nil
}

// InsertMany implements store.Collection. A document without an _id gets a new ObjectID.
func (c *Collection) InsertMany(ctx context.Context, docs []interface{}) (int, error) {
	store.CountOp(backend, "insert")

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		ent, err := c.newEntry(doc)
		if err != nil {
			store.CountError(backend, "insert")
			return i, err
		}
		if c.docs.Get(ent) != nil {
			store.CountError(backend, "insert")
			return i, errors.Wrapf(store.ErrDuplicateKey, "collection %s: document %d", c.name, i)
		}
		c.docs.Set(ent)
	}

	c.db.log.Print(logger.LevelInfo, logger.ComponentStore, "documents inserted",
		"backend", backend, "collection", c.name, "count", len(docs))
	return len(docs), nil
}

func (c *Collection) newEntry(doc interface{}) (*entry, error) {
	b, err := bson.MarshalWithRegistry(c.db.registry, doc)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode %T", doc)
	}

	id, err := bsoncore.Document(b).LookupErr("_id")
	if err != nil {
		oid := primitive.NewObjectID()
		elems, err := bson.Raw(b).Elements()
		if err != nil {
			return nil, err
		}
		raw := make([][]byte, 0, len(elems)+1)
		raw = append(raw, bsoncore.AppendObjectIDElement(nil, "_id", oid))
		for _, elem := range elems {
			raw = append(raw, elem)
		}
		b = bsoncore.BuildDocumentFromElements(nil, raw...)
		id = bsoncore.Value{Type: bsontype.ObjectID, Data: oid[:]}
	}

	return &entry{id: id, doc: b}, nil
}

// Find implements store.Collection.
func (c *Collection) Find(ctx context.Context, filter interface{}, opts *store.FindOptions) ([]bson.Raw, error) {
	store.CountOp(backend, "find")

	f, err := c.marshalFilter(filter)
	if err != nil {
		store.CountError(backend, "find")
		return nil, err
	}

	c.mu.RLock()
	var (
		out      []bson.Raw
		matchErr error
	)
	c.docs.Ascend(nil, func(item interface{}) bool {
		ent := item.(*entry)
		ok, err := Match(ent.doc, f)
		if err != nil {
			matchErr = err
			return false
		}
		if ok {
			out = append(out, ent.doc)
		}
		return true
	})
	c.mu.RUnlock()

	if matchErr != nil {
		store.CountError(backend, "find")
		return nil, matchErr
	}

	if opts != nil {
		if len(opts.Sort) > 0 {
			if err := sortDocuments(out, opts.Sort); err != nil {
				return nil, err
			}
		}
		out = window(out, opts.Skip, opts.Limit)
	}

	c.db.log.Print(logger.LevelDebug, logger.ComponentStore, "find",
		"backend", backend, "collection", c.name, "filter", f.String(), "matched", len(out))
	return out, nil
}

// CountDocuments implements store.Collection.
func (c *Collection) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	docs, err := c.Find(ctx, filter, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (c *Collection) marshalFilter(filter interface{}) (bson.Raw, error) {
	if filter == nil {
		return bson.Raw(bsoncore.BuildDocument(nil)), nil
	}
	b, err := bson.MarshalWithRegistry(c.db.registry, filter)
	if err != nil {
		return nil, errors.Wrap(store.ErrInvalidFilter, err.Error())
	}
	return b, nil
}

func window(docs []bson.Raw, skip, limit int64) []bson.Raw {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

// sortDocuments orders docs by the sort specification. A missing field sorts as null; for an
// array the smallest element is the ascending key and the largest the descending key.
func sortDocuments(docs []bson.Raw, order bson.D) error {
	directions := make([]int, len(order))
	for i, e := range order {
		switch v := e.Value.(type) {
		case int:
			directions[i] = v
		case int32:
			directions[i] = int(v)
		case int64:
			directions[i] = int(v)
		case float64:
			directions[i] = int(v)
		}
		if directions[i] != 1 && directions[i] != -1 {
			return errors.Wrapf(store.ErrInvalidFilter, "sort direction for %s must be 1 or -1", e.Key)
		}
	}

	keys := make([][]bsoncore.Value, len(docs))
	for i, doc := range docs {
		keys[i] = make([]bsoncore.Value, len(order))
		for j, e := range order {
			keys[i][j] = sortKey(lookup(bsoncore.Document(doc), e.Key), directions[j])
		}
	}

	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for j := range order {
			c := compareValues(keys[idx[a]][j], keys[idx[b]][j]) * directions[j]
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	sorted := make([]bson.Raw, len(docs))
	for i, k := range idx {
		sorted[i] = docs[k]
	}
	copy(docs, sorted)
	return nil
}

var null = bsoncore.Value{Type: bsontype.Null}

func sortKey(vals []bsoncore.Value, direction int) bsoncore.Value {
	var (
		key   bsoncore.Value
		found bool
	)
	for _, v := range vals {
		cands := []bsoncore.Value{v}
		if v.Type == bsontype.Array {
			cands, _ = v.Array().Values()
		}
		for _, c := range cands {
			if !found || compareValues(c, key)*direction < 0 {
				key, found = c, true
			}
		}
	}
	if !found {
		return null
	}
	return key
}
