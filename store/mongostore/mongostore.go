// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongostore implements the store interfaces on top of a MongoDB deployment.
package mongostore

import (
	"context"

	"github.com/ikmak/mongo-jsonbridge/internal/logger"
	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const backend = "mongo"

// Client is a connected MongoDB client whose collections encode documents with a fixed registry.
type Client struct {
	client   *mongo.Client
	registry *bsoncodec.Registry
	log      *logger.Logger
}

// Connect creates a client for uri. A nil registry leaves the driver default, which is
// bson.DefaultRegistry at connection time.
func Connect(ctx context.Context, uri string, registry *bsoncodec.Registry) (*Client, error) {
	opts := options.Client().ApplyURI(uri)
	if registry != nil {
		opts.SetRegistry(registry)
	} else {
		registry = bson.DefaultRegistry
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to MongoDB")
	}

	c := &Client{client: client, registry: registry, log: logger.Default()}
	c.log.Print(logger.LevelInfo, logger.ComponentStore, "client created", "backend", backend)
	return c, nil
}

// Ping verifies that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return errors.Wrap(c.client.Ping(ctx, readpref.Primary()), "ping failed")
}

// Disconnect closes the client's connections.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Database returns a handle to the named database.
func (c *Client) Database(name string) *Database {
	return &Database{db: c.client.Database(name), client: c}
}

// Database is a store.Database backed by a mongo.Database.
type Database struct {
	db     *mongo.Database
	client *Client
}

var _ store.Database = (*Database)(nil)

// Name implements store.Database.
func (db *Database) Name() string { return db.db.Name() }

// Registry implements store.Database.
func (db *Database) Registry() *bsoncodec.Registry { return db.client.registry }

// Collection implements store.Database.
func (db *Database) Collection(name string) store.Collection {
	return &Collection{
		coll: db.db.Collection(name, options.Collection().SetRegistry(db.client.registry)),
		log:  db.client.log,
	}
}

// DropCollection implements store.Database.
func (db *Database) DropCollection(ctx context.Context, name string) error {
	return db.Collection(name).Drop(ctx)
}

// Drop drops the whole database.
func (db *Database) Drop(ctx context.Context) error {
	store.CountOp(backend, "dropDatabase")
	return errors.Wrapf(db.db.Drop(ctx), "cannot drop database %s", db.db.Name())
}

// Collection is a store.Collection backed by a mongo.Collection.
type Collection struct {
	coll *mongo.Collection
	log  *logger.Logger
}

var _ store.Collection = (*Collection)(nil)

// Name implements store.Collection.
func (c *Collection) Name() string { return c.coll.Name() }

// Drop implements store.Collection.
func (c *Collection) Drop(ctx context.Context) error {
	store.CountOp(backend, "drop")
	if err := c.coll.Drop(ctx); err != nil {
		store.CountError(backend, "drop")
		return errors.Wrapf(err, "cannot drop collection %s", c.coll.Name())
	}

	c.log.Print(logger.LevelInfo, logger.ComponentStore, "collection dropped",
		"backend", backend, "collection", c.coll.Name())
	return nil
}

// InsertMany implements store.Collection. Duplicate _id values are reported as
// store.ErrDuplicateKey.
func (c *Collection) InsertMany(ctx context.Context, docs []interface{}) (int, error) {
	store.CountOp(backend, "insert")

	res, err := c.coll.InsertMany(ctx, docs)
	if err != nil {
		store.CountError(backend, "insert")

		inserted := 0
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			inserted = bwe.WriteErrors[0].Index
		}
		if mongo.IsDuplicateKeyError(err) {
			return inserted, errors.Wrapf(store.ErrDuplicateKey, "collection %s: %v", c.coll.Name(), err)
		}
		return inserted, errors.Wrapf(err, "cannot insert into %s", c.coll.Name())
	}

	c.log.Print(logger.LevelInfo, logger.ComponentStore, "documents inserted",
		"backend", backend, "collection", c.coll.Name(), "count", len(res.InsertedIDs))
	return len(res.InsertedIDs), nil
}

// Find implements store.Collection.
func (c *Collection) Find(ctx context.Context, filter interface{}, opts *store.FindOptions) ([]bson.Raw, error) {
	store.CountOp(backend, "find")
	if filter == nil {
		filter = bson.D{}
	}

	findOpts := options.Find()
	if opts != nil {
		if len(opts.Sort) > 0 {
			findOpts.SetSort(opts.Sort)
		}
		if opts.Skip > 0 {
			findOpts.SetSkip(opts.Skip)
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(opts.Limit)
		}
	}

	cur, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		store.CountError(backend, "find")
		return nil, errors.Wrapf(err, "find on %s failed", c.coll.Name())
	}

	var docs []bson.Raw
	if err := cur.All(ctx, &docs); err != nil {
		store.CountError(backend, "find")
		return nil, errors.Wrapf(err, "cannot read cursor on %s", c.coll.Name())
	}

	c.log.Print(logger.LevelDebug, logger.ComponentStore, "find",
		"backend", backend, "collection", c.coll.Name(), "matched", len(docs))
	return docs, nil
}

// CountDocuments implements store.Collection.
func (c *Collection) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	store.CountOp(backend, "count")
	if filter == nil {
		filter = bson.D{}
	}

	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		store.CountError(backend, "count")
		return 0, errors.Wrapf(err, "count on %s failed", c.coll.Name())
	}
	return n, nil
}
