// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package integtest finds a MongoDB deployment for tests that need a live server.
package integtest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ikmak/mongo-jsonbridge/store/mongostore"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// DefaultURI is tried when MONGODB_URI is not set.
const DefaultURI = "mongodb://localhost:27017"

// ContainerImage is started with testcontainers when neither MONGODB_URI nor DefaultURI answer.
const ContainerImage = "mongo:7"

var (
	localURI  string
	localOnce sync.Once

	containerURI  string
	containerErr  error
	containerOnce sync.Once
)

// MongoDBURI returns the URI of the deployment to test against, skipping the test when there is
// none. The MONGODB_URI environment variable wins; otherwise a server on localhost is used if
// it answers a ping, and a container is started as the last resort. Live tests are skipped in
// short mode.
func MongoDBURI(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping live MongoDB test in short mode")
	}
	if env := os.Getenv("MONGODB_URI"); env != "" {
		return env
	}

	localOnce.Do(func() {
		if reachable(DefaultURI) {
			localURI = DefaultURI
		}
	})
	if localURI != "" {
		return localURI
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)
	containerOnce.Do(func() {
		containerURI, containerErr = startContainer()
	})
	if containerErr != nil {
		t.Skipf("cannot start a MongoDB container: %v", containerErr)
	}

	return containerURI
}

func reachable(uri string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongostore.Connect(ctx, uri, nil)
	if err != nil {
		return false
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	return client.Ping(ctx) == nil
}

// startContainer runs a MongoDB container for the rest of the test binary's life. The
// testcontainers reaper removes it when the process exits.
func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := mongodb.Run(ctx, ContainerImage)
	if err != nil {
		return "", err
	}
	return container.ConnectionString(ctx)
}

// DBName gets a database name unique to the test process.
func DBName() string {
	return fmt.Sprintf("jsonbridge-%d", os.Getpid())
}

// Database connects to the test deployment with the given registry and returns the per-process
// test database. The database is dropped and the client disconnected when the test ends.
func Database(t *testing.T, registry *bsoncodec.Registry) *mongostore.Database {
	t.Helper()

	uri := MongoDBURI(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongostore.Connect(ctx, uri, registry)
	if err != nil {
		t.Fatalf("error connecting to %s: %v", uri, err)
	}
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("error pinging %s: %v", uri, err)
	}

	db := client.Database(DBName())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}
