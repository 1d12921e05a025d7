// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command jsonbridge seeds, queries and renders the fixture collection with json-tag
// serialization.
//
// Usage:
//
//	jsonbridge [global flags] seed
//	jsonbridge [global flags] query [-where 'x=1'] [-where 'a~1'] [-order x] [-desc] [-skip n] [-take n]
//	jsonbridge [global flags] tojson [-id 1] [-x 2] [-a 3,4,5]
//	jsonbridge [global flags] bench [-n 1000] [-workers 4] [-trials 5]
//
// The memory backend keeps nothing between runs, so every run starts with a freshly seeded
// collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ikmak/mongo-jsonbridge/internal/config"
	"github.com/ikmak/mongo-jsonbridge/internal/fixture"
	"github.com/ikmak/mongo-jsonbridge/internal/logger"
	"github.com/ikmak/mongo-jsonbridge/provider"
	"github.com/ikmak/mongo-jsonbridge/render"
	"github.com/ikmak/mongo-jsonbridge/store"
	"github.com/ikmak/mongo-jsonbridge/store/memstore"
	"github.com/ikmak/mongo-jsonbridge/store/mongostore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	err := mainReal()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainReal() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

// app is the state shared by the subcommands.
type app struct {
	cfg  *config.Config
	prov *provider.Provider
	log  *logger.Logger
	db   store.Database
	out  io.Writer

	mode   render.Mode
	pretty bool
	pluck  string
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"seed":   seedCommand,
	"query":  queryCommand,
	"tojson": toJSONCommand,
	"bench":  benchCommand,
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("jsonbridge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  = fs.String("config", "", "TOML config `file`")
		backend     = fs.String("backend", "", "store backend: memory or mongo")
		uri         = fs.String("uri", "", "MongoDB connection string for the mongo backend")
		format      = fs.String("format", "shell", "output format: shell, relaxed or canonical")
		pretty      = fs.Bool("pretty", false, "indent rendered documents")
		pluck       = fs.String("pluck", "", "print only the value at this gjson `path` of each document")
		showMetrics = fs.Bool("metrics", false, "write metrics in Prometheus format to stderr on exit")
		logLevel    = fs.String("log", "", "log level for all components: off, info or debug")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("missing command: seed, query, tojson or bench")
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return errors.Errorf("unknown command %q", fs.Arg(0))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *uri != "" {
		cfg.URI = *uri
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, err := render.ParseMode(*format)
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, out: stdout, mode: mode, pretty: *pretty, pluck: *pluck}
	a.log = newLogger(cfg.LogLevel, stderr)
	logger.SetDefault(a.log)

	if a.prov, err = registerProvider(a.log); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	db, closeDB, err := openDatabase(ctx, cfg, a.prov)
	if err != nil {
		return err
	}
	defer closeDB()
	a.db = db

	err = cmd(ctx, a, fs.Args()[1:])
	if *showMetrics {
		metrics.WritePrometheus(stderr, false)
	}
	return err
}

func newLogger(level string, w io.Writer) *logger.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)

	return logger.New(logger.NewLogrusSink(l), map[logger.Component]logger.Level{
		logger.ComponentAll: logger.ParseLevel(level),
	})
}

// registerProvider installs the process-wide provider. If one is already registered, it is
// used instead.
func registerProvider(log *logger.Logger) (*provider.Provider, error) {
	p, err := provider.New(provider.WithLogger(log))
	if err != nil {
		return nil, err
	}
	switch err := provider.Register(p); err {
	case nil:
		return p, nil
	case provider.ErrAlreadyRegistered:
		return provider.Registered(), nil
	default:
		return nil, err
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, prov *provider.Provider) (store.Database, func(), error) {
	if cfg.Backend == config.BackendMongo {
		client, err := mongostore.Connect(ctx, cfg.URI, prov.Registry())
		if err != nil {
			return nil, nil, err
		}
		closeClient := func() { _ = client.Disconnect(context.Background()) }
		if err := client.Ping(ctx); err != nil {
			closeClient()
			return nil, nil, err
		}
		return client.Database(cfg.Database), closeClient, nil
	}

	db := memstore.NewDatabase(cfg.Database, prov.Registry())
	if _, err := fixture.InitializeCollection(ctx, db, cfg.Collection); err != nil {
		return nil, nil, err
	}
	return db, func() {}, nil
}
