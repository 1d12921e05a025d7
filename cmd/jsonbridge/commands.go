// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"reflect"
	"strings"

	"github.com/ikmak/mongo-jsonbridge/internal/benchmark"
	"github.com/ikmak/mongo-jsonbridge/internal/fixture"
	"github.com/ikmak/mongo-jsonbridge/query"
	"github.com/ikmak/mongo-jsonbridge/render"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"golang.org/x/sync/errgroup"
)

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) queryable() query.Queryable[fixture.C] {
	return query.AsQueryable[fixture.C](a.db.Collection(a.cfg.Collection),
		query.WithProvider(a.prov), query.WithLogger(a.log))
}

// print writes v as a single rendered line, or the plucked part of it.
func (a *app) print(v interface{}) error {
	if a.pluck != "" {
		s, err := a.prov.ToJSON(v, render.WithMode(render.Relaxed))
		if err != nil {
			return err
		}
		res := gjson.Get(s, a.pluck)
		if !res.Exists() {
			return nil
		}
		out := res.Raw
		if a.pretty {
			out = strings.TrimRight(string(pretty.Pretty([]byte(out))), "\n")
		}
		_, err = fmt.Fprintln(a.out, out)
		return err
	}

	opts := []render.Option{render.WithMode(a.mode)}
	if a.pretty {
		opts = append(opts, render.WithIndent("  "))
	}
	s, err := a.prov.ToJSON(v, opts...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, s)
	return err
}

func seedCommand(ctx context.Context, a *app, args []string) error {
	if err := a.flagSet("seed").Parse(args); err != nil {
		return err
	}

	coll, err := fixture.InitializeCollection(ctx, a.db, a.cfg.Collection)
	if err != nil {
		return err
	}
	n, err := coll.CountDocuments(ctx, nil)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.out, "seeded %d documents into %s.%s\n", n, a.db.Name(), coll.Name())
	return err
}

func queryCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("query")
	var where stringsFlag
	fs.Var(&where, "where", "condition `field<op>value`, op one of = != > >= < <= ~ (may be repeated)")
	order := fs.String("order", "", "sort by this field")
	desc := fs.Bool("desc", false, "sort in descending order")
	skip := fs.Int64("skip", 0, "number of documents to skip")
	take := fs.Int64("take", 0, "maximum number of documents to print")
	count := fs.Bool("count", false, "print the number of matching documents only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t := reflect.TypeOf(fixture.C{})
	q := a.queryable()
	for _, expr := range where {
		p, err := parseWhere(expr, t, a.prov)
		if err != nil {
			return err
		}
		q = q.Where(p)
	}
	if *order != "" {
		td, err := a.prov.Describe(t)
		if err != nil {
			return err
		}
		fd, err := lookupField(td, *order)
		if err != nil {
			return err
		}
		if *desc {
			q = q.OrderByDescending(fd.GoName)
		} else {
			q = q.OrderBy(fd.GoName)
		}
	}
	q = q.Skip(*skip).Take(*take)

	if *count {
		n, err := q.Count(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out, n)
		return err
	}

	res, err := q.ToList(ctx)
	if err != nil {
		return err
	}
	for _, c := range res {
		if err := a.print(c); err != nil {
			return err
		}
	}
	return nil
}

func toJSONCommand(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("tojson")
	id := fs.Int("id", 1, "value of ID")
	x := fs.Int("x", 2, "value of X")
	arr := fs.String("a", "3,4,5", "comma separated values of A")
	if err := fs.Parse(args); err != nil {
		return err
	}

	values, err := intList(*arr)
	if err != nil {
		return err
	}
	return a.print(fixture.C{ID: *id, X: *x, A: values})
}

func benchCommand(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("bench")
	n := fs.Int("n", 1000, "queries per trial")
	workers := fs.Int("workers", 4, "concurrent query workers")
	trials := fs.Int("trials", 5, "number of trials")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n <= 0 || *workers <= 0 {
		return errors.New("-n and -workers must be positive")
	}

	q := a.queryable().Where(query.Field("A").Contains(1))
	res, err := benchmark.Run(ctx, "query-contains", *trials, *n, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for w := 0; w < *workers; w++ {
			share := *n / *workers
			if w < *n%*workers {
				share++
			}
			g.Go(func() error {
				for i := 0; i < share; i++ {
					if _, err := q.ToList(ctx); err != nil {
						return err
					}
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(a.out, res.String()); err != nil {
		return err
	}
	if res.HasErrors() {
		return errors.Errorf("%d of %d trials failed", countErrors(res), res.Trials)
	}
	return nil
}

func countErrors(res *benchmark.BenchResult) int {
	n := 0
	for _, r := range res.Raw {
		if r.Error != nil {
			n++
		}
	}
	return n
}
