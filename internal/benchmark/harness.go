// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package benchmark times repeated trials of an operation.
package benchmark

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Run executes fn trials times and collects the durations. Each trial performs ops operations,
// which is what throughput is computed from. Run stops early when ctx is done; a failing trial
// is recorded and does not stop the run.
func Run(ctx context.Context, name string, trials, ops int, fn func(context.Context) error) (*BenchResult, error) {
	if trials <= 0 {
		return nil, errors.Errorf("benchmark %s: trials must be positive, got %d", name, trials)
	}

	res := &BenchResult{
		Name:       name,
		Operations: ops,
		Raw:        make([]Result, 0, trials),
	}

	start := time.Now()
	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}

		trialStart := time.Now()
		err := fn(ctx)
		res.Raw = append(res.Raw, Result{Duration: time.Since(trialStart), Error: err})
		res.Trials++
	}
	res.Duration = time.Since(start)

	return res, nil
}
