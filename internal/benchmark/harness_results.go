// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package benchmark

import (
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// BenchResult collects the trials of one benchmark.
type BenchResult struct {
	Name       string
	Trials     int
	Duration   time.Duration
	Raw        []Result
	Operations int
	hasErrors  *bool
}

// Metric is a named value of a summary.
type Metric struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Summary computes throughput metrics over the successful trials: ops_per_second for the
// median trial, _min and _max for the slowest and fastest, and _p95 for the 95th percentile
// trial duration.
func (r *BenchResult) Summary() ([]Metric, error) {
	timings := r.timings()

	median, err := stats.Median(timings)
	if err != nil {
		return nil, err
	}
	min, err := stats.Min(timings)
	if err != nil {
		return nil, err
	}
	max, err := stats.Max(timings)
	if err != nil {
		return nil, err
	}
	p95, err := stats.Percentile(timings, 95)
	if err != nil {
		return nil, err
	}

	return []Metric{
		{Name: "seconds", Value: r.roundedRuntime().Seconds()},
		{Name: "ops_per_second", Value: r.getThroughput(median)},
		{Name: "ops_per_second_min", Value: r.getThroughput(max)},
		{Name: "ops_per_second_max", Value: r.getThroughput(min)},
		{Name: "ops_per_second_p95", Value: r.getThroughput(p95)},
	}, nil
}

func (r *BenchResult) timings() []float64 {
	out := []float64{}
	for _, res := range r.Raw {
		if res.Error == nil {
			out = append(out, res.Duration.Seconds())
		}
	}
	return out
}

func (r *BenchResult) getThroughput(secs float64) float64 {
	if secs == 0 {
		return 0
	}
	return float64(r.Operations) / secs
}

func (r *BenchResult) roundedRuntime() time.Duration { return roundDurationMS(r.Duration) }

func (r *BenchResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name=%s, trials=%d, secs=%s", r.Name, r.Trials, r.roundedRuntime())

	metrics, err := r.Summary()
	if err != nil {
		fmt.Fprintf(&b, ", errors=%d", len(r.errReport()))
		return b.String()
	}
	for _, m := range metrics[1:] {
		fmt.Fprintf(&b, ", %s=%.1f", m.Name, m.Value)
	}
	return b.String()
}

// HasErrors reports whether any trial failed.
func (r *BenchResult) HasErrors() bool {
	if r.hasErrors == nil {
		var val bool
		for _, res := range r.Raw {
			if res.Error != nil {
				val = true
				break
			}
		}
		r.hasErrors = &val
	}

	return *r.hasErrors
}

func (r *BenchResult) errReport() []string {
	errs := []string{}
	for _, res := range r.Raw {
		if res.Error != nil {
			errs = append(errs, res.Error.Error())
		}
	}
	return errs
}

// Result is a single trial.
type Result struct {
	Duration time.Duration
	Error    error
}

func roundDurationMS(d time.Duration) time.Duration {
	rounded := d.Round(time.Millisecond)
	if rounded == 1<<63-1 {
		return 0
	}
	return rounded
}
