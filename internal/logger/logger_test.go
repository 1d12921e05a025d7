// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	levels []int
	msgs   []string
	kvs    [][]interface{}
	errs   []error
}

func (s *mockSink) Info(level int, msg string, kv ...interface{}) {
	s.levels = append(s.levels, level)
	s.msgs = append(s.msgs, msg)
	s.kvs = append(s.kvs, kv)
}

func (s *mockSink) Error(err error, msg string, kv ...interface{}) {
	s.errs = append(s.errs, err)
	s.msgs = append(s.msgs, msg)
	s.kvs = append(s.kvs, kv)
}

func BenchmarkLogger(b *testing.B) {
	logger := New(&mockSink{}, map[Component]Level{ComponentQuery: LevelDebug})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Print(LevelInfo, ComponentQuery, "foo", "bar", "baz")
	}
}

func TestLoggerIs(t *testing.T) {
	for _, tcase := range []struct {
		name      string
		levels    map[Component]Level
		level     Level
		component Component
		want      bool
	}{
		{"unset", nil, LevelInfo, ComponentQuery, false},
		{"exact", map[Component]Level{ComponentQuery: LevelInfo}, LevelInfo, ComponentQuery, true},
		{"below", map[Component]Level{ComponentQuery: LevelInfo}, LevelDebug, ComponentQuery, false},
		{"other component", map[Component]Level{ComponentStore: LevelDebug}, LevelInfo, ComponentQuery, false},
		{"all", map[Component]Level{ComponentAll: LevelDebug}, LevelDebug, ComponentProvider, true},
		{"component above all", map[Component]Level{ComponentAll: LevelInfo, ComponentStore: LevelDebug}, LevelDebug, ComponentStore, true},
		{"off never enabled", map[Component]Level{ComponentAll: LevelDebug}, LevelOff, ComponentStore, false},
	} {
		tcase := tcase
		t.Run(tcase.name, func(t *testing.T) {
			logger := New(&mockSink{}, tcase.levels)
			assert.Equal(t, tcase.want, logger.Is(tcase.level, tcase.component))
		})
	}
}

func TestLoggerPrint(t *testing.T) {
	sink := &mockSink{}
	logger := New(sink, map[Component]Level{ComponentStore: LevelDebug})

	logger.Print(LevelInfo, ComponentStore, "inserted", "count", 2)
	logger.Print(LevelDebug, ComponentStore, "find", "filter", "{}")
	logger.Print(LevelInfo, ComponentQuery, "dropped")

	require.Len(t, sink.msgs, 2)
	assert.Equal(t, []string{"inserted", "find"}, sink.msgs)
	assert.Equal(t, []int{0, 1}, sink.levels)
	assert.Equal(t, []interface{}{KeyComponent, "store", "count", 2}, sink.kvs[0])
}

func TestLoggerError(t *testing.T) {
	sink := &mockSink{}
	logger := New(sink, map[Component]Level{ComponentProvider: LevelInfo})

	boom := errors.New("boom")
	logger.Error(ComponentProvider, boom, "registration failed")
	logger.Error(ComponentQuery, boom, "ignored")

	require.Len(t, sink.errs, 1)
	assert.Equal(t, boom, sink.errs[0])
}

func TestNilLogger(t *testing.T) {
	var logger *Logger

	assert.False(t, logger.Is(LevelInfo, ComponentAll))
	assert.NotPanics(t, func() {
		logger.Print(LevelInfo, ComponentAll, "nothing")
		logger.Error(ComponentAll, errors.New("nothing"), "nothing")
	})
}

func TestEnvComponentLevels(t *testing.T) {
	t.Setenv("JSONBRIDGE_LOG_QUERY", "debug")
	t.Setenv("JSONBRIDGE_LOG_STORE", "warn")
	t.Setenv("JSONBRIDGE_LOG_PROVIDER", "invalid")

	assert.Equal(t, map[Component]Level{
		ComponentQuery: LevelDebug,
		ComponentStore: LevelInfo,
	}, getEnvComponentLevels())

	logger := New(&mockSink{}, map[Component]Level{ComponentQuery: LevelInfo})
	assert.False(t, logger.Is(LevelDebug, ComponentQuery), "explicit levels override the environment")
	assert.True(t, logger.Is(LevelInfo, ComponentStore))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("TRACE"))
	assert.Equal(t, LevelInfo, ParseLevel("Error"))
	assert.Equal(t, LevelOff, ParseLevel("off"))
	assert.Equal(t, LevelOff, ParseLevel(""))
}

func TestLogrusSink(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	logger := New(NewLogrusSink(log), map[Component]Level{ComponentAll: LevelDebug})
	logger.Print(LevelDebug, ComponentQuery, "translated", "filter", `{"x": 1}`)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "translated", entry.Message)
	assert.Equal(t, "query", entry.Data[KeyComponent])
	assert.Equal(t, `{"x": 1}`, entry.Data["filter"])

	logger.Error(ComponentStore, errors.New("duplicate"), "insert failed")
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "duplicate")
}
