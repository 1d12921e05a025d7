// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package logger is the component/level logger shared by the provider, query
// and store packages.
package logger

import (
	"sync/atomic"
)

// Sink is an interface that can be implemented to provide a custom sink for the logs.
type Sink interface {
	// Info logs a non-error message with the given key/value pairs. The level argument is the
	// Level offset by DiffToInfo, so that informational messages are level 0.
	Info(level int, msg string, keysAndValues ...interface{})

	// Error logs an error, with the given message and key/value pairs.
	Error(err error, msg string, keysAndValues ...interface{})
}

// Logger routes messages to a Sink when the message's component is enabled at the
// message's level. A nil *Logger discards everything.
type Logger struct {
	componentLevels map[Component]Level
	sink            Sink
}

// New will construct a new logger with the given Sink. If the given Sink is nil, then the
// logger will log to os.Stderr through logrus.
//
// The "componentLevels" parameter is variadic with the latest value taking precedence. Levels
// sourced from the environment are applied first, so explicit levels override them.
func New(sink Sink, componentLevels ...map[Component]Level) *Logger {
	levels := append([]map[Component]Level{getEnvComponentLevels()}, componentLevels...)

	logger := &Logger{
		componentLevels: mergeComponentLevels(levels...),
		sink:            sink,
	}
	if logger.sink == nil {
		logger.sink = NewLogrusSink(nil)
	}

	return logger
}

// Is will return true if the given Level is enabled for the given Component. A level set for
// ComponentAll applies to every component unless the component has a higher level of its own.
func (logger *Logger) Is(level Level, component Component) bool {
	if logger == nil || level == LevelOff {
		return false
	}

	enabled := logger.componentLevels[component]
	if all := logger.componentLevels[ComponentAll]; all > enabled {
		enabled = all
	}

	return enabled >= level
}

// Print will send the message to the sink if the level is enabled for the component.
func (logger *Logger) Print(level Level, component Component, msg string, keysAndValues ...interface{}) {
	if !logger.Is(level, component) {
		return
	}

	kv := make([]interface{}, 0, len(keysAndValues)+2)
	kv = append(kv, KeyComponent, component.String())
	kv = append(kv, keysAndValues...)

	logger.sink.Info(int(level)-DiffToInfo, msg, kv...)
}

// Error will send the error to the sink if the component logs at any level.
func (logger *Logger) Error(component Component, err error, msg string, keysAndValues ...interface{}) {
	if !logger.Is(LevelInfo, component) {
		return
	}

	kv := make([]interface{}, 0, len(keysAndValues)+2)
	kv = append(kv, KeyComponent, component.String())
	kv = append(kv, keysAndValues...)

	logger.sink.Error(err, msg, kv...)
}

// KeyComponent is the key under which the component name is reported to the sink.
const KeyComponent = "component"

var defaultLogger atomic.Value

// Default returns the process-wide logger. Until SetDefault is called it is a logger whose
// levels come from the environment only.
func Default() *Logger {
	if l, ok := defaultLogger.Load().(*Logger); ok {
		return l
	}

	l := New(nil)
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}

	return defaultLogger.Load().(*Logger)
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger *Logger) {
	if logger == nil {
		return
	}

	defaultLogger.Store(logger)
}

func mergeComponentLevels(componentLevels ...map[Component]Level) map[Component]Level {
	merged := make(map[Component]Level)
	for _, levels := range componentLevels {
		for component, level := range levels {
			merged[component] = level
		}
	}

	return merged
}
