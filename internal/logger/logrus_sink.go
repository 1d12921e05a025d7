// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusSink writes log messages through a logrus.Logger and is the default sink.
type LogrusSink struct {
	log *logrus.Logger
}

// Compile-time check to ensure LogrusSink implements the Sink interface.
var _ Sink = &LogrusSink{}

// NewLogrusSink will create a sink around the provided logrus.Logger. If it is nil, a logger
// writing text to os.Stderr at debug level is created; filtering is done by component levels.
func NewLogrusSink(log *logrus.Logger) *LogrusSink {
	if log == nil {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.DebugLevel)
	}

	return &LogrusSink{log: log}
}

// Info writes the message at logrus' info level for level 0 and at debug level otherwise.
func (s *LogrusSink) Info(level int, msg string, keysAndValues ...interface{}) {
	entry := s.log.WithFields(fields(keysAndValues))
	if level > 0 {
		entry.Debug(msg)
		return
	}

	entry.Info(msg)
}

// Error writes the message at logrus' error level with the error attached.
func (s *LogrusSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return f
}
