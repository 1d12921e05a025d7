// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"os"
)

// Component is an enumeration representing the "components" which can be logged against. A
// Level can be configured on a per-component basis.
type Component int

const (
	// ComponentAll enables logging for all components.
	ComponentAll Component = iota

	// ComponentProvider enables serialization provider logging.
	ComponentProvider

	// ComponentQuery enables predicate translation and query execution logging.
	ComponentQuery

	// ComponentStore enables collection backend logging.
	ComponentStore
)

// String returns the component literal.
func (c Component) String() string {
	switch c {
	case ComponentProvider:
		return "provider"
	case ComponentQuery:
		return "query"
	case ComponentStore:
		return "store"
	default:
		return "all"
	}
}

type componentEnvVar string

const (
	componentEnvVarAll      componentEnvVar = "JSONBRIDGE_LOG_ALL"
	componentEnvVarProvider componentEnvVar = "JSONBRIDGE_LOG_PROVIDER"
	componentEnvVarQuery    componentEnvVar = "JSONBRIDGE_LOG_QUERY"
	componentEnvVarStore    componentEnvVar = "JSONBRIDGE_LOG_STORE"
)

var componentEnvVars = map[componentEnvVar]Component{
	componentEnvVarAll:      ComponentAll,
	componentEnvVarProvider: ComponentProvider,
	componentEnvVarQuery:    ComponentQuery,
	componentEnvVarStore:    ComponentStore,
}

// getEnvComponentLevels returns the component levels set in the environment. Unset or
// unrecognized values are left out.
func getEnvComponentLevels() map[Component]Level {
	levels := make(map[Component]Level)

	for env, component := range componentEnvVars {
		if level := ParseLevel(os.Getenv(string(env))); level != LevelOff {
			levels[component] = level
		}
	}

	return levels
}
