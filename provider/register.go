// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package provider

import (
	"sync"

	"github.com/ikmak/mongo-jsonbridge/internal/logger"
	"github.com/ikmak/mongo-jsonbridge/render"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	registeredMu sync.Mutex
	registered   *Provider
)

// Register installs p as the process-wide serialization provider: it becomes the provider
// returned by Registered and its registry replaces bson.DefaultRegistry. Registering the same
// provider twice is a no-op; registering a different provider returns ErrAlreadyRegistered.
//
// Register must be called before clients are created, typically from an init function or the
// start of main, since bson.DefaultRegistry is read without synchronization by the driver.
func Register(p *Provider) error {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	switch registered {
	case p:
		return nil
	case nil:
	default:
		return ErrAlreadyRegistered
	}

	registered = p
	bson.DefaultRegistry = p.Registry()
	p.log.Print(logger.LevelInfo, logger.ComponentProvider, "serialization provider registered",
		"memberSerialization", p.mode.String())

	return nil
}

// EnsureProviderIsRegistered registers a default provider unless a provider has already been
// registered. It may be called any number of times from any goroutine.
func EnsureProviderIsRegistered() {
	registeredMu.Lock()
	if registered != nil {
		registeredMu.Unlock()
		return
	}
	registeredMu.Unlock()

	p, err := New()
	if err != nil {
		// The default provider is built from driver codecs only; failing here is a programming error.
		panic(err)
	}
	// Losing a race to another registration is fine: some provider is registered either way.
	_ = Register(p)
}

// Registered returns the process-wide provider, or nil if none has been registered.
func Registered() *Provider {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	return registered
}

// Default returns the registered provider, registering the default one first if necessary.
func Default() *Provider {
	EnsureProviderIsRegistered()
	return Registered()
}

// ToJSON renders v with the registered provider. See Provider.ToJSON.
func ToJSON(v interface{}, opts ...render.Option) (string, error) {
	return Default().ToJSON(v, opts...)
}
