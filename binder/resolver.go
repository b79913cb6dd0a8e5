// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"errors"
	"fmt"
)

// The well-known registry endpoint. Handle 0 is fixed by the driver;
// this is the only place it is addressed — every later call uses a
// resolved handle.
const (
	registryHandle = 0

	// checkServiceTransaction is the registry's lookup operation
	// (CHECK_SERVICE_TRANSACTION).
	checkServiceTransaction = 1

	// registryDescriptor is the registry's interface token.
	registryDescriptor = "android.os.IServiceManager"
)

// ResolveService queries the registry for the handle of a named remote
// service. Returns ErrServiceNotFound (wrapped) when the name is
// unregistered — a normal outcome, not an abort. Lookup is idempotent
// within one channel lifetime: the registry hands out the same handle
// for the same live service.
func ResolveService(engine *Engine, name string) (uint32, error) {
	parcel := NewParcel()
	parcel.WriteInterfaceToken(registryDescriptor)
	parcel.WriteString16(name)

	reply, err := engine.Submit(&Transaction{
		Handle:  registryHandle,
		Code:    checkServiceTransaction,
		Payload: parcel.Data(),
	})
	if err != nil {
		return 0, fmt.Errorf("resolving %q: %w", name, err)
	}
	defer reply.Release()

	handle, ok, err := reply.FirstHandle()
	if err != nil {
		return 0, fmt.Errorf("resolving %q: %w", name, err)
	}
	if !ok {
		return 0, fmt.Errorf("resolving %q: %w", name, ErrServiceNotFound)
	}
	return handle, nil
}

// IsNotFound reports whether err is the normal "name unregistered"
// resolution outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}
