// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package ams

import (
	"errors"

	"github.com/vigil-systems/vigil/binder"
)

// ServiceName is the registry name of the activity manager.
const ServiceName = "activity"

// interfaceDescriptor is the activity manager's RPC interface token.
const interfaceDescriptor = "android.app.IActivityManager"

// userCurrent is the UserHandle.USER_CURRENT sentinel written as the
// Intent's content user hint.
const userCurrent = -2

// StartServiceCode returns the activity manager's startService
// transaction code for a platform revision (API level). The interface
// was renumbered across releases; revisions outside the known bands
// use the long-stable default.
func StartServiceCode(revision int) uint32 {
	switch revision {
	case 26, 27:
		return 26
	case 28:
		return 30
	case 29:
		return 24
	default:
		return 34
	}
}

// StartServicePayload builds the flattened startService request for
// the given component and platform revision. The layout is
// revision-dependent: API 26 added the requireForeground argument,
// API 23 added callingPackage. The result is immutable; the guard
// builds it once and reuses it for every revival attempt.
func StartServicePayload(pkg, service string, revision int) (*binder.Transaction, error) {
	if pkg == "" || service == "" {
		return nil, errors.New("package and service must not be empty")
	}

	parcel := binder.NewParcel()
	parcel.WriteInterfaceToken(interfaceDescriptor)
	parcel.WriteNullBinder() // caller application thread: none

	switch {
	case revision >= 26:
		parcel.WriteInt32(1) // Intent present
		writeIntent(parcel, pkg, service)
		parcel.WriteString16Null() // resolvedType
		parcel.WriteInt32(0)       // requireForeground = false
		parcel.WriteString16(pkg)  // callingPackage
		parcel.WriteInt32(0)       // userId
	case revision >= 23:
		parcel.WriteInt32(1)
		writeIntent(parcel, pkg, service)
		parcel.WriteString16Null() // resolvedType
		parcel.WriteString16(pkg)  // callingPackage
		parcel.WriteInt32(0)       // userId
	default:
		parcel.WriteInt32(1)
		writeIntent(parcel, pkg, service)
		parcel.WriteString16Null() // resolvedType
		parcel.WriteInt32(0)       // userId
	}

	return &binder.Transaction{
		Code:          StartServiceCode(revision),
		Flags:         binder.FlagOneWay,
		Payload:       parcel.Data(),
		ObjectOffsets: parcel.ObjectOffsets(),
	}, nil
}

// writeIntent marshals a minimal Intent carrying only the explicit
// component name. Field order matches the platform's Intent
// flattening; absent reference fields are null markers.
func writeIntent(parcel *binder.Parcel, pkg, service string) {
	parcel.WriteString16Null()        // action
	parcel.WriteInt32(0)              // data URI: null
	parcel.WriteString16Null()        // type
	parcel.WriteString16Null()        // identifier (API 29+)
	parcel.WriteInt32(0)              // flags
	parcel.WriteString16Null()        // package
	parcel.WriteString16(pkg)         // component package
	parcel.WriteString16(service)     // component class
	parcel.WriteInt32(0)              // source bounds: null
	parcel.WriteInt32(0)              // categories: null set
	parcel.WriteInt32(0)              // selector: null
	parcel.WriteInt32(0)              // clip data: null
	parcel.WriteInt32(userCurrent)    // content user hint
	parcel.WriteInt32(-1)             // extras: null bundle
}
