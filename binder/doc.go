// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package binder is a minimal user-space client for the Android binder
// kernel driver: a capability-oriented, kernel-mediated synchronous
// message-passing transport in which processes address each other
// through small integer handles and exchange flattened binary
// transactions through a character device.
//
// The package is organized around the transaction data flow:
//
//   - wire.go: kernel UAPI command codes and struct layouts
//   - channel.go: the open device descriptor, mapped receive region,
//     and the single combined write/read ioctl primitive
//   - parcel.go: the flattened payload codec (UTF-16 strings,
//     interface tokens, embedded flat objects)
//   - engine.go: transaction submission and the inbound return
//     demultiplexer
//   - reply.go: scoped ownership of kernel-pinned reply buffers
//   - resolver.go: service-name lookup against the registry endpoint
//     (handle 0)
//
// No cgo is required — all ioctl calls use golang.org/x/sys/unix with
// struct layouts matching the upstream Linux kernel UAPI headers
// (include/uapi/linux/android/binder.h), which are stable ABI.
//
// Scope: only the two transaction shapes the guard protocol needs are
// supported — oneway (fire-and-forget) and waits-for-reply. The
// client never acts as a callee; inbound calls are dropped and their
// buffers freed.
package binder
