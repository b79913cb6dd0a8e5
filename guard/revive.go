// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"fmt"
	"log/slog"

	"github.com/vigil-systems/vigil/ams"
	"github.com/vigil-systems/vigil/binder"
)

// RevivalConfig names the component a guard revives and how to reach
// the transport.
type RevivalConfig struct {
	// Device is the binder device path.
	Device string

	// Package and Service name the component to revive.
	Package string
	Service string

	// PlatformRevision selects the payload layout and transaction
	// code.
	PlatformRevision int
}

// DriverConnector returns a Connect function for Instance: it opens
// the binder channel, resolves the activity manager's handle, and
// prebuilds the revival transaction, so that the trigger path is a
// single submit.
//
// An unregistered activity service is not fatal here: the handle
// stays zero and the eventual submission fails downstream, which is
// the transport's honest answer. A missing driver is fatal — nothing
// can be revived without it.
func DriverConnector(cfg RevivalConfig, logger *slog.Logger) func() (RevivalSender, error) {
	return func() (RevivalSender, error) {
		channel, err := binder.Open(cfg.Device)
		if err != nil {
			return nil, err
		}
		engine := binder.NewEngine(channel, logger)

		handle, err := binder.ResolveService(engine, ams.ServiceName)
		switch {
		case binder.IsNotFound(err):
			logger.Warn("activity service unregistered, revival will fail at submit")
			handle = 0
		case err != nil:
			channel.Close()
			return nil, err
		}

		tx, err := ams.StartServicePayload(cfg.Package, cfg.Service, cfg.PlatformRevision)
		if err != nil {
			channel.Close()
			return nil, fmt.Errorf("building revival payload: %w", err)
		}
		tx.Handle = handle

		logger.Info("revival transaction prepared",
			"handle", handle,
			"code", tx.Code,
			"component", cfg.Package+"/"+cfg.Service)
		return &driverSender{engine: engine, tx: tx}, nil
	}
}

// driverSender submits the prebuilt transaction through the engine.
type driverSender struct {
	engine *binder.Engine
	tx     *binder.Transaction
}

func (s *driverSender) Send() error {
	// Oneway: a nil reply on success, nothing to release.
	_, err := s.engine.Submit(s.tx)
	return err
}

// TestTransaction exercises driver access end to end without any
// guarding: open, resolve, build, fire one revival, close. Used by
// vigil-call to verify a deployment before trusting the guard with
// it.
func TestTransaction(cfg RevivalConfig, logger *slog.Logger) error {
	channel, err := binder.Open(cfg.Device)
	if err != nil {
		return err
	}
	defer channel.Close()

	engine := binder.NewEngine(channel, logger)
	handle, err := binder.ResolveService(engine, ams.ServiceName)
	if err != nil {
		return err
	}
	logger.Info("resolved activity service", "handle", handle)

	tx, err := ams.StartServicePayload(cfg.Package, cfg.Service, cfg.PlatformRevision)
	if err != nil {
		return err
	}
	tx.Handle = handle

	if _, err := engine.Submit(tx); err != nil {
		return fmt.Errorf("submitting test transaction: %w", err)
	}
	logger.Info("test transaction enqueued",
		"component", cfg.Package+"/"+cfg.Service, "code", tx.Code)
	return nil
}
