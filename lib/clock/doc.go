// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the injectable time source used by every
// time-dependent component of the gateway: presence debouncing, the
// heartbeat reaper, token expiry checks, and websocket ping tickers.
//
// Production code is handed Real(). Tests hand in Fake() and move time
// forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	tracker := newPresenceTracker(c, ...)
//	c.WaitForTimers(1)
//	c.Advance(5 * time.Second)
//
// WaitForTimers closes the race between a goroutine arming a timer and
// the test advancing past it.
package clock
