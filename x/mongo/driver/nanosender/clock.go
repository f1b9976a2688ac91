// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package nanosender

import "time"

// CancelFunc cancels a pending CallLater registration. Calling it after the
// callback has already run is a no-op.
type CancelFunc func()

// Clock is the minimal scheduling surface nanosender needs from an event
// loop (spec.md §4.8 "call_soon, call_later" — the loop is an external
// collaborator; nanosender depends only on this narrow interface rather
// than the full eventloop.Loop, so combinators in this package don't need
// to know about sockets or address resolution). eventloop.Loop satisfies
// this interface.
type Clock interface {
	CallSoon(fn func())
	CallLater(d time.Duration, fn func()) CancelFunc
}
