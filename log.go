// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import "github.com/decred/slog"

// log is the package-level logger used to write informational and debug
// messages. It defaults to a disabled backend so importers that never call
// UseLogger pay no logging cost.
var log = slog.Disabled

// DisableLog disables all library log output. Logging is disabled by
// default until UseLogger is called.
//
// Deprecated: use UseLogger(slog.Disabled) instead.
func DisableLog() {
	log = slog.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}
