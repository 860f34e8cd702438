// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diagnostics carries the reporting channel the runtime core uses
// to surface recoverable and fatal conditions to its embedding
// application.
//
// The core never interprets or unwinds on behalf of a caller. Recoverable
// conditions (size mismatches, duplicate fallback registrations) go
// through ReportError and the operation declines. Lifecycle and type
// errors are unrecoverable and go through FatalError, which does not
// return.
package diagnostics

import (
	"fmt"
	"io"
	"os"
)

// Reporter is the collaborator interface the core consumes for
// diagnostics (spec §6 "Diagnostics").
type Reporter interface {
	// ReportError records a recoverable condition. The operation that
	// triggered it still declines (no-op), but the process continues.
	ReportError(callContext, format string, args ...any)

	// Axiom records an invariant the caller believes always holds. When
	// the invariant is violated, Axiom behaves like FatalError.
	Axiom(cond bool, callContext, format string, args ...any)

	// FatalError reports an unrecoverable condition and terminates the
	// process after rendering call context.
	FatalError(callContext, format string, args ...any)
}

// Default is the process-wide reporter used by packages that do not
// receive an explicit Reporter. Replace it in tests or embedding
// applications that want custom diagnostic sinks.
var Default Reporter = NewStdReporter(os.Stderr)

// ReportError reports through Default.
func ReportError(callContext, format string, args ...any) {
	Default.ReportError(callContext, format, args...)
}

// Axiom checks through Default.
func Axiom(cond bool, callContext, format string, args ...any) {
	Default.Axiom(cond, callContext, format, args...)
}

// FatalError reports through Default and does not return.
func FatalError(callContext, format string, args ...any) {
	Default.FatalError(callContext, format, args...)
}

// StdReporter is a minimal Reporter that writes to an io.Writer and, for
// fatal conditions, panics with a rendered message. Panicking (rather than
// os.Exit) lets embedding applications recover at a top-level boundary if
// they choose to, while still making FatalError "not return" from the
// caller's point of view.
type StdReporter struct {
	w io.Writer
}

// NewStdReporter creates a StdReporter writing to w.
func NewStdReporter(w io.Writer) *StdReporter {
	return &StdReporter{w: w}
}

func (r *StdReporter) ReportError(callContext, format string, args ...any) {
	fmt.Fprintf(r.w, "[vexec] error (%s): %s\n", callContext, fmt.Sprintf(format, args...))
}

func (r *StdReporter) Axiom(cond bool, callContext, format string, args ...any) {
	if cond {
		return
	}
	r.FatalError(callContext, format, args...)
}

func (r *StdReporter) FatalError(callContext, format string, args ...any) {
	msg := fmt.Sprintf("[vexec] fatal (%s): %s", callContext, fmt.Sprintf(format, args...))
	fmt.Fprintln(r.w, msg)
	panic(msg)
}
