// Package scanner talks to the virus scan oracle. Clamd speaks the clamd
// INSTREAM protocol; Disabled is the explicit bypass for test and
// development setups.
package scanner

import (
	"context"
)

// Verdict is the outcome of a scan.
type Verdict int

const (
	Clean Verdict = iota
	Infected
	Unavailable
)

func (v Verdict) String() string {
	switch v {
	case Clean:
		return "clean"
	case Infected:
		return "infected"
	default:
		return "unavailable"
	}
}

// Result carries the verdict and, for infected payloads, the signature name.
type Result struct {
	Verdict   Verdict
	Signature string
}

// Oracle scans a payload. An Unavailable verdict is always paired with a
// non-nil error wrapping common.ErrScanUnavailable.
type Oracle interface {
	Scan(ctx context.Context, data []byte) (Result, error)
	Ping(ctx context.Context) error
}

// Disabled reports every payload as clean.
type Disabled struct{}

func (Disabled) Scan(context.Context, []byte) (Result, error) { return Result{Verdict: Clean}, nil }

func (Disabled) Ping(context.Context) error { return nil }
