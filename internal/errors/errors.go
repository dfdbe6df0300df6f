// Package errors provides error handling for boolnet.
//
// It re-exports github.com/cockroachdb/errors so that callers get stack traces,
// hints and details while still matching sentinels with Is. The sentinel
// taxonomy for network registration, experiment parsing and enumeration lives
// here as well so every package reports failures against the same values.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	Mark           = crdb.Mark
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

var (
	ErrMalformedSpec           = New("malformed component spec")
	ErrUnknownComponent        = New("unknown component")
	ErrDuplicateComponent      = New("component already registered")
	ErrMalformedInteraction    = New("malformed interaction record")
	ErrMalformedCondition      = New("malformed condition term")
	ErrMalformedTimeline       = New("malformed experiment timeline")
	ErrUnknownSnippetReference = New("unknown condition snippet")
	ErrTooManyOptional         = New("too many optional interactions")

	// ErrExhausted is the normal termination signal of an enumeration, not a fault.
	ErrExhausted = New("topology enumeration exhausted")
)

// IsExhausted reports whether err signals the end of an enumeration.
func IsExhausted(err error) bool {
	return Is(err, ErrExhausted)
}

// IsRegistrationError reports whether err was raised while registering
// components, interactions, conditions or experiments.
func IsRegistrationError(err error) bool {
	return IsAny(err,
		ErrMalformedSpec,
		ErrUnknownComponent,
		ErrDuplicateComponent,
		ErrMalformedInteraction,
		ErrMalformedCondition,
		ErrMalformedTimeline,
		ErrUnknownSnippetReference,
	)
}
