package network

import "boolnet/internal/errors"

var (
	ErrMalformedSpec        = errors.ErrMalformedSpec
	ErrUnknownComponent     = errors.ErrUnknownComponent
	ErrDuplicateComponent   = errors.ErrDuplicateComponent
	ErrMalformedInteraction = errors.ErrMalformedInteraction
)
