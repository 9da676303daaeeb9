package core

import "errors"

// Sentinel errors shared across packages. Package-specific sentinels live
// alongside their taxonomy (preset.ErrShaderNotFound, reflect.ErrTooManyBindings, ...).
var (
	// ErrPoisoned marks a filter chain that failed mid-frame and must be rebuilt.
	ErrPoisoned = errors.New("filter chain is poisoned, rebuild required")
	// ErrUnknown is used where a backend returns no usable diagnostic.
	ErrUnknown = errors.New("unknown error")
)
