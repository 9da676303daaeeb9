package chain

import (
	"fmt"

	"github.com/google/uuid"
)

// FilterChainError reports a failure constructing a chain: backend
// resource creation, an unsupported format, or semantic resolution
// failure (spec.md §7).
type FilterChainError struct {
	Pass int
	Op   string
	Err  error
}

func (e *FilterChainError) Error() string {
	return fmt.Sprintf("chain: pass %d: %s: %v", e.Pass, e.Op, e.Err)
}

func (e *FilterChainError) Unwrap() error { return e.Err }

// FrameError is a per-frame transient failure (device lost, out of
// memory). Per spec.md §7 policy, the chain that produced one is
// considered poisoned and must be rebuilt. ChainID identifies which
// FilterChain instance poisoned itself, so a host juggling several chains
// (one per emulator core, say) can tell them apart in its own logs.
type FrameError struct {
	ChainID uuid.UUID
	Pass    int
	Err     error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("chain %s: frame failed at pass %d: %v", e.ChainID, e.Pass, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
