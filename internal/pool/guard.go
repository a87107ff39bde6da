package pool

// reentrancyGuard is the exclusive-execution flag shared by every operation
// that moves external value before its bookkeeping settles. The execution
// model is a single logical thread, so a set flag can only mean a transfer
// target called back into the pool mid-operation; that call must fail fast
// instead of observing half-updated state.
type reentrancyGuard struct {
	locked bool
}

// enter acquires the guard or fails with ErrReentrantCall.
func (g *reentrancyGuard) enter() error {
	if g.locked {
		return ErrReentrantCall
	}
	g.locked = true
	return nil
}

// exit releases the guard. Always deferred so error paths release too.
func (g *reentrancyGuard) exit() {
	g.locked = false
}
