package wire

// RecursionLimit bounds how deep length-delimited message nesting may go in
// a single decode call. It caps stack usage and defends against maliciously
// nested input; it cannot be customized.
const RecursionLimit uint32 = 100

// DecodeContext carries per-decode state through nested decode calls: the
// remaining recursion budget. It is created once per top-level decode,
// passed by value, and never shared across concurrent decodes.
type DecodeContext struct {
	remaining uint32
}

// NewDecodeContext returns a context with the full recursion budget.
func NewDecodeContext() DecodeContext {
	return DecodeContext{remaining: RecursionLimit}
}

// EnterRecursion returns the context to use at the next nesting level. There
// is no exit counterpart: the caller keeps using its own context at the
// previous level. Fails with ErrRecursionLimit when the budget is exhausted.
func (c DecodeContext) EnterRecursion() (DecodeContext, error) {
	if c.remaining == 0 {
		return c, ErrRecursionLimit
	}
	return DecodeContext{remaining: c.remaining - 1}, nil
}

// LimitReached is a cheap pre-check used before consuming a length-delimited
// region, so deeply nested malicious input fails fast rather than after
// allocating buffers.
func (c DecodeContext) LimitReached() error {
	if c.remaining == 0 {
		return ErrRecursionLimit
	}
	return nil
}
