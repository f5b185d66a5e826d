package zkvm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// Guest execution errors.
var (
	ErrNilGuestContext   = errors.New("zkvm: nil guest context")
	ErrContextExecuted   = errors.New("zkvm: context already executed")
	ErrGuestPanicked     = errors.New("zkvm: guest execution panicked")
	ErrGuestFailed       = errors.New("zkvm: guest execution failed")
	ErrEmptyPublicValues = errors.New("zkvm: guest committed no public values")
)

// GuestContext provides the restricted environment a guest runs in: one
// public input, an append-only public values region and an execution trace.
// A context is single-use.
type GuestContext struct {
	input        []byte
	publicValues []byte

	// trace is the running BLAKE3 hash chain over recorded events.
	trace  [32]byte
	events uint64

	executed bool
}

// NewGuestContext creates a context holding input.
func NewGuestContext(input []byte) *GuestContext {
	ctx := &GuestContext{input: input}
	ctx.trace = blake3.Sum256(append([]byte("reml-zkvm-trace"), input...))
	return ctx
}

// Read returns the public input.
func (ctx *GuestContext) Read() []byte {
	return ctx.input
}

// Commit appends b to the public values.
func (ctx *GuestContext) Commit(b []byte) {
	ctx.publicValues = append(ctx.publicValues, b...)
	ctx.Record("commit", b)
}

// Record appends an event to the execution trace. The trace commitment is
// h_{i+1} = BLAKE3(h_i || len(label) || label || len(data) || data).
func (ctx *GuestContext) Record(label string, data ...[]byte) {
	h := blake3.New()
	h.Write(ctx.trace[:])
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(label)))
	h.Write(n[:])
	h.Write([]byte(label))
	for _, d := range data {
		binary.LittleEndian.PutUint64(n[:], uint64(len(d)))
		h.Write(n[:])
		h.Write(d)
	}
	h.Sum(ctx.trace[:0])
	ctx.events++
}

// PublicValues returns the committed public values.
func (ctx *GuestContext) PublicValues() []byte {
	return ctx.publicValues
}

// TraceCommitment returns the current trace hash.
func (ctx *GuestContext) TraceCommitment() [32]byte {
	return ctx.trace
}

// Events returns the number of recorded trace events.
func (ctx *GuestContext) Events() uint64 {
	return ctx.events
}

// IsExecuted returns whether this context has already been used.
func (ctx *GuestContext) IsExecuted() bool {
	return ctx.executed
}

// run executes fn once inside ctx, converting panics into ErrGuestPanicked.
func (ctx *GuestContext) run(fn GuestFunc) (err error) {
	if ctx == nil {
		return ErrNilGuestContext
	}
	if ctx.executed {
		return ErrContextExecuted
	}
	ctx.executed = true

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrGuestPanicked, r)
		}
	}()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrGuestFailed, err)
	}
	return nil
}

// Execution is the outcome of running a guest program.
type Execution struct {
	PublicValues    []byte
	TraceCommitment [32]byte
	Events          uint64
}

// Execute runs program on input in a fresh guest context. A guest error or
// panic aborts the execution; no partial output is returned.
func Execute(program *GuestProgram, input []byte) (*Execution, error) {
	if program == nil || program.Entry == nil {
		return nil, ErrNilProgram
	}
	ctx := NewGuestContext(input)
	if err := ctx.run(program.Entry); err != nil {
		return nil, err
	}
	if len(ctx.publicValues) == 0 {
		return nil, ErrEmptyPublicValues
	}
	return &Execution{
		PublicValues:    ctx.publicValues,
		TraceCommitment: ctx.trace,
		Events:          ctx.events,
	}, nil
}
