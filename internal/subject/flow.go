package subject

import (
	"context"
	"sync"

	pkgerrors "attesto/pkg/domain-errors"
)

// Phase is where a subject flow currently stands. Transitions are linear
// apart from the selecting fork: searching for another identity, or
// preparing the actor's own ledger identity.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSelecting  Phase = "selecting"
	PhaseSearching  Phase = "searching"
	PhasePreparing  Phase = "preparing"
	PhaseConfirming Phase = "confirming"
	PhaseExecuting  Phase = "executing"
	PhaseSuccess    Phase = "success"
	PhaseError      Phase = "error"
)

var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseSelecting},
	PhaseSelecting:  {PhaseSearching, PhasePreparing, PhaseConfirming, PhaseIdle},
	PhaseSearching:  {PhaseSelecting, PhaseConfirming, PhaseIdle},
	PhasePreparing:  {PhaseConfirming, PhaseError},
	PhaseConfirming: {PhaseExecuting, PhaseSelecting, PhaseIdle},
	PhaseExecuting:  {PhaseSuccess, PhaseError},
	PhaseSuccess:    {PhaseIdle},
	PhaseError:      {PhaseSelecting, PhaseIdle},
}

// cancellable phases may return to idle; preparing and executing have side
// effects in flight and must run to completion.
var cancellable = map[Phase]bool{
	PhaseSelecting:  true,
	PhaseSearching:  true,
	PhaseConfirming: true,
	PhaseSuccess:    true,
	PhaseError:      true,
}

// Flow tracks one actor's progress through selecting and executing a subject
// operation. It is safe for concurrent use; in practice one flow exists per
// session.
type Flow struct {
	orchestrator *Orchestrator

	mu      sync.Mutex
	phase   Phase
	op      Operation
	lastErr error
	result  *Result
}

func NewFlow(orchestrator *Orchestrator) *Flow {
	return &Flow{orchestrator: orchestrator, phase: PhaseIdle}
}

func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Result returns the outcome of the last executed operation, if any.
func (f *Flow) Result() *Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Err returns the error that moved the flow into its error phase.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Begin starts a new selection from idle.
func (f *Flow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advance(PhaseSelecting)
}

// Search marks the flow as looking up another identity to invite.
func (f *Flow) Search() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advance(PhaseSearching)
}

// Select fixes the chosen operation. Self-targeting operations that touch
// the ledger pass through preparing, where the actor's ledger identity is
// verified and provisioned if missing; everything else goes straight to
// confirming.
func (f *Flow) Select(ctx context.Context, actorID string, op Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseSelecting && f.phase != PhaseSearching {
		return f.invalid(PhaseConfirming)
	}
	f.op = op

	if touchesLedger(op) {
		if err := f.advance(PhasePreparing); err != nil {
			return err
		}
		if err := f.orchestrator.EnsureLedgerIdentity(ctx, actorID); err != nil {
			f.phase = PhaseError
			f.lastErr = err
			return err
		}
	}
	return f.advance(PhaseConfirming)
}

// Confirm executes the selected operation. The flow ends in success or
// error; either way the outcome is kept until the next Begin.
func (f *Flow) Confirm(ctx context.Context, actorID string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.advance(PhaseExecuting); err != nil {
		return Result{}, err
	}

	result, err := f.orchestrator.Execute(ctx, actorID, f.op)
	if err != nil {
		f.phase = PhaseError
		f.lastErr = err
		return Result{}, err
	}
	f.phase = PhaseSuccess
	f.result = &result
	f.lastErr = nil
	return result, nil
}

// Cancel abandons the flow and returns to idle. It is rejected while
// preparing or executing.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == PhaseIdle {
		return nil
	}
	if !cancellable[f.phase] {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "operation in progress, cannot cancel")
	}
	f.reset()
	return nil
}

// Reset acknowledges a terminal phase and returns to idle.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseSuccess && f.phase != PhaseError {
		return f.invalid(PhaseIdle)
	}
	f.reset()
	return nil
}

func (f *Flow) reset() {
	f.phase = PhaseIdle
	f.op = nil
	f.lastErr = nil
}

func (f *Flow) advance(to Phase) error {
	for _, next := range transitions[f.phase] {
		if next == to {
			f.phase = to
			return nil
		}
	}
	return f.invalid(to)
}

func (f *Flow) invalid(to Phase) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState,
		"cannot move from "+string(f.phase)+" to "+string(to))
}
