package turngraph

import (
	"errors"
	"fmt"
)

// Sentinel reasons for graph validation failures.
// GraphValidationError unwraps to one of these, so errors.Is works on the joined
// error returned by Compile.
var (
	// ErrNoEntry indicates SetEntry() was not called before Compile().
	ErrNoEntry = errors.New("entry step not set")

	// ErrNoTerminal indicates no terminal step was registered.
	ErrNoTerminal = errors.New("no terminal step")

	// ErrDeadEnd indicates a non-terminal step has no outgoing edge.
	ErrDeadEnd = errors.New("non-terminal step has no outgoing edge")

	// ErrAmbiguousEdge indicates an action step has more than one unconditional edge.
	ErrAmbiguousEdge = errors.New("action step has multiple unconditional edges")

	// ErrDecisionEdge indicates an unconditional edge was added from a decision step.
	ErrDecisionEdge = errors.New("decision step routes only through its conditional table")

	// ErrTerminalEdges indicates a terminal step has outgoing edges.
	ErrTerminalEdges = errors.New("terminal step has outgoing edges")

	// ErrEmptyLabel indicates a conditional table contains an empty route label.
	ErrEmptyLabel = errors.New("empty route label")

	// ErrDuplicateRoute indicates a route label was mapped to two different targets.
	ErrDuplicateRoute = errors.New("route label registered twice")

	// ErrMissingRoute indicates a declared label has no entry in the conditional table.
	ErrMissingRoute = errors.New("declared label has no route")

	// ErrUnreachableTerminal indicates a terminal cannot be reached from the entry step.
	ErrUnreachableTerminal = errors.New("terminal unreachable from entry")

	// ErrNoPathToTerminal indicates a reachable step can never reach a terminal.
	ErrNoPathToTerminal = errors.New("step has no path to a terminal")

	// ErrCycle indicates a cycle was found while compiling in acyclic mode.
	ErrCycle = errors.New("cycle detected")

	// ErrUnknownField indicates a field that the state schema does not declare.
	ErrUnknownField = errors.New("unknown state field")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilState indicates Run() was called with a nil state, or a step
	// returned Full(nil).
	ErrNilState = errors.New("state cannot be nil")

	// ErrSchemaMismatch indicates a state built from a different schema.
	ErrSchemaMismatch = errors.New("state schema does not match the runnable")

	// ErrStateModeRequired indicates Run() was called without choosing
	// PureValue or InPlace.
	ErrStateModeRequired = errors.New("state mode must be PureValue or InPlace")

	// ErrMissingRouteLabel indicates a decision step returned no route label.
	ErrMissingRouteLabel = errors.New("decision step returned no route label")

	// ErrUnexpectedRoute indicates an action step returned a route label.
	ErrUnexpectedRoute = errors.New("action step returned a route label")

	// ErrUnknownRouteLabel indicates a route label absent from the step's table.
	ErrUnknownRouteLabel = errors.New("unknown route label")

	// ErrStepBudgetExceeded indicates the run executed its maximum number of steps.
	ErrStepBudgetExceeded = errors.New("step budget exceeded")

	// ErrUndeclaredWrite indicates a partial update touched a field outside the
	// step's declared writes.
	ErrUndeclaredWrite = errors.New("field not declared as written by step")

	// ErrMergeMode indicates a step result that the runnable's merge mode rejects.
	ErrMergeMode = errors.New("result not allowed by merge mode")
)

// DuplicateStepError reports a step name registered more than once.
type DuplicateStepError struct {
	// Name is the duplicated step name.
	Name string
}

// Error implements the error interface.
func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("duplicate step: %s", e.Name)
}

// UnknownStepError reports a reference to a step that was never registered.
type UnknownStepError struct {
	// Name is the unresolved step name.
	Name string
	// Role describes where the reference appeared ("entry", "edge target", ...).
	Role string
}

// Error implements the error interface.
func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q (%s)", e.Name, e.Role)
}

// InvalidStepKindError reports a step used in a way its kind does not allow.
type InvalidStepKindError struct {
	Name string
	Kind StepKind
	Want StepKind
}

// Error implements the error interface.
func (e *InvalidStepKindError) Error() string {
	return fmt.Sprintf("step %s is a %s step, want %s", e.Name, e.Kind, e.Want)
}

// GraphValidationError reports a structural violation found by Compile.
type GraphValidationError struct {
	// Reason is one of the validation sentinels (ErrCycle, ErrDeadEnd, ...).
	Reason error
	// Details names the offending steps, labels or fields.
	Details string
}

// Error implements the error interface.
func (e *GraphValidationError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("invalid graph: %v", e.Reason)
	}
	return fmt.Sprintf("invalid graph: %v: %s", e.Reason, e.Details)
}

// Unwrap returns the reason sentinel for errors.Is support.
func (e *GraphValidationError) Unwrap() error {
	return e.Reason
}

// UnknownFieldError reports a state field the schema does not declare.
type UnknownFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown state field: %s", e.Field)
}

// Unwrap returns ErrUnknownField.
func (e *UnknownFieldError) Unwrap() error {
	return ErrUnknownField
}

// UndeclaredWriteError reports a partial update outside the step's Writes.
type UndeclaredWriteError struct {
	Field string
}

// Error implements the error interface.
func (e *UndeclaredWriteError) Error() string {
	return fmt.Sprintf("field %s not declared in step writes", e.Field)
}

// Unwrap returns ErrUndeclaredWrite.
func (e *UndeclaredWriteError) Unwrap() error {
	return ErrUndeclaredWrite
}

// MergeModeError reports a result shape the merge mode does not accept.
type MergeModeError struct {
	Mode   MergeMode
	Result string
}

// Error implements the error interface.
func (e *MergeModeError) Error() string {
	return fmt.Sprintf("%s result not allowed in %s merge mode", e.Result, e.Mode)
}

// Unwrap returns ErrMergeMode.
func (e *MergeModeError) Unwrap() error {
	return ErrMergeMode
}

// StepExecutionError wraps the failure of an individual step.
type StepExecutionError struct {
	// Step is the name of the step that failed.
	Step string
	// Cause is the underlying error (a *PanicError when the step panicked).
	Cause error
}

// Error implements the error interface.
func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *StepExecutionError) Unwrap() error {
	return e.Cause
}

// PanicError captures panic information from step execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// Step is the name of the step that panicked.
	Step string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("step %s panicked: %v", e.Step, e.Value)
}

// UnknownRouteLabelError reports a decision label with no conditional edge.
type UnknownRouteLabelError struct {
	Step  string
	Label string
}

// Error implements the error interface.
func (e *UnknownRouteLabelError) Error() string {
	return fmt.Sprintf("step %s returned unknown route label %q", e.Step, e.Label)
}

// Unwrap returns ErrUnknownRouteLabel.
func (e *UnknownRouteLabelError) Unwrap() error {
	return ErrUnknownRouteLabel
}

// StepBudgetExceededError is returned when a run reaches its step limit.
// It usually means an unintended cycle.
type StepBudgetExceededError struct {
	// Limit is the configured maximum number of step executions.
	Limit int
	// Next is the step that would have executed next.
	Next string
}

// Error implements the error interface.
func (e *StepBudgetExceededError) Error() string {
	return fmt.Sprintf("exceeded step budget (%d) before step %s", e.Limit, e.Next)
}

// Unwrap returns ErrStepBudgetExceeded for errors.Is support.
func (e *StepBudgetExceededError) Unwrap() error {
	return ErrStepBudgetExceeded
}

// CancellationError reports a run stopped by its context.
type CancellationError struct {
	// Step is the step that was about to execute or was executing.
	Step string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
	// WasExecuting is true if cancellation was observed by the step itself.
	WasExecuting bool
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.WasExecuting {
		return fmt.Sprintf("cancelled during step %s: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("cancelled before step %s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RunError is returned by Run for every run-time failure. It carries the
// partial state and trace accumulated before the failure.
type RunError struct {
	// Err is the specific failure (*StepExecutionError, *UnknownRouteLabelError, ...).
	Err error
	// State is the state after the last successful merge.
	State *State
	// Trace lists the steps executed so far, including the failing one.
	Trace Trace
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("run failed after %d steps: %v", len(e.Trace), e.Err)
}

// Unwrap returns the specific failure.
func (e *RunError) Unwrap() error {
	return e.Err
}
