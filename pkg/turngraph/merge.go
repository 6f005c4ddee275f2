package turngraph

import (
	"fmt"
	"reflect"
	"strings"
)

// MergeMode selects how step results are folded into the state.
// A Runnable uses one mode for its whole lifetime.
type MergeMode int

const (
	// MergeOverlay accepts Full and Partial results. Partial results overlay
	// only the fields they name; Full results overlay every field.
	MergeOverlay MergeMode = iota

	// MergeReplace accepts only Full results. Partial results fail the step
	// with *MergeModeError.
	MergeReplace
)

// String returns the mode name.
func (m MergeMode) String() string {
	switch m {
	case MergeOverlay:
		return "overlay"
	case MergeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// ParseMergeMode parses "overlay" or "replace". The empty string is MergeOverlay.
func ParseMergeMode(s string) (MergeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overlay":
		return MergeOverlay, nil
	case "replace":
		return MergeReplace, nil
	default:
		return MergeOverlay, fmt.Errorf("unknown merge mode %q", s)
	}
}

// StateMode selects how Run treats the caller's initial state.
// There is no default: callers must choose.
type StateMode int

const (
	// PureValue leaves the caller's state untouched and returns a new one.
	PureValue StateMode = iota + 1

	// InPlace writes each merge back into the caller's state instance.
	InPlace
)

// String returns the mode name.
func (m StateMode) String() string {
	switch m {
	case PureValue:
		return "pure"
	case InPlace:
		return "in-place"
	default:
		return "unset"
	}
}

// merge folds res into current. It never mutates current. It returns the
// next state and the changed field names in schema order.
// writes limits which fields a partial update may touch; nil allows all.
func merge(mode MergeMode, current *State, res StepResult, writes map[string]bool) (*State, []string, error) {
	switch res.kind {
	case resultNoChange:
		return current, nil, nil

	case resultFull:
		if res.state == nil {
			return nil, nil, ErrNilState
		}
		if res.state.schema != current.schema {
			return nil, nil, ErrSchemaMismatch
		}
		next := res.state.Clone()
		return next, changedFields(current, next), nil

	case resultPartial, resultRoute:
		if len(res.update) == 0 {
			return current, nil, nil
		}
		if mode == MergeReplace {
			return nil, nil, &MergeModeError{Mode: mode, Result: "partial"}
		}
		for k := range res.update {
			if !current.schema.Has(k) {
				return nil, nil, &UnknownFieldError{Field: k}
			}
			if writes != nil && !writes[k] {
				return nil, nil, &UndeclaredWriteError{Field: k}
			}
		}
		next := current.Clone()
		var changed []string
		for _, f := range current.schema.fields {
			v, ok := res.update[f]
			if !ok || v == nil {
				continue
			}
			if isClear(v) {
				if _, had := next.values[f]; had {
					delete(next.values, f)
					changed = append(changed, f)
				}
				continue
			}
			old, had := next.values[f]
			next.values[f] = v
			if !had || !reflect.DeepEqual(old, v) {
				changed = append(changed, f)
			}
		}
		return next, changed, nil
	}
	return current, nil, nil
}

func changedFields(a, b *State) []string {
	var changed []string
	for _, f := range a.schema.fields {
		av, aok := a.values[f]
		bv, bok := b.values[f]
		if aok != bok || !reflect.DeepEqual(av, bv) {
			changed = append(changed, f)
		}
	}
	return changed
}
