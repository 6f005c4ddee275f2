package turngraph

import (
	"fmt"
	"maps"
	"strings"
	"unicode"
)

// Schema declares the fields a State may hold.
//
// A Schema is immutable after NewSchema and safe to share between graphs,
// runs and goroutines. States built from one Schema are only accepted by
// Runnables compiled against the same Schema.
type Schema struct {
	fields []string
	index  map[string]int
}

// NewSchema declares a state schema with the given field names, in order.
//
// Panics if a name is empty, contains whitespace, or is declared twice.
// These are programming errors and should be caught during development.
func NewSchema(fields ...string) *Schema {
	s := &Schema{
		fields: make([]string, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f == "" {
			panic("turngraph: schema field must not be empty")
		}
		if strings.IndexFunc(f, unicode.IsSpace) >= 0 {
			panic(fmt.Sprintf("turngraph: schema field %q contains whitespace", f))
		}
		if _, dup := s.index[f]; dup {
			panic(fmt.Sprintf("turngraph: schema field %q declared twice", f))
		}
		s.index[f] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Fields returns the declared field names in declaration order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Has reports whether the schema declares field.
func (s *Schema) Has(field string) bool {
	_, ok := s.index[field]
	return ok
}

// NewState builds a State from initial values.
// Nil values and Clear are skipped. An undeclared key yields *UnknownFieldError.
func (s *Schema) NewState(values map[string]any) (*State, error) {
	st := &State{schema: s, values: make(map[string]any, len(values))}
	for k, v := range values {
		if !s.Has(k) {
			return nil, &UnknownFieldError{Field: k}
		}
		if v == nil || isClear(v) {
			continue
		}
		st.values[k] = v
	}
	return st, nil
}

// MustState is like NewState but panics on an undeclared key.
func (s *Schema) MustState(values map[string]any) *State {
	st, err := s.NewState(values)
	if err != nil {
		panic(err)
	}
	return st
}

type clearMarker struct{}

func (clearMarker) String() string { return "<clear>" }

// Clear marks a field for removal in an Update. A nil value in an Update
// means "leave unchanged"; use Clear to reset a field intentionally.
var Clear any = clearMarker{}

func isClear(v any) bool {
	_, ok := v.(clearMarker)
	return ok
}

// State is the record threaded through a run.
//
// Absent fields read as nil. A State is not safe for concurrent mutation;
// steps receive their own snapshot and return results instead of writing
// to it.
type State struct {
	schema *Schema
	values map[string]any
}

// Schema returns the schema the state was built from.
func (st *State) Schema() *Schema {
	return st.schema
}

// Get returns the value of field, or nil if absent.
func (st *State) Get(field string) any {
	return st.values[field]
}

// Lookup returns the value of field and whether it is set.
func (st *State) Lookup(field string) (any, bool) {
	v, ok := st.values[field]
	return v, ok
}

// Has reports whether field is set.
func (st *State) Has(field string) bool {
	_, ok := st.values[field]
	return ok
}

// Set assigns field. A nil value or Clear removes it.
func (st *State) Set(field string, v any) error {
	if !st.schema.Has(field) {
		return &UnknownFieldError{Field: field}
	}
	if v == nil || isClear(v) {
		delete(st.values, field)
		return nil
	}
	st.values[field] = v
	return nil
}

// Clone returns a shallow copy. Field values are shared, so steps must treat
// slices and maps they read as immutable.
func (st *State) Clone() *State {
	return &State{schema: st.schema, values: maps.Clone(st.values)}
}

// Values returns a copy of the set fields.
func (st *State) Values() map[string]any {
	out := maps.Clone(st.values)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// assign makes st hold the values of other.
func (st *State) assign(other *State) {
	if st == other {
		return
	}
	st.values = maps.Clone(other.values)
}

// Value returns field converted to T. The bool is false when the field is
// absent or holds a different type.
func Value[T any](st *State, field string) (T, bool) {
	v, ok := st.values[field].(T)
	return v, ok
}

// ValueOr returns field converted to T, or def.
func ValueOr[T any](st *State, field string, def T) T {
	if v, ok := Value[T](st, field); ok {
		return v
	}
	return def
}
