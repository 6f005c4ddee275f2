package template

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// placeholder matches ${name} and ${name:-default}.
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_.]*)(?::-([^}]*))?\}`)

// Vars resolves placeholder names.
type Vars interface {
	Lookup(name string) (any, bool)
}

// Map adapts a plain map to Vars.
type Map map[string]any

// Lookup implements Vars.
func (m Map) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Expander expands placeholders in strings.
//
// Create with NewExpander() and configure with Option functions.
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	separator     string
}

// NewExpander creates a new Expander with the given options.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		separator:     "、",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces every placeholder in s.
//
// A variable that is absent, nil or an empty string uses the placeholder's
// default when it has one. Errors are only returned when MissingAction is
// MissingError and a variable without a default is not found.
func (e *Expander) Expand(s string, vars Vars) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	result := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholder.FindStringSubmatch(match)
		name, def := sub[1], sub[2]
		hasDefault := strings.Contains(match, ":-")

		if vars != nil {
			if val, ok := vars.Lookup(name); ok {
				if text := e.format(val); text != "" || !hasDefault {
					return text
				}
			}
		}
		if hasDefault {
			return def
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, name)
			return match
		default:
			return match
		}
	})

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// MustExpand expands placeholders in s and panics on error.
func (e *Expander) MustExpand(s string, vars Vars) string {
	result, err := e.Expand(s, vars)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return result
}

func (e *Expander) format(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = e.format(rv.Index(i).Interface())
		}
		return strings.Join(parts, e.separator)
	}
	return fmt.Sprintf("%v", v)
}

// Placeholders returns the variable names referenced by s, in order of
// first appearance.
func Placeholders(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// UndefinedVariableError is returned when MissingError is set and
// one or more variables are not found.
type UndefinedVariableError struct {
	// Names is the list of undefined variable names.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

var defaultExpander = NewExpander()

// Expand expands placeholders in s using the default expander, keeping
// placeholders whose variable is missing.
func Expand(s string, vars Vars) string {
	result, _ := defaultExpander.Expand(s, vars)
	return result
}
