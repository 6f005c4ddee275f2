package expr

import (
	"errors"
	"strings"
	"testing"
)

type turnVars map[string]any

func (v turnVars) Lookup(name string) (any, bool) {
	val, ok := v[name]
	return val, ok
}

func TestEval(t *testing.T) {
	vars := map[string]any{
		"intent":           "recommend",
		"need_more_info":   true,
		"count":            5,
		"rating":           7.5,
		"liked_genres":     []int{878, 28},
		"message":          "SF映画が見たい",
		"empty_list":       []string{},
		"profile":          map[string]any{"language": "ja-JP"},
		"teaching_snippet": "",
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"string equality", "intent == 'recommend'", true},
		{"double quoted", `intent == "recommend"`, true},
		{"string inequality", "intent != 'teach'", true},
		{"number equality across types", "count == 5", true},
		{"number vs string", "count == '5'", true},
		{"float comparison", "rating >= 7.5", true},
		{"less than", "count < 3", false},
		{"negative literal", "count > -1", true},
		{"bool identifier", "need_more_info", true},
		{"bool equality", "need_more_info == true", true},
		{"missing identifier is falsy", "pending_question", false},
		{"missing equals null", "pending_question == null", true},
		{"empty string falsy", "teaching_snippet", false},
		{"not", "not teaching_snippet", true},
		{"bang", "!need_more_info", false},
		{"and", "need_more_info and count > 3", true},
		{"or", "teaching_snippet or intent == 'recommend'", true},
		{"and binds tighter than or", "false and false or true", true},
		{"parentheses", "false and (false or true)", false},
		{"substring", "message contains 'SF'", true},
		{"slice membership", "liked_genres contains 878", true},
		{"slice non member", "liked_genres contains 27", false},
		{"in", "28 in liked_genres", true},
		{"map key", "profile contains 'language'", true},
		{"matches", "message matches '^SF'", true},
		{"matches miss", "message matches 'ホラー'", false},
		{"len", "len(liked_genres) == 2", true},
		{"len runes", "len(message) == 8", true},
		{"empty", "empty(empty_list)", true},
		{"empty slice falsy", "empty_list", false},
		{"contains on nil", "missing contains 'x'", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCompile_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		msg  string
	}{
		{"empty", "   ", "empty expression"},
		{"single equals", "a = 1", "use =="},
		{"unterminated", "a == 'x", "unterminated string"},
		{"unbalanced", "(a and b", "missing )"},
		{"trailing", "a == 1)", "unexpected"},
		{"dangling operator", "a ==", "unexpected end"},
		{"unknown word operator", "a likes b", "unknown operator"},
		{"bad pattern", "a matches '('", "bad pattern"},
		{"stray character", "a == 1 & b", "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			if err == nil {
				t.Fatalf("expected error for %q", tt.expr)
			}
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Fatalf("expected *SyntaxError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not contain %q", err, tt.msg)
			}
		})
	}
}

func TestProgram_Identifiers(t *testing.T) {
	p := MustCompile("need_more_info or (len(recommendations) == 0 and intent != 'teach')")
	got := strings.Join(p.Identifiers(), ",")
	if got != "intent,need_more_info,recommendations" {
		t.Errorf("Identifiers() = %q", got)
	}
	if p.String() != "need_more_info or (len(recommendations) == 0 and intent != 'teach')" {
		t.Errorf("String() = %q", p.String())
	}

	lit := MustCompile("true")
	if len(lit.Identifiers()) != 0 {
		t.Errorf("literal expression should read no identifiers, got %v", lit.Identifiers())
	}
}

func TestProgram_EvalVars(t *testing.T) {
	p := MustCompile("intent == 'teach'")

	ok, err := p.Eval(turnVars{"intent": "teach"})
	if err != nil || !ok {
		t.Errorf("Eval() = %v, %v; want true", ok, err)
	}

	ok, err = p.Eval(nil)
	if err != nil || ok {
		t.Errorf("Eval(nil) = %v, %v; want false", ok, err)
	}
}

func TestProgram_DynamicPattern(t *testing.T) {
	p := MustCompile("message matches pattern")

	ok, err := p.Eval(Map{"message": "ホラーは苦手", "pattern": "ホラー.*苦手"})
	if err != nil || !ok {
		t.Errorf("Eval() = %v, %v; want true", ok, err)
	}

	_, err = p.Eval(Map{"message": "x", "pattern": "("})
	if err == nil || !strings.Contains(err.Error(), "bad pattern") {
		t.Errorf("expected bad pattern error, got %v", err)
	}
}

func TestCustomOperator(t *testing.T) {
	e := New(WithCustomOperator("startswith", func(left, right any) bool {
		return strings.HasPrefix(printed(left), printed(right))
	}))

	ok, err := e.Evaluate("message startswith 'SF'", Map{"message": "SF映画"})
	if err != nil || !ok {
		t.Errorf("Evaluate() = %v, %v; want true", ok, err)
	}

	if _, err := Compile("message startswith 'SF'"); err == nil {
		t.Error("default evaluator should not know custom operators")
	}
}

func TestIsTruthy(t *testing.T) {
	var nilPtr *int
	one := 1
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{"", false},
		{"x", true},
		{0, false},
		{int32(2), true},
		{uint8(0), false},
		{0.0, false},
		{float32(0.5), true},
		{[]int{}, false},
		{[]int{1}, true},
		{map[string]int{}, false},
		{nilPtr, false},
		{&one, true},
		{struct{}{}, true},
	}
	for _, tt := range tests {
		if got := IsTruthy(tt.v); got != tt.want {
			t.Errorf("IsTruthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		v    any
		want float64
	}{
		{3, 3},
		{int64(-2), -2},
		{uint16(7), 7},
		{float32(1.5), 1.5},
		{" 6.5 ", 6.5},
		{"abc", 0},
		{true, 0},
	}
	for _, tt := range tests {
		if got := ToFloat64(tt.v); got != tt.want {
			t.Errorf("ToFloat64(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
