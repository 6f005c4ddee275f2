/*
Package expr implements the small condition language used by declarative
decision steps.

Expressions are compiled once, when a layout is loaded, and evaluated on
every turn against the current state. Compilation reports syntax errors and
the identifiers an expression reads, so a layout that refers to a field the
schema does not declare fails before the bot starts.

# Syntax

	<expr>    := <and> ('or' <and>)*
	<and>     := <unary> ('and' <unary>)*
	<unary>   := ('not' | '!') <unary> | <compare>
	<compare> := <operand> [<op> <operand>]
	<operand> := '(' <expr> ')' | <call> | <literal> | <identifier>
	<call>    := ('len' | 'empty') '(' <operand> ')'
	<op>      := '==' | '!=' | '<' | '>' | '<=' | '>=' | 'contains' | 'in' | 'matches'

Literals are quoted strings ('x' or "x"), numbers, true, false and null.
Every other word is an identifier resolved through Vars. A missing
identifier evaluates to null.

# Operators

	==, !=     compare the printed form of both sides, so 5 == '5'
	<, >, ...  numeric comparison
	contains   substring for strings, membership for slices and map keys
	in         contains with the operands swapped
	matches    regular expression match; literal patterns compile once

# Truthiness

A lone operand is true unless it is null, false, an empty string, zero,
or an empty slice or map.

# Example

	p, err := expr.Compile("need_more_info or len(recommendations) == 0")
	if err != nil {
	    return err
	}
	ok, err := p.Eval(state) // *turngraph.State implements Vars
*/
package expr
