/*
Package template expands ${name} placeholders in bot messages.

Reply texts such as the clarifying question or the transit apology live in
a Catalog so deployments can reword them in configuration. Placeholders
are resolved through Vars, which *turngraph.State satisfies, so a message
can quote any state field:

	cat := template.NewCatalog(map[string]string{
	    "teach": "${topic}は、${summary}",
	})
	text, err := cat.Render("teach", template.Map{"topic": "SF", "summary": "..."})

A placeholder may carry a default after ":-":

	${pending_question:-ご希望を教えてください}

Slices are joined with the expander's separator (default "、").

# Missing Variables

By default, missing variables without a default are kept as-is. Use
WithMissingAction to drop them or to fail with *UndefinedVariableError.
*/
package template
