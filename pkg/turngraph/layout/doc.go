// Package layout builds turn graphs from YAML definitions.
//
// A layout names its steps, wires them together and picks the merge mode;
// the step code itself comes from a Catalog the application fills in.
// Decision steps can also be written inline as ordered expression rules:
//
//	name: moviebot
//	entry: parse_user
//	terminals: [answer]
//	acyclic: true
//	steps:
//	  - name: parse_user
//	    next: decide
//	  - name: decide
//	    rules:
//	      - when: need_more_info
//	        route: ask_clarify
//	      - when: teaching_snippet
//	        route: teach_user
//	    otherwise: fetch_movies
//	  - name: ask_clarify
//	    next: answer
//	  ...
//
// A rule decision without a routes table routes each label to the step of
// the same name. Rules are evaluated in order against the current state and
// the first match wins; with no match and no otherwise the decision returns
// turngraph.DefaultRoute.
//
// Compile reports layout problems (unknown catalog entries, rule syntax,
// rules that read undeclared fields) together with the engine's own
// structural validation.
package layout
