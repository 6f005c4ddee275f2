// Package registry provides a thread-safe, ordered registry for values
// indexed by key.
//
// The bot keeps its step catalog and its named providers in registries:
// layouts refer to steps by name, and a typo should fail with the list of
// names that do exist.
//
//	steps := registry.New[string, layout.StepSpec]()
//	steps.MustRegister("parse_user", parseSpec)
//	steps.Freeze()
//
//	spec, err := steps.Find("parse_usr")
//	// registry: parse_usr not registered (known: [parse_user])
//
// Register refuses to overwrite; use Replace for that. Freeze makes the
// registry read-only, after which mutations return ErrFrozen.
//
// All iterates over a snapshot in key order, so iteration output is
// deterministic and mutations during iteration are allowed.
package registry
