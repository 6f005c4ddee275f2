package turngraph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Overlay highlights a run on a Mermaid diagram.
type Overlay struct {
	Visited []string
	Current string
}

// OverlayFromTrace builds an Overlay marking every traced step, with the
// last one as current.
func OverlayFromTrace(t Trace) *Overlay {
	o := &Overlay{Visited: t.Steps()}
	if last, ok := t.Last(); ok {
		o.Current = last.Step
	}
	return o
}

// Mermaid renders the graph as a Mermaid flowchart.
//
// Shapes: the entry step is a circle, decisions are rhombi, terminals are
// stadiums and other actions are rectangles. Conditional edges carry their
// route label. overlay may be nil.
func (r *Runnable) Mermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range r.order {
		s := r.steps[name]
		id := mermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == r.entry:
			opener, closer = "((", "))"
		case s.kind == KindDecision:
			opener, closer = "{", "}"
		case r.terminal[name]:
			opener, closer = "([", "])"
		}

		text := name
		if s.desc != "" {
			text = fmt.Sprintf("%s<br/>%s", name, strings.ReplaceAll(s.desc, "\"", "'"))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, text, closer)

		if to, ok := r.edges[name]; ok {
			fmt.Fprintf(&sb, "    %s --> %s\n", id, mermaidID(to))
		}
		table := r.routes[name]
		for _, label := range slices.Sorted(maps.Keys(table)) {
			arrow := fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(label, "\"", "'"))
			if label == DefaultRoute {
				arrow = fmt.Sprintf("-. \"%s\" .->", label)
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", id, arrow, mermaidID(table[label]))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.Visited {
			id := mermaidID(name)
			if id == "" || seen[id] || !r.HasStep(name) {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", id)
		}
		if overlay.Current != "" && r.HasStep(overlay.Current) {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(overlay.Current))
		}
	}

	return sb.String()
}

var mermaidReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", ":", "_")

func mermaidID(name string) string {
	return mermaidReplacer.Replace(name)
}
