package template

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Catalog is a set of named message templates.
type Catalog struct {
	messages map[string]string
	expander *Expander
}

// NewCatalog creates a catalog from name to template text. The expander
// fails on missing variables unless opts say otherwise.
func NewCatalog(messages map[string]string, opts ...Option) *Catalog {
	opts = append([]Option{WithMissingAction(MissingError)}, opts...)
	return &Catalog{
		messages: maps.Clone(messages),
		expander: NewExpander(opts...),
	}
}

// With returns a copy of the catalog where overrides replace or add
// messages. Empty override texts are ignored.
func (c *Catalog) With(overrides map[string]string) *Catalog {
	next := &Catalog{messages: maps.Clone(c.messages), expander: c.expander}
	for k, v := range overrides {
		if strings.TrimSpace(v) != "" {
			next.messages[k] = v
		}
	}
	return next
}

// Text returns the raw template for name.
func (c *Catalog) Text(name string) (string, bool) {
	s, ok := c.messages[name]
	return s, ok
}

// Names returns the message names, sorted.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.messages))
}

// Render expands the template registered as name.
func (c *Catalog) Render(name string, vars Vars) (string, error) {
	s, ok := c.messages[name]
	if !ok {
		return "", fmt.Errorf("template: unknown message %q", name)
	}
	return c.expander.Expand(s, vars)
}

// Require returns an error listing the names the catalog does not define.
func (c *Catalog) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := c.messages[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("template: missing messages: %s", strings.Join(missing, ", "))
	}
	return nil
}
