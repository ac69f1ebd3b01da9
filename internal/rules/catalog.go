package rules

import (
	"fmt"
	"strings"
)

// Catalog is an ordered, append-only set of rules. Registration order is the
// order rules are evaluated and listed in reports.
type Catalog struct {
	rules []*Rule
	index map[string]int
}

// NewCatalog creates a catalog holding rules in the given order.
func NewCatalog(rules ...*Rule) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(rules))}
	for _, r := range rules {
		if err := c.Register(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register appends r. Invalid rules and duplicate ids are rejected.
func (c *Catalog) Register(r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if _, ok := c.index[r.ID]; ok {
		return fmt.Errorf("rule %q is already registered", r.ID)
	}
	c.index[r.ID] = len(c.rules)
	c.rules = append(c.rules, r)
	return nil
}

// Rules returns the registered rules in order.
func (c *Catalog) Rules() []*Rule {
	if c == nil {
		return nil
	}
	return append([]*Rule(nil), c.rules...)
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Get looks up a rule by id.
func (c *Catalog) Get(id string) (*Rule, bool) {
	i, ok := c.Index(id)
	if !ok {
		return nil, false
	}
	return c.rules[i], true
}

// Index returns the position of the rule with the given id.
func (c *Catalog) Index(id string) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.index[id]
	return i, ok
}

// Select returns a catalog restricted to ids, keeping catalog order.
// An empty ids list selects every rule.
func (c *Catalog) Select(ids []string) (*Catalog, error) {
	if len(ids) == 0 {
		return NewCatalog(c.Rules()...)
	}

	wanted := make(map[string]struct{}, len(ids))
	var unknown []string
	for _, id := range ids {
		if _, ok := c.Index(id); !ok {
			unknown = append(unknown, id)
			continue
		}
		wanted[id] = struct{}{}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown rule id(s): %s", strings.Join(unknown, ", "))
	}

	var selected []*Rule
	for _, r := range c.rules {
		if _, ok := wanted[r.ID]; ok {
			selected = append(selected, r)
		}
	}
	return NewCatalog(selected...)
}
