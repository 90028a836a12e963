package exercise

import (
	"fmt"
	"sync"
)

// builtins are the exercises every catalog starts with
var builtins = []Pattern{
	{ID: "sa_re_ga", Name: "Sa Re Ga Ma", Level: LevelBasic, Degrees: []string{"C", "D", "E", "F"}, Beats: 2},
	{ID: "aaroh_avroh", Name: "Aaroh-Avroh", Level: LevelBasic, Degrees: []string{"C", "D", "E", "F", "E", "D", "C"}, Beats: 1.5},
	{ID: "alankar1", Name: "Alankar 1", Level: LevelBasic, Degrees: []string{"C", "E", "D", "F", "E", "G", "F", "A"}, Beats: 1},
	{ID: "meend", Name: "Meend Exercise", Level: LevelIntermediate, Degrees: []string{"C", "E", "G", "E", "C"}, Beats: 3},
	{ID: "taan", Name: "Fast Taan", Level: LevelIntermediate, Degrees: []string{"C", "D", "E", "F", "G", "A", "B", "C"}, Beats: 0.5},
}

// Catalog is an ordered set of patterns keyed by ID
type Catalog struct {
	mu       sync.RWMutex
	patterns []Pattern
	index    map[string]int
}

// NewCatalog returns a catalog holding the built-in exercises
func NewCatalog() *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, p := range builtins {
		c.index[p.ID] = len(c.patterns)
		c.patterns = append(c.patterns, p.clone())
	}
	return c
}

// Lookup returns the pattern with the given ID
func (c *Catalog) Lookup(id string) (Pattern, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %q", ErrUnknownPattern, id)
	}
	return c.patterns[i].clone(), nil
}

// All returns every pattern in registration order
func (c *Catalog) All() []Pattern {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Pattern, len(c.patterns))
	for i, p := range c.patterns {
		out[i] = p.clone()
	}
	return out
}

// Add registers a custom pattern. Patterns without a level are LevelCustom.
func (c *Catalog) Add(p Pattern) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPattern)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Level == "" {
		p.Level = LevelCustom
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[p.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePattern, p.ID)
	}
	c.index[p.ID] = len(c.patterns)
	c.patterns = append(c.patterns, p.clone())
	return nil
}
