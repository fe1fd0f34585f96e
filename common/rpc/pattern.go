package rpc

import (
	"fmt"
	"slices"
)

// Pattern names an RPC operation served by exactly one service queue.
type Pattern string

// Topic names an event. A topic may have any number of subscribers.
type Topic string

// Catalogue is the set of patterns a service queue serves. Servers refuse to
// start unless every pattern in their catalogue has exactly one handler.
type Catalogue struct {
	Queue    string
	Patterns []Pattern
}

// Has reports whether p belongs to the catalogue.
func (c Catalogue) Has(p Pattern) bool {
	return slices.Contains(c.Patterns, p)
}

// Validate checks the catalogue is well formed.
func (c Catalogue) Validate() error {
	if c.Queue == "" {
		return fmt.Errorf("catalogue has no queue")
	}
	seen := make(map[Pattern]struct{}, len(c.Patterns))
	for _, p := range c.Patterns {
		if p == "" {
			return fmt.Errorf("catalogue %s: empty pattern", c.Queue)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("catalogue %s: pattern %q listed twice", c.Queue, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}
