package catalog

import (
	"sort"
	"sync"
)

var (
	mu      sync.RWMutex
	parsers = make(map[string]Parser)
)

// Register makes a Parser available under its Format().
func Register(p Parser) {
	mu.Lock()
	defer mu.Unlock()
	parsers[p.Format()] = p
}

// Get returns the Parser registered for format.
func Get(format string) (Parser, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := parsers[format]
	return p, ok
}

// Formats lists the registered format names in sorted order.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(parsers))
	for name := range parsers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
