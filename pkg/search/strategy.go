package search

import (
	"fmt"
	"strings"
)

// Strategy selects how a partitioned collection is scanned.
type Strategy int

const (
	// Centralized flattens every partition and scans the result once.
	Centralized Strategy = iota
	// Sequential scans partitions one after another.
	Sequential
	// Parallel scans all partitions concurrently on the shared worker pool.
	Parallel
	// Smart picks Sequential below the size threshold and Parallel above it.
	Smart
)

// DefaultSmartThreshold is the document count at which Smart switches to Parallel.
const DefaultSmartThreshold = 1000

var strategyNames = map[Strategy]string{
	Centralized: "centralized",
	Sequential:  "sequential",
	Parallel:    "parallel",
	Smart:       "smart",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy converts a strategy name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == needle {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown search strategy %q", name)
}

// Strategies lists every strategy, in declaration order.
func Strategies() []Strategy {
	return []Strategy{Centralized, Sequential, Parallel, Smart}
}
