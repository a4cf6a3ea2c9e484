// Package summary reduces presence/absence sequences to short vectors of
// real numbers so that simulated and observed data of different lengths can
// be compared.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
)

// Statistic reduces a sequence to a single number
type Statistic func(occupancy.Sequence) float64

// Vector is an ordered list of statistic values
type Vector []float64

// Named pairs a statistic with the name used in configuration and reports
type Named struct {
	Name string
	Fn   Statistic
}

// Occupancy is the fraction of steps marked present
func Occupancy(seq occupancy.Sequence) float64 {
	if len(seq) == 0 {
		return 0
	}
	return float64(seq.Count()) / float64(len(seq))
}

// TransitionRate is the fraction of consecutive pairs whose states differ
func TransitionRate(seq occupancy.Sequence) float64 {
	if len(seq) < 2 {
		return 0
	}
	changes := 0
	for t := 1; t < len(seq); t++ {
		if seq[t] != seq[t-1] {
			changes++
		}
	}
	return float64(changes) / float64(len(seq)-1)
}

// Colonizations counts absent -> present changes
func Colonizations(seq occupancy.Sequence) float64 {
	n := 0
	for t := 1; t < len(seq); t++ {
		if !seq[t-1] && seq[t] {
			n++
		}
	}
	return float64(n)
}

// Extinctions counts present -> absent changes
func Extinctions(seq occupancy.Sequence) float64 {
	n := 0
	for t := 1; t < len(seq); t++ {
		if seq[t-1] && !seq[t] {
			n++
		}
	}
	return float64(n)
}

// ColonizationRate is the number of colonizations per absent step that had a
// successor, i.e. the empirical estimate of c.
func ColonizationRate(seq occupancy.Sequence) float64 {
	opportunities := 0
	for t := 1; t < len(seq); t++ {
		if !seq[t-1] {
			opportunities++
		}
	}
	if opportunities == 0 {
		return 0
	}
	return Colonizations(seq) / float64(opportunities)
}

// ExtinctionRate is the number of extinctions per present step that had a
// successor.
func ExtinctionRate(seq occupancy.Sequence) float64 {
	opportunities := 0
	for t := 1; t < len(seq); t++ {
		if seq[t-1] {
			opportunities++
		}
	}
	if opportunities == 0 {
		return 0
	}
	return Extinctions(seq) / float64(opportunities)
}

var registry = map[string]Statistic{
	"occupancy":         Occupancy,
	"transition_rate":   TransitionRate,
	"colonizations":     Colonizations,
	"extinctions":       Extinctions,
	"colonization_rate": ColonizationRate,
	"extinction_rate":   ExtinctionRate,
}

// DefaultNames is the statistic list used when none is configured
var DefaultNames = []string{"occupancy", "transition_rate"}

// Names lists the registered statistics in alphabetical order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a registered statistic by name
func Lookup(name string) (Named, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	fn, ok := registry[key]
	if !ok {
		return Named{}, core.NewConfigError("statistic", fmt.Sprintf("unknown %q (known: %s)", name, strings.Join(Names(), ", ")))
	}
	return Named{Name: key, Fn: fn}, nil
}

// Resolve looks up every name in order
func Resolve(names []string) ([]Named, error) {
	if len(names) == 0 {
		return nil, core.NewConfigError("statistics", "at least one statistic is required")
	}
	out := make([]Named, 0, len(names))
	for _, name := range names {
		n, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseList resolves a comma separated statistic list
func ParseList(s string) ([]Named, error) {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return Resolve(names)
}

// Summarize applies stats to seq in order
func Summarize(seq occupancy.Sequence, stats []Named) Vector {
	out := make(Vector, len(stats))
	for i, s := range stats {
		out[i] = s.Fn(seq)
	}
	return out
}

// NamesOf returns the names of stats in order
func NamesOf(stats []Named) []string {
	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = s.Name
	}
	return names
}
