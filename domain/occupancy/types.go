package occupancy

import (
	"fmt"
	"strings"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

// DefaultSteps is the simulation horizon used when none is configured. It is
// independent of the length of the observed record.
const DefaultSteps = 200

// Params holds the three probabilities of the presence/absence model
type Params struct {
	Colonization     float64 `json:"c"` // absent -> present
	Extinction       float64 `json:"e"` // present -> absent
	MeasurementError float64 `json:"m"` // present reported as absent
}

// Validate checks that every rate is a probability
func (p Params) Validate() error {
	if err := core.CheckProbability("e", p.Extinction); err != nil {
		return err
	}
	if err := core.CheckProbability("c", p.Colonization); err != nil {
		return err
	}
	return core.CheckProbability("m", p.MeasurementError)
}

func (p Params) String() string {
	return fmt.Sprintf("e=%.4f c=%.4f m=%.4f", p.Extinction, p.Colonization, p.MeasurementError)
}

// Sequence is a presence/absence record, one entry per time step
type Sequence []bool

// Len returns the number of time steps
func (s Sequence) Len() int {
	return len(s)
}

// Count returns the number of steps marked present
func (s Sequence) Count() int {
	n := 0
	for _, v := range s {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether two sequences match step by step
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the sequence as a run of 0/1 characters
func (s Sequence) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, v := range s {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Floats converts the sequence to 0/1 values
func (s Sequence) Floats() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v {
			out[i] = 1
		}
	}
	return out
}

// ParseSequence reads a presence/absence record. Accepted forms are a compact
// run of 0/1 characters ("000111") or separated tokens ("0,1,1", "true false",
// "T F").
func ParseSequence(s string) (Sequence, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, core.NewConfigError("sequence", "empty")
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 1 && strings.Trim(fields[0], "01") == "" {
		fields = strings.Split(fields[0], "")
	}

	seq := make(Sequence, 0, len(fields))
	for i, f := range fields {
		v, err := parseFlag(f)
		if err != nil {
			return nil, core.NewConfigError("sequence", fmt.Sprintf("token %d: %v", i, err))
		}
		seq = append(seq, v)
	}
	return seq, nil
}

// ParseFlag reads a single presence/absence token
func ParseFlag(token string) (bool, error) {
	return parseFlag(token)
}

func parseFlag(token string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "1", "t", "true", "yes", "present":
		return true, nil
	case "0", "f", "false", "no", "absent":
		return false, nil
	}
	return false, fmt.Errorf("unrecognised value %q", token)
}
