package core

import (
	"errors"
	"math"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	valid := NewRunID()

	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{valid.String(), valid, false},
		{"  " + valid.String() + " ", valid, false},
		{"run-123", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		result, err := ParseRunID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestHashFields_Deterministic(t *testing.T) {
	a := HashFields("seed", "42", "samples", "1000")
	b := HashFields("seed", "42", "samples", "1000")
	c := HashFields("seed", "43", "samples", "1000")

	if a != b {
		t.Errorf("Hashes not identical: %s vs %s", a, b)
	}
	if a == c {
		t.Error("Different inputs produced the same hash")
	}
	if len(a.Short()) != 12 {
		t.Errorf("Expected 12-char short hash, got %q", a.Short())
	}
}

func TestCheckProbability(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		if err := CheckProbability("p", v); err != nil {
			t.Errorf("Unexpected error for %g: %v", v, err)
		}
	}
	for _, v := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		err := CheckProbability("p", v)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("Expected ErrInvalidParameter for %g, got %v", v, err)
		}
		if !IsConfigurationError(err) {
			t.Errorf("Expected configuration error for %g", v)
		}
	}
}
