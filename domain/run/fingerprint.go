package run

import (
	"fmt"
	"strings"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

// Fingerprint identifies the inputs of a run. Two runs with the same
// fingerprint draw the same samples and accept the same indexes.
type Fingerprint struct {
	Seed        uint64    `json:"seed"`
	CodeVersion string    `json:"code_version"`
	Hash        core.Hash `json:"hash"`
}

// CodeVersion is bumped whenever a change alters the draws made for a seed
const CodeVersion = "abc-1"

// NewFingerprint hashes every setting that influences the posterior. Workers
// is left out: the draws do not depend on it.
func NewFingerprint(s Settings) Fingerprint {
	hash := core.HashFields(
		"code", CodeVersion,
		"seed", fmt.Sprintf("%d", s.Seed),
		"samples", fmt.Sprintf("%d", s.Samples),
		"threshold", fmt.Sprintf("%g", s.Threshold),
		"steps", fmt.Sprintf("%d", s.Steps),
		"statistics", strings.Join(s.Statistics, ","),
		"distance", s.Distance,
		"prior_e", s.PriorE,
		"prior_c", s.PriorC,
		"prior_m", s.PriorM,
		"empirical", s.Empirical,
	)
	return Fingerprint{Seed: s.Seed, CodeVersion: CodeVersion, Hash: hash}
}
