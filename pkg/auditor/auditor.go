// Package auditor flags contradictions across a recent window of story
// turns: characters reappearing after death, locations changing without
// travel, repeated time references, plot threads left open, and
// destruction/construction flip-flops.
//
// This is deliberately a heuristic lexical scanner, not semantic
// understanding. False positives and negatives are expected; the contract
// is determinism given identical node metadata. It never errors on
// well-formed input; malformed tags simply yield fewer findings.
package auditor

import (
	"fmt"

	"github.com/kittclouds/storykitt/pkg/narrative"
)

// FindingType categorizes a contradiction.
type FindingType string

const (
	TypeCharacter  FindingType = "character"
	TypeLocation   FindingType = "location"
	TypeTimeline   FindingType = "timeline"
	TypePlot       FindingType = "plot"
	TypeWorldState FindingType = "world_state"
	TypeInventory  FindingType = "inventory"
	TypeOther      FindingType = "other"
)

// Severity grades a finding.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// penalties are the fixed per-finding score deductions by type.
var penalties = map[FindingType]int{
	TypeCharacter:  10,
	TypeLocation:   8,
	TypeTimeline:   15,
	TypePlot:       12,
	TypeWorldState: 7,
	TypeInventory:  5,
	TypeOther:      5,
}

// Finding is one detected contradiction.
type Finding struct {
	Type         FindingType `json:"type"`
	Description  string      `json:"description"`
	Severity     Severity    `json:"severity"`
	TurnIndex    int         `json:"turnIndex"`
	SuggestedFix string      `json:"suggestedFix,omitempty"`
}

// Verdict is the auditor's scored judgment over a window.
type Verdict struct {
	IsConsistent   bool      `json:"isConsistent"`
	Findings       []Finding `json:"findings"`
	OverallScore   int       `json:"overallScore"`
	NeedsRevision  bool      `json:"needsRevision"`
	RevisionReason string    `json:"revisionReason,omitempty"`
}

// Auditor runs the five scanners. Construct once with New and reuse; the
// tag automaton is immutable after build.
type Auditor struct {
	tags *tagMatcher
}

// New builds an Auditor with the embedded tag vocabulary.
func New() (*Auditor, error) {
	tags, err := newTagMatcher()
	if err != nil {
		return nil, fmt.Errorf("build tag matcher: %w", err)
	}
	return &Auditor{tags: tags}, nil
}

// Audit examines the most recent windowSize nodes of the store, oldest
// first, and returns the scored verdict. windowSize clamps to the nodes
// available; an empty window is perfectly consistent.
func (a *Auditor) Audit(store narrative.Store, windowSize int) Verdict {
	window := store.Recent(windowSize)
	if len(window) == 0 {
		return Verdict{IsConsistent: true, OverallScore: 100}
	}

	var findings []Finding
	findings = append(findings, a.scanCharacters(window)...)
	findings = append(findings, a.scanLocations(window)...)
	findings = append(findings, scanTimeline(window)...)
	findings = append(findings, a.scanPlotThreads(window)...)
	findings = append(findings, a.scanWorldState(window)...)

	score := 100
	criticals, majors := 0, 0
	for _, f := range findings {
		score -= penalties[f.Type]
		switch f.Severity {
		case SeverityCritical:
			criticals++
		case SeverityMajor:
			majors++
		}
	}
	if score < 0 {
		score = 0
	}

	v := Verdict{
		IsConsistent: len(findings) == 0,
		Findings:     findings,
		OverallScore: score,
	}
	if criticals > 0 || majors > 2 || score < 60 {
		v.NeedsRevision = true
		v.RevisionReason = fmt.Sprintf(
			"%d critical and %d major consistency findings (score %d)",
			criticals, majors, score)
	}
	return v
}
