package auditor

import (
	"strings"

	"github.com/coregx/ahocorasick"
)

// tagClass buckets the event-tag vocabulary the scanners react to.
type tagClass int

const (
	classDeath tagClass = iota
	classRevival
	classTravel
	classPlotOpen
	classPlotClose
	classDestruction
	classConstruction
)

// tagEntry maps a lowercase stem to its class. Stems match at word start,
// so "destroy" also covers "destroyed" and "destroys", the way the verb
// lexicon stems work.
type tagEntry struct {
	stem  string
	class tagClass
}

var tagEntries = []tagEntry{
	// Death
	{"death", classDeath},
	{"died", classDeath},
	{"dies", classDeath},
	{"killed", classDeath},
	{"slain", classDeath},
	{"perish", classDeath},

	// Revival
	{"revive", classRevival},
	{"revival", classRevival},
	{"resurrect", classRevival},
	{"raised from the dead", classRevival},
	{"returns to life", classRevival},

	// Travel / movement
	{"travel", classTravel},
	{"move", classTravel},
	{"moved", classTravel},
	{"teleport", classTravel},
	{"portal", classTravel},
	{"journey", classTravel},
	{"depart", classTravel},
	{"arrive", classTravel},
	{"ride", classTravel},
	{"sail", classTravel},
	{"march", classTravel},

	// Plot threads
	{"quest", classPlotOpen},
	{"mission", classPlotOpen},
	{"goal", classPlotOpen},
	{"objective", classPlotOpen},
	{"task", classPlotOpen},
	{"complete", classPlotClose},
	{"finish", classPlotClose},
	{"resolve", classPlotClose},
	{"fulfill", classPlotClose},
	{"accomplish", classPlotClose},

	// World state
	{"destroy", classDestruction},
	{"destruct", classDestruction},
	{"demolish", classDestruction},
	{"raze", classDestruction},
	{"ruin", classDestruction},
	{"shatter", classDestruction},
	{"construct", classConstruction},
	{"build", classConstruction},
	{"built", classConstruction},
	{"rebuild", classConstruction},
	{"rebuilt", classConstruction},
	{"restore", classConstruction},
	{"erect", classConstruction},
	{"repair", classConstruction},
}

// tagMatcher classifies event tags with a single Aho-Corasick automaton
// over all stems.
type tagMatcher struct {
	ac      *ahocorasick.Automaton
	classes []tagClass // pattern index -> class
}

func newTagMatcher() (*tagMatcher, error) {
	patterns := make([]string, len(tagEntries))
	classes := make([]tagClass, len(tagEntries))
	for i, e := range tagEntries {
		patterns[i] = e.stem
		classes[i] = e.class
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	return &tagMatcher{ac: ac, classes: classes}, nil
}

// classify returns the set of classes present in a tag. Matches must start
// at a word boundary so "move" does not fire inside "removed".
func (m *tagMatcher) classify(tag string) map[tagClass]bool {
	haystack := strings.ToLower(tag)
	matches := m.ac.FindAllOverlapping([]byte(haystack))
	if len(matches) == 0 {
		return nil
	}

	out := make(map[tagClass]bool)
	for _, match := range matches {
		if match.Start > 0 {
			prev := haystack[match.Start-1]
			if prev != ' ' && prev != '_' && prev != '-' && prev != ':' && prev != '.' {
				continue
			}
		}
		out[m.classes[match.PatternID]] = true
	}
	return out
}

// classifyAll folds classify over a tag list.
func (m *tagMatcher) classifyAll(tags []string) map[tagClass]bool {
	out := make(map[tagClass]bool)
	for _, tag := range tags {
		for class := range m.classify(tag) {
			out[class] = true
		}
	}
	return out
}
