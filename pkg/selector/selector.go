// Package selector provides read-only heuristics over an element catalog:
// which elements to introduce next, which to recall for the current
// context, and which foreshadowing hints apply. Result sizes are bounded so
// the generation loop never floods its prompt context.
//
// Every operation is a pure read over a Catalog snapshot.
package selector

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kittclouds/storykitt/pkg/elements"
)

// staleDays is the recency sort key for elements never referenced.
const staleDays = 999

// descriptionLimit bounds each description line in AbbreviatedContext.
const descriptionLimit = 100

// Criteria filters ReadyForIntroduction candidates.
type Criteria struct {
	Kind            elements.Kind // zero value matches every kind
	Subtype         string        // role / locationType / twistType / ...
	MinImportance   int
	MaxImportance   int // 0 means no upper bound
	RequiredTags    []string
	MaxDaysSinceRef int // 0 means no recency bound
}

// Selector evaluates catalog heuristics. Now is injectable for tests.
type Selector struct {
	Now func() time.Time
}

// New creates a Selector with the wall clock.
func New() *Selector {
	return &Selector{Now: time.Now}
}

func (s *Selector) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// daysSince computes whole days since a reference stamp; nil is very stale.
func (s *Selector) daysSince(t *time.Time) int {
	if t == nil {
		return staleDays
	}
	d := int(s.now().Sub(*t).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d
}

// ReadyForIntroduction returns up to limit elements that are still unmet or
// only introduced, match the criteria, and carry the highest importance.
func (s *Selector) ReadyForIntroduction(c elements.Catalog, crit Criteria, limit int) []elements.Snapshot {
	var out []elements.Snapshot
	for _, snap := range c.Snapshots() {
		if snap.Core.Status != elements.StatusUnmet && snap.Core.Status != elements.StatusIntroduced {
			continue
		}
		if !s.matches(snap, crit) {
			continue
		}
		out = append(out, snap)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Core.Importance > out[j].Core.Importance
	})
	return truncate(out, limit)
}

func (s *Selector) matches(snap elements.Snapshot, crit Criteria) bool {
	if crit.Kind != "" && snap.Kind != crit.Kind {
		return false
	}
	if crit.Subtype != "" && !strings.EqualFold(snap.Subtype, crit.Subtype) {
		return false
	}
	if snap.Core.Importance < crit.MinImportance {
		return false
	}
	if crit.MaxImportance > 0 && snap.Core.Importance > crit.MaxImportance {
		return false
	}
	if crit.MaxDaysSinceRef > 0 && s.daysSince(snap.Core.LastReferenced) > crit.MaxDaysSinceRef {
		return false
	}
	for _, tag := range crit.RequiredTags {
		if !containsFold(snap.Core.Tags, tag) {
			return false
		}
	}
	return true
}

// ForReference returns up to limit already-known elements whose name, tags
// or description share a token with the context text, most important and
// freshest first.
func (s *Selector) ForReference(c elements.Catalog, contextText string, limit int) []elements.Snapshot {
	ctx := tokenSet(contextText)
	if len(ctx) == 0 {
		return nil
	}

	var out []elements.Snapshot
	for _, snap := range c.Snapshots() {
		if snap.Core.Status == elements.StatusUnmet {
			continue
		}
		if !s.mentions(ctx, snap) {
			continue
		}
		out = append(out, snap)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Core.Importance != out[j].Core.Importance {
			return out[i].Core.Importance > out[j].Core.Importance
		}
		return s.daysSince(out[i].Core.LastReferenced) < s.daysSince(out[j].Core.LastReferenced)
	})
	return truncate(out, limit)
}

func (s *Selector) mentions(ctx map[string]bool, snap elements.Snapshot) bool {
	if sharesToken(ctx, snap.Core.Name) {
		return true
	}
	for _, tag := range snap.Core.Tags {
		if sharesToken(ctx, tag) {
			return true
		}
	}
	return sharesToken(ctx, snap.Core.Description)
}

// ForeshadowingOpportunities returns unresolved hints whose text shares a
// token with the context, most subtle first.
func (s *Selector) ForeshadowingOpportunities(c elements.Catalog, contextText string) []elements.Hint {
	ctx := tokenSet(contextText)
	if len(ctx) == 0 {
		return nil
	}

	var out []elements.Hint
	for _, h := range c.Hints {
		if h.Status == elements.HintResolved {
			continue
		}
		if !sharesToken(ctx, h.Hint) {
			continue
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Subtlety < out[j].Subtlety
	})
	return out
}

// RelatedElements returns the elements referenced by the target's
// relationship or connection list. Unknown ids are skipped.
func (s *Selector) RelatedElements(c elements.Catalog, id string) []elements.Snapshot {
	target := c.Element(id)
	if target == nil {
		return nil
	}

	var out []elements.Snapshot
	for _, rel := range target.Related {
		if snap := c.Element(rel); snap != nil {
			out = append(out, *snap)
		}
	}
	return out
}

// AbbreviatedContext renders a short text block for prompt injection:
// up to maxElements recently-relevant elements plus up to 5 elements ready
// for introduction, descriptions truncated. Returns "" when the catalog
// offers nothing for this context.
func (s *Selector) AbbreviatedContext(c elements.Catalog, contextText string, maxElements int) string {
	relevant := s.ForReference(c, contextText, maxElements)
	ready := s.ReadyForIntroduction(c, Criteria{}, 5)

	if len(relevant) == 0 && len(ready) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Story elements in play:\n")
	if len(relevant) > 0 {
		b.WriteString("Recently relevant:\n")
		for _, snap := range relevant {
			writeElementLine(&b, snap)
		}
	}
	if len(ready) > 0 {
		b.WriteString("Available to introduce:\n")
		for _, snap := range ready {
			writeElementLine(&b, snap)
		}
	}
	return b.String()
}

func writeElementLine(b *strings.Builder, snap elements.Snapshot) {
	desc := snap.Core.Description
	if len(desc) > descriptionLimit {
		cut := descriptionLimit - 3
		for cut > 0 && !utf8.RuneStart(desc[cut]) {
			cut--
		}
		desc = desc[:cut] + "..."
	}
	if desc == "" {
		fmt.Fprintf(b, "- %s (%s)\n", snap.Core.Name, snap.Kind)
		return
	}
	fmt.Fprintf(b, "- %s (%s): %s\n", snap.Core.Name, snap.Kind, desc)
}

func truncate(in []elements.Snapshot, limit int) []elements.Snapshot {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
