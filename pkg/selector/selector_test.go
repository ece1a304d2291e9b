package selector

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/storykitt/pkg/elements"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSelector() *Selector {
	return &Selector{Now: func() time.Time { return t0 }}
}

func testCatalog(t *testing.T) elements.Catalog {
	t.Helper()
	recent := t0.Add(-2 * 24 * time.Hour)
	stale := t0.Add(-40 * 24 * time.Hour)

	c, err := elements.Catalog{}.Merge(elements.Catalog{
		Characters: []elements.Character{
			{Core: elements.Core{ID: "elara", Name: "Elara", Description: "a wandering healer with a silver locket",
				Status: elements.StatusIntroduced, Importance: 9, Tags: []string{"healer"}, LastReferenced: &recent},
				Role: "protagonist", Relationships: []string{"theron"}},
			{Core: elements.Core{ID: "theron", Name: "Theron", Description: "a retired soldier",
				Status: elements.StatusUnmet, Importance: 7}, Role: "mentor"},
			{Core: elements.Core{ID: "mira", Name: "Mira", Description: "an innkeeper who hears everything",
				Status: elements.StatusDeveloped, Importance: 5, LastReferenced: &stale}},
		},
		Locations: []elements.Location{
			{Core: elements.Core{ID: "millbrook", Name: "Millbrook", Description: "a sleepy river village",
				Status: elements.StatusIntroduced, Importance: 4, Tags: []string{"village"}}},
		},
		Hints: []elements.Hint{
			{ID: "h1", TargetElementID: "elara", Hint: "the locket glints when danger is near",
				Subtlety: 2, Status: elements.HintPlanted},
			{ID: "h2", TargetElementID: "theron", Hint: "an old locket engraving matches his ring",
				Subtlety: 7, Status: elements.HintPlanned},
			{ID: "h3", TargetElementID: "elara", Hint: "the locket opens at last",
				Subtlety: 5, Status: elements.HintResolved},
		},
	}, t0)
	require.NoError(t, err)
	return c
}

func TestReadyForIntroduction(t *testing.T) {
	s := newTestSelector()
	c := testCatalog(t)

	got := s.ReadyForIntroduction(c, Criteria{}, 10)
	require.Len(t, got, 3, "unmet and introduced qualify, developed does not")
	assert.Equal(t, "elara", got[0].Core.ID, "highest importance first")
	assert.Equal(t, "theron", got[1].Core.ID)
	assert.Equal(t, "millbrook", got[2].Core.ID)

	limited := s.ReadyForIntroduction(c, Criteria{}, 2)
	assert.Len(t, limited, 2)
}

func TestReadyForIntroductionCriteria(t *testing.T) {
	s := newTestSelector()
	c := testCatalog(t)

	byKind := s.ReadyForIntroduction(c, Criteria{Kind: elements.KindLocation}, 10)
	require.Len(t, byKind, 1)
	assert.Equal(t, "millbrook", byKind[0].Core.ID)

	bySubtype := s.ReadyForIntroduction(c, Criteria{Subtype: "mentor"}, 10)
	require.Len(t, bySubtype, 1)
	assert.Equal(t, "theron", bySubtype[0].Core.ID)

	byImportance := s.ReadyForIntroduction(c, Criteria{MinImportance: 8}, 10)
	require.Len(t, byImportance, 1)
	assert.Equal(t, "elara", byImportance[0].Core.ID)

	byTag := s.ReadyForIntroduction(c, Criteria{RequiredTags: []string{"village"}}, 10)
	require.Len(t, byTag, 1)
	assert.Equal(t, "millbrook", byTag[0].Core.ID)
}

func TestForReference(t *testing.T) {
	s := newTestSelector()
	c := testCatalog(t)

	got := s.ForReference(c, "Elara paused at the gates of Millbrook", 10)
	require.Len(t, got, 2)
	assert.Equal(t, "elara", got[0].Core.ID, "higher importance first")
	assert.Equal(t, "millbrook", got[1].Core.ID)

	// Theron matches by name but is still unmet.
	unmet := s.ForReference(c, "Theron waited", 10)
	assert.Empty(t, unmet)

	// Stopword-only context matches nothing.
	assert.Empty(t, s.ForReference(c, "and then it was the", 10))
}

func TestForeshadowingOpportunities(t *testing.T) {
	s := newTestSelector()
	c := testCatalog(t)

	got := s.ForeshadowingOpportunities(c, "she touched the locket")
	require.Len(t, got, 2, "resolved hints are out")
	assert.Equal(t, "h1", got[0].ID, "most subtle first")
	assert.Equal(t, "h2", got[1].ID)
}

func TestRelatedElements(t *testing.T) {
	s := newTestSelector()
	c := testCatalog(t)

	got := s.RelatedElements(c, "elara")
	require.Len(t, got, 1)
	assert.Equal(t, "theron", got[0].Core.ID)

	assert.Empty(t, s.RelatedElements(c, "ghost"))
}

func TestAbbreviatedContext(t *testing.T) {
	s := newTestSelector()
	c := testCatalog(t)

	block := s.AbbreviatedContext(c, "Elara entered Millbrook", 5)
	assert.True(t, strings.HasPrefix(block, "Story elements in play:\n"))
	assert.Contains(t, block, "Recently relevant:\n")
	assert.Contains(t, block, "Available to introduce:\n")
	assert.Contains(t, block, "Elara (character)")

	empty := s.AbbreviatedContext(elements.Catalog{}, "anything at all", 5)
	assert.Equal(t, "", empty)
}

func TestAbbreviatedContextTruncatesDescriptions(t *testing.T) {
	s := newTestSelector()
	long := strings.Repeat("verylongword ", 20)
	c, err := elements.Catalog{}.AddCharacter(elements.Character{
		Core: elements.Core{ID: "x", Name: "X", Description: long, Importance: 5},
	}, t0)
	require.NoError(t, err)

	block := s.AbbreviatedContext(c, "unrelated drivel", 5)
	require.NotEmpty(t, block)
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, "- X") {
			assert.LessOrEqual(t, len(line), len("- X (character): ")+100)
			assert.Contains(t, line, "...")
		}
	}
}

func TestAbbreviatedContextTruncatesOnRuneBoundary(t *testing.T) {
	s := newTestSelector()
	long := strings.Repeat("é", 120)
	c, err := elements.Catalog{}.AddCharacter(elements.Character{
		Core: elements.Core{ID: "x", Name: "X", Description: long, Importance: 5},
	}, t0)
	require.NoError(t, err)

	block := s.AbbreviatedContext(c, "unrelated drivel", 5)
	require.NotEmpty(t, block)
	assert.True(t, utf8.ValidString(block), "truncation must not split a rune")
	assert.Contains(t, block, "...")
}

func TestTokenizeFiltersStopwords(t *testing.T) {
	tokens := tokenize("The healer said she went to the river")
	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "said")
	assert.Contains(t, tokens, "healer")
	assert.Contains(t, tokens, "river")
}
