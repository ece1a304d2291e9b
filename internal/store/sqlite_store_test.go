package store

import (
	"reflect"
	"testing"
	"time"

	"github.com/kittclouds/storykitt/pkg/elements"
	"github.com/kittclouds/storykitt/pkg/membank"
	"github.com/kittclouds/storykitt/pkg/narrative"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleStory(t *testing.T) narrative.Store {
	t.Helper()
	s := narrative.NewStore(t0)
	s, first, err := s.Append("", narrative.Draft{
		Title:   "Opening",
		Content: "The village slept under snow.",
		Tags:    []string{"opening"},
		Metadata: narrative.Metadata{
			Location:   "Millbrook",
			Characters: []string{"Elara"},
		},
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	s, _, err = s.Fork(first.ID, "What If", "alternate opening", narrative.Draft{
		Content: "The village burned instead.",
	}, t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadStoryEmpty(t *testing.T) {
	db := newTestStore(t)

	story, err := db.LoadStory()
	if err != nil {
		t.Fatal(err)
	}
	if story != nil {
		t.Errorf("empty database returned a story: %+v", story)
	}
}

func TestStoryRoundTrip(t *testing.T) {
	db := newTestStore(t)
	want := sampleStory(t)

	if err := db.SaveStory(want); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadStory()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("story missing after save")
	}

	if got.TotalNodes != want.TotalNodes || got.TotalWords != want.TotalWords || got.Version != want.Version {
		t.Errorf("totals drifted: got %d/%d/%d want %d/%d/%d",
			got.TotalNodes, got.TotalWords, got.Version,
			want.TotalNodes, want.TotalWords, want.Version)
	}
	if got.CurrentNodeID != want.CurrentNodeID || got.CurrentBranchID != want.CurrentBranchID {
		t.Errorf("cursor drifted: %s/%s", got.CurrentNodeID, got.CurrentBranchID)
	}
	if len(got.Nodes) != len(want.Nodes) || len(got.Branches) != len(want.Branches) {
		t.Fatalf("counts: %d nodes %d branches", len(got.Nodes), len(got.Branches))
	}
	for i := range want.Nodes {
		w, g := want.Nodes[i], got.Nodes[i]
		if g.ID != w.ID || g.URI != w.URI || g.ParentID != w.ParentID ||
			g.BranchID != w.BranchID || g.Sequence != w.Sequence ||
			g.Content != w.Content || g.WordCount != w.WordCount {
			t.Errorf("node %d drifted: %+v", i, g)
		}
		if !g.CreatedAt.Equal(w.CreatedAt) {
			t.Errorf("node %d createdAt = %v, want %v", i, g.CreatedAt, w.CreatedAt)
		}
		if !reflect.DeepEqual(g.Tags, w.Tags) || !reflect.DeepEqual(g.Metadata, w.Metadata) {
			t.Errorf("node %d tags/metadata drifted", i)
		}
	}
	for i := range want.Branches {
		w, g := want.Branches[i], got.Branches[i]
		if g.ID != w.ID || g.Name != w.Name || g.ParentNodeID != w.ParentNodeID ||
			g.Reason != w.Reason || g.IsActive != w.IsActive {
			t.Errorf("branch %d drifted: %+v", i, g)
		}
	}

	// A second save replaces, not appends.
	if err := db.SaveStory(want); err != nil {
		t.Fatal(err)
	}
	again, err := db.LoadStory()
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Nodes) != len(want.Nodes) {
		t.Errorf("resave duplicated nodes: %d", len(again.Nodes))
	}
}

func TestBanksRoundTrip(t *testing.T) {
	db := newTestStore(t)
	m := &membank.Manager{Now: func() time.Time { return t0 }}

	banks, err := m.Create(membank.Store{}, "main", map[string]any{"gold": "12", "ally": "Theron"}, membank.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	banks, err = m.Create(banks, "branch_001", map[string]any{"gold": "0"}, membank.CreateOptions{Compress: true})
	if err != nil {
		t.Fatal(err)
	}

	if err := db.SaveBanks(banks); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadBanks()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("banks missing after save")
	}

	if got.TotalBanks != banks.TotalBanks || got.TotalSize != banks.TotalSize || got.ActiveBanks != banks.ActiveBanks {
		t.Errorf("stats drifted: %+v", got)
	}
	if len(got.Banks) != 2 || got.Banks[0].BranchID != "main" || got.Banks[1].BranchID != "branch_001" {
		t.Fatalf("bank order drifted: %+v", got.Banks)
	}
	if !reflect.DeepEqual(got.Banks[0].Data, banks.Banks[0].Data) {
		t.Errorf("bank data drifted: %+v", got.Banks[0].Data)
	}
	if got.Banks[0].Checksum != banks.Banks[0].Checksum || got.Banks[0].Size != banks.Banks[0].Size {
		t.Errorf("checksum/size drifted")
	}
	if !got.Banks[1].Compressed {
		t.Errorf("compressed flag lost")
	}
	if !got.Banks[0].CreatedAt.Equal(t0) || !got.Banks[0].LastAccessed.Equal(t0) {
		t.Errorf("timestamps drifted: %+v", got.Banks[0])
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	db := newTestStore(t)

	catalog, err := elements.Catalog{}.Merge(elements.Catalog{
		Characters: []elements.Character{
			{Core: elements.Core{ID: "elara", Name: "Elara", Importance: 8}, Role: "protagonist"},
			{Core: elements.Core{ID: "theron", Name: "Theron", Importance: 6}},
		},
		Locations: []elements.Location{
			{Core: elements.Core{ID: "millbrook", Name: "Millbrook", Importance: 4}, LocationType: "village"},
		},
		Hints: []elements.Hint{
			{ID: "h1", TargetElementID: "elara", Hint: "the locket glints", Subtlety: 2},
		},
	}, t0)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.SaveCatalog(catalog); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("catalog missing after save")
	}

	if got.TotalElements != 3 {
		t.Errorf("total = %d, want 3", got.TotalElements)
	}
	if len(got.Characters) != 2 || got.Characters[0].ID != "elara" || got.Characters[1].ID != "theron" {
		t.Errorf("character order drifted: %+v", got.Characters)
	}
	if got.Characters[0].Role != "protagonist" {
		t.Errorf("variant field lost: %+v", got.Characters[0])
	}
	if len(got.Locations) != 1 || got.Locations[0].LocationType != "village" {
		t.Errorf("location drifted: %+v", got.Locations)
	}
	if len(got.Hints) != 1 || got.Hints[0].Status != elements.HintPlanned {
		t.Errorf("hint drifted: %+v", got.Hints)
	}
	if !got.LastUpdated.Equal(t0) {
		t.Errorf("lastUpdated = %v", got.LastUpdated)
	}
}

func TestExportImport(t *testing.T) {
	src := newTestStore(t)
	story := sampleStory(t)
	if err := src.SaveStory(story); err != nil {
		t.Fatal(err)
	}
	catalog, err := elements.Catalog{}.AddCharacter(elements.Character{
		Core: elements.Core{ID: "elara", Name: "Elara", Importance: 8},
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.SaveCatalog(catalog); err != nil {
		t.Fatal(err)
	}

	blob, err := src.Export()
	if err != nil {
		t.Fatal(err)
	}

	dst := newTestStore(t)
	if err := dst.Import(blob); err != nil {
		t.Fatal(err)
	}

	gotStory, err := dst.LoadStory()
	if err != nil {
		t.Fatal(err)
	}
	if gotStory == nil || gotStory.TotalNodes != story.TotalNodes {
		t.Errorf("story not imported: %+v", gotStory)
	}
	gotCatalog, err := dst.LoadCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if gotCatalog == nil || gotCatalog.TotalElements != 1 {
		t.Errorf("catalog not imported: %+v", gotCatalog)
	}
	gotBanks, err := dst.LoadBanks()
	if err != nil {
		t.Fatal(err)
	}
	if gotBanks != nil {
		t.Errorf("phantom banks: %+v", gotBanks)
	}
}

func TestNodeEmbeddings(t *testing.T) {
	db := newTestStore(t)

	vec := func(fill float32) []float32 {
		v := make([]float32, EmbeddingDim)
		for i := range v {
			v[i] = fill
		}
		return v
	}

	if err := db.UpsertNodeEmbedding("narrative_001", vec(0.1)); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertNodeEmbedding("narrative_002", vec(0.9)); err != nil {
		t.Fatal(err)
	}
	// Replacing an embedding must not duplicate the row.
	if err := db.UpsertNodeEmbedding("narrative_001", vec(0.2)); err != nil {
		t.Fatal(err)
	}

	got, err := db.SimilarNodes(vec(0.21), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %+v, want 2", got)
	}
	if got[0].NodeID != "narrative_001" {
		t.Errorf("nearest = %s, want narrative_001", got[0].NodeID)
	}
	if got[0].Distance > got[1].Distance {
		t.Errorf("results not ordered by distance: %+v", got)
	}

	if err := db.UpsertNodeEmbedding("bad", make([]float32, 3)); err == nil {
		t.Error("expected dimension error")
	}
}
