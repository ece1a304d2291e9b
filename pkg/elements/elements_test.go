package elements

import (
	"testing"
	"time"

	"github.com/kittclouds/storykitt/pkg/fault"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func character(id, name string, importance int) Character {
	return Character{Core: Core{ID: id, Name: name, Importance: importance}}
}

func TestMergeUpsertsAndCountsTotals(t *testing.T) {
	c, err := Catalog{}.Merge(Catalog{
		Characters: []Character{character("elara", "Elara", 8)},
		Locations:  []Location{{Core: Core{ID: "millbrook", Name: "Millbrook", Importance: 6}}},
	}, t0)
	if err != nil {
		t.Fatal(err)
	}

	if c.TotalElements != 2 {
		t.Errorf("total = %d, want 2", c.TotalElements)
	}
	if !c.LastUpdated.Equal(t0) {
		t.Errorf("lastUpdated = %v", c.LastUpdated)
	}

	// Re-merging the same updates changes nothing.
	again, err := c.Merge(Catalog{
		Characters: []Character{character("elara", "Elara", 8)},
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if again.TotalElements != 2 || len(again.Characters) != 1 {
		t.Errorf("merge not idempotent: total=%d characters=%d", again.TotalElements, len(again.Characters))
	}
}

func TestMergeReplacesByID(t *testing.T) {
	c, err := Catalog{}.AddCharacter(character("elara", "Elara", 8), t0)
	if err != nil {
		t.Fatal(err)
	}

	updated := character("elara", "Elara the Grey", 9)
	c, err = c.AddCharacter(updated, t0)
	if err != nil {
		t.Fatal(err)
	}

	if len(c.Characters) != 1 {
		t.Fatalf("expected 1 character, got %d", len(c.Characters))
	}
	if c.Characters[0].Name != "Elara the Grey" || c.Characters[0].Importance != 9 {
		t.Errorf("replace by id failed: %+v", c.Characters[0].Core)
	}
}

func TestMergeValidation(t *testing.T) {
	_, err := Catalog{}.Merge(Catalog{
		Characters: []Character{character("x", "", 5)},
	}, t0)
	if !fault.IsValidation(err) {
		t.Errorf("blank name: expected ValidationError, got %v", err)
	}

	_, err = Catalog{}.Merge(Catalog{
		Characters: []Character{character("x", "X", 11)},
	}, t0)
	if !fault.IsValidation(err) {
		t.Errorf("importance 11: expected ValidationError, got %v", err)
	}

	// Zero importance defaults rather than failing.
	c, err := Catalog{}.AddCharacter(character("y", "Y", 0), t0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Characters[0].Importance != 5 {
		t.Errorf("importance default = %d, want 5", c.Characters[0].Importance)
	}
	if c.Characters[0].Status != StatusUnmet {
		t.Errorf("status default = %q, want %q", c.Characters[0].Status, StatusUnmet)
	}
}

func TestEnsureIDGeneratesWhenBlank(t *testing.T) {
	c, err := Catalog{}.AddCharacter(character("", "Nameless", 3), t0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Characters[0].ID == "" {
		t.Error("expected generated id")
	}
	if EnsureID("fixed") != "fixed" {
		t.Error("caller id must win")
	}
}

func TestAdvanceStatusForwardOnly(t *testing.T) {
	c, err := Catalog{}.AddCharacter(character("elara", "Elara", 8), t0)
	if err != nil {
		t.Fatal(err)
	}

	c, err = c.AdvanceStatus("elara", StatusIntroduced, t0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Characters[0].Status != StatusIntroduced {
		t.Errorf("status = %q", c.Characters[0].Status)
	}
	if c.Characters[0].LastReferenced == nil || !c.Characters[0].LastReferenced.Equal(t0) {
		t.Errorf("lastReferenced not stamped")
	}

	// Same status is a touch, not a regression.
	later := t0.Add(time.Hour)
	c, err = c.AdvanceStatus("elara", StatusIntroduced, later)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Characters[0].LastReferenced.Equal(later) {
		t.Errorf("touch did not refresh lastReferenced")
	}

	c, err = c.AdvanceStatus("elara", StatusResolved, later)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.AdvanceStatus("elara", StatusDeveloped, later)
	if !fault.IsValidation(err) {
		t.Errorf("regression: expected ValidationError, got %v", err)
	}

	_, err = c.AdvanceStatus("nobody", StatusIntroduced, later)
	if !fault.IsNotFound(err) {
		t.Errorf("unknown id: expected NotFoundError, got %v", err)
	}
}

func TestAdvanceHintStatus(t *testing.T) {
	c, err := Catalog{}.AddHint(Hint{
		ID:              "h1",
		TargetElementID: "elara",
		Hint:            "a silver locket glints in the dark",
		Subtlety:        3,
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Hints[0].Status != HintPlanned {
		t.Errorf("default hint status = %q", c.Hints[0].Status)
	}

	c, err = c.AdvanceHintStatus("h1", HintPlanted)
	if err != nil {
		t.Fatal(err)
	}
	if c.Hints[0].Status != HintPlanted {
		t.Errorf("status = %q", c.Hints[0].Status)
	}

	_, err = c.AdvanceHintStatus("h1", HintPlanned)
	if !fault.IsValidation(err) {
		t.Errorf("regression: expected ValidationError, got %v", err)
	}
}

func TestSnapshotsAndElementLookup(t *testing.T) {
	c, err := Catalog{}.Merge(Catalog{
		Characters: []Character{
			{Core: Core{ID: "elara", Name: "Elara", Importance: 8}, Role: "protagonist", Relationships: []string{"theron"}},
			{Core: Core{ID: "theron", Name: "Theron", Importance: 6}},
		},
		Locations: []Location{{Core: Core{ID: "millbrook", Name: "Millbrook", Importance: 4}}},
	}, t0)
	if err != nil {
		t.Fatal(err)
	}

	snaps := c.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snaps))
	}
	if snaps[0].Kind != KindCharacter || snaps[0].Core.ID != "elara" {
		t.Errorf("snapshot order broken: %+v", snaps[0])
	}
	if snaps[0].Subtype != "protagonist" {
		t.Errorf("subtype = %q", snaps[0].Subtype)
	}

	got := c.Element("millbrook")
	if got == nil || got.Kind != KindLocation {
		t.Errorf("element lookup failed: %+v", got)
	}
	if c.Element("ghost") != nil {
		t.Error("phantom element")
	}
}

func TestObjectSnapshotRelatesHolder(t *testing.T) {
	c, err := Catalog{}.Merge(Catalog{
		Objects: []Object{
			{Core: Core{ID: "locket", Name: "Silver Locket", Importance: 7}, ObjectType: "keepsake", CurrentHolder: "elara"},
			{Core: Core{ID: "lamp", Name: "Lamp", Importance: 2}},
		},
	}, t0)
	if err != nil {
		t.Fatal(err)
	}

	snaps := c.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}
	if len(snaps[0].Related) != 1 || snaps[0].Related[0] != "elara" {
		t.Errorf("held object must relate its holder: %+v", snaps[0].Related)
	}
	if snaps[1].Related != nil {
		t.Errorf("unheld object relates nothing: %+v", snaps[1].Related)
	}
}
