// Package elements holds the catalog of reusable story elements
// (characters, locations, plot twists, objects, themes) and their
// foreshadowing hints, tracked independently of the prose that mentions
// them. Nodes reference elements by name or id only; nothing is embedded.
//
// Catalog is a plain value; all operations return a new Catalog.
package elements

import (
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/storykitt/pkg/fault"
)

// Kind discriminates the element variants.
type Kind string

const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindPlotTwist Kind = "plot_twist"
	KindObject    Kind = "object"
	KindTheme     Kind = "theme"
)

// Status is the element lifecycle. It only moves forward; nothing in this
// package regresses it automatically.
type Status string

const (
	StatusUnmet      Status = "unmet"
	StatusIntroduced Status = "introduced"
	StatusDeveloped  Status = "developed"
	StatusResolved   Status = "resolved"
)

var statusRank = map[Status]int{
	StatusUnmet:      0,
	StatusIntroduced: 1,
	StatusDeveloped:  2,
	StatusResolved:   3,
}

// HintStatus is the foreshadowing hint lifecycle.
type HintStatus string

const (
	HintPlanned  HintStatus = "planned"
	HintPlanted  HintStatus = "planted"
	HintRecalled HintStatus = "recalled"
	HintResolved HintStatus = "resolved"
)

var hintRank = map[HintStatus]int{
	HintPlanned:  0,
	HintPlanted:  1,
	HintRecalled: 2,
	HintResolved: 3,
}

// Core carries the fields shared by every element variant.
type Core struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	Importance     int        `json:"importance"` // 1..10
	Tags           []string   `json:"tags,omitempty"`
	LastReferenced *time.Time `json:"lastReferenced,omitempty"`
}

// Character is a story character.
type Character struct {
	Core
	Role          string   `json:"role,omitempty"`
	Relationships []string `json:"relationships,omitempty"` // element ids
	Personality   string   `json:"personality,omitempty"`
	Motivation    string   `json:"motivation,omitempty"`
}

// Location is a story setting.
type Location struct {
	Core
	LocationType  string   `json:"locationType,omitempty"`
	Atmosphere    string   `json:"atmosphere,omitempty"`
	Connections   []string `json:"connections,omitempty"` // element ids
	Accessibility string   `json:"accessibility,omitempty"`
}

// PlotTwist is a planned reveal.
type PlotTwist struct {
	Core
	TwistType     string   `json:"twistType,omitempty"`
	SetupRequired []string `json:"setupRequired,omitempty"` // element ids
	Impact        string   `json:"impact,omitempty"`
	Timing        string   `json:"timing,omitempty"`
}

// Object is a significant item.
type Object struct {
	Core
	ObjectType    string   `json:"objectType,omitempty"`
	Significance  string   `json:"significance,omitempty"`
	CurrentHolder string   `json:"currentHolder,omitempty"` // element id
	Properties    []string `json:"properties,omitempty"`
}

// Theme is a recurring motif.
type Theme struct {
	Core
	ThemeType  string   `json:"themeType,omitempty"`
	Symbols    []string `json:"symbols,omitempty"`
	Expression string   `json:"expression,omitempty"`
}

// Hint is a planned subtle clue pointing at a future element reveal.
type Hint struct {
	ID              string     `json:"id"`
	TargetElementID string     `json:"targetElementId"`
	Hint            string     `json:"hint"`
	Subtlety        int        `json:"subtlety"` // 1..10, lower is subtler
	Status          HintStatus `json:"status"`
	Timing          string     `json:"timing,omitempty"`
}

// Catalog owns all element and hint values. TotalElements always equals the
// sum of the variant slice lengths; Merge is the only place it is computed.
type Catalog struct {
	Characters    []Character `json:"characters"`
	Locations     []Location  `json:"locations"`
	PlotTwists    []PlotTwist `json:"plotTwists"`
	Objects       []Object    `json:"objects"`
	Themes        []Theme     `json:"themes"`
	Hints         []Hint      `json:"foreshadowing"`
	TotalElements int         `json:"totalElements"`
	LastUpdated   time.Time   `json:"lastUpdated"`
}

// Snapshot is the flattened read-only view the selector works over.
type Snapshot struct {
	Kind    Kind
	Core    Core
	Subtype string   // role / locationType / twistType / objectType / themeType
	Related []string // relationships / connections / setupRequired
}

// Snapshots flattens the catalog in variant-then-insertion order.
func (c Catalog) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, c.TotalElements)
	for _, e := range c.Characters {
		out = append(out, Snapshot{KindCharacter, e.Core, e.Role, e.Relationships})
	}
	for _, e := range c.Locations {
		out = append(out, Snapshot{KindLocation, e.Core, e.LocationType, e.Connections})
	}
	for _, e := range c.PlotTwists {
		out = append(out, Snapshot{KindPlotTwist, e.Core, e.TwistType, e.SetupRequired})
	}
	for _, e := range c.Objects {
		var related []string
		if e.CurrentHolder != "" {
			related = []string{e.CurrentHolder}
		}
		out = append(out, Snapshot{KindObject, e.Core, e.ObjectType, related})
	}
	for _, e := range c.Themes {
		out = append(out, Snapshot{KindTheme, e.Core, e.ThemeType, nil})
	}
	return out
}

// Element returns the snapshot for an id, or nil if absent.
func (c Catalog) Element(id string) *Snapshot {
	for _, s := range c.Snapshots() {
		if s.Core.ID == id {
			snap := s
			return &snap
		}
	}
	return nil
}

// EnsureID fills a blank id with a generated one. Caller-supplied ids win.
func EnsureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func validateCore(core *Core) error {
	if core.Name == "" {
		return fault.Invalid("element.name", "must not be empty")
	}
	if core.ID == "" {
		return fault.Invalid("element.id", "must not be empty")
	}
	if core.Importance == 0 {
		core.Importance = 5
	}
	if core.Importance < 1 || core.Importance > 10 {
		return fault.Invalid("element.importance", "must be between 1 and 10")
	}
	if core.Status == "" {
		core.Status = StatusUnmet
	}
	if _, ok := statusRank[core.Status]; !ok {
		return fault.Invalid("element.status", "unknown status "+string(core.Status))
	}
	return nil
}

func validateHint(h *Hint) error {
	if h.ID == "" {
		return fault.Invalid("hint.id", "must not be empty")
	}
	if h.TargetElementID == "" {
		return fault.Invalid("hint.targetElementId", "must not be empty")
	}
	if h.Subtlety == 0 {
		h.Subtlety = 5
	}
	if h.Subtlety < 1 || h.Subtlety > 10 {
		return fault.Invalid("hint.subtlety", "must be between 1 and 10")
	}
	if h.Status == "" {
		h.Status = HintPlanned
	}
	if _, ok := hintRank[h.Status]; !ok {
		return fault.Invalid("hint.status", "unknown status "+string(h.Status))
	}
	return nil
}

// Merge folds updates into the catalog: each variant slice is merged by id,
// updating in place when the id exists and appending when it is new, then
// TotalElements is recomputed. Idempotent: merging the same updates twice
// equals merging them once. Malformed elements fail the whole call with a
// ValidationError and no mutation.
func (c Catalog) Merge(updates Catalog, now time.Time) (Catalog, error) {
	next := c

	characters := append([]Character(nil), c.Characters...)
	for _, u := range updates.Characters {
		if err := validateCore(&u.Core); err != nil {
			return c, err
		}
		characters = upsertCharacter(characters, u)
	}
	locations := append([]Location(nil), c.Locations...)
	for _, u := range updates.Locations {
		if err := validateCore(&u.Core); err != nil {
			return c, err
		}
		locations = upsertLocation(locations, u)
	}
	twists := append([]PlotTwist(nil), c.PlotTwists...)
	for _, u := range updates.PlotTwists {
		if err := validateCore(&u.Core); err != nil {
			return c, err
		}
		twists = upsertPlotTwist(twists, u)
	}
	objects := append([]Object(nil), c.Objects...)
	for _, u := range updates.Objects {
		if err := validateCore(&u.Core); err != nil {
			return c, err
		}
		objects = upsertObject(objects, u)
	}
	themes := append([]Theme(nil), c.Themes...)
	for _, u := range updates.Themes {
		if err := validateCore(&u.Core); err != nil {
			return c, err
		}
		themes = upsertTheme(themes, u)
	}
	hints := append([]Hint(nil), c.Hints...)
	for _, u := range updates.Hints {
		if err := validateHint(&u); err != nil {
			return c, err
		}
		hints = upsertHint(hints, u)
	}

	next.Characters = characters
	next.Locations = locations
	next.PlotTwists = twists
	next.Objects = objects
	next.Themes = themes
	next.Hints = hints
	next.TotalElements = len(characters) + len(locations) + len(twists) + len(objects) + len(themes)
	next.LastUpdated = now
	return next, nil
}

// AddCharacter adds or replaces a character, generating an id when blank.
func (c Catalog) AddCharacter(e Character, now time.Time) (Catalog, error) {
	e.ID = EnsureID(e.ID)
	return c.Merge(Catalog{Characters: []Character{e}}, now)
}

// AddLocation adds or replaces a location.
func (c Catalog) AddLocation(e Location, now time.Time) (Catalog, error) {
	e.ID = EnsureID(e.ID)
	return c.Merge(Catalog{Locations: []Location{e}}, now)
}

// AddPlotTwist adds or replaces a plot twist.
func (c Catalog) AddPlotTwist(e PlotTwist, now time.Time) (Catalog, error) {
	e.ID = EnsureID(e.ID)
	return c.Merge(Catalog{PlotTwists: []PlotTwist{e}}, now)
}

// AddObject adds or replaces an object.
func (c Catalog) AddObject(e Object, now time.Time) (Catalog, error) {
	e.ID = EnsureID(e.ID)
	return c.Merge(Catalog{Objects: []Object{e}}, now)
}

// AddTheme adds or replaces a theme.
func (c Catalog) AddTheme(e Theme, now time.Time) (Catalog, error) {
	e.ID = EnsureID(e.ID)
	return c.Merge(Catalog{Themes: []Theme{e}}, now)
}

// AddHint adds or replaces a foreshadowing hint.
func (c Catalog) AddHint(h Hint, now time.Time) (Catalog, error) {
	h.ID = EnsureID(h.ID)
	return c.Merge(Catalog{Hints: []Hint{h}}, now)
}

// AdvanceStatus moves an element's status forward and stamps
// LastReferenced. Re-asserting the current status is allowed (and acts as a
// reference touch); moving backward is a ValidationError.
func (c Catalog) AdvanceStatus(id string, status Status, now time.Time) (Catalog, error) {
	newRank, ok := statusRank[status]
	if !ok {
		return c, fault.Invalid("element.status", "unknown status "+string(status))
	}

	apply := func(core *Core) error {
		if newRank < statusRank[core.Status] {
			return fault.Invalid("element.status",
				"cannot regress from "+string(core.Status)+" to "+string(status))
		}
		core.Status = status
		t := now
		core.LastReferenced = &t
		return nil
	}

	next := c
	next.Characters = append([]Character(nil), c.Characters...)
	next.Locations = append([]Location(nil), c.Locations...)
	next.PlotTwists = append([]PlotTwist(nil), c.PlotTwists...)
	next.Objects = append([]Object(nil), c.Objects...)
	next.Themes = append([]Theme(nil), c.Themes...)

	for i := range next.Characters {
		if next.Characters[i].ID == id {
			if err := apply(&next.Characters[i].Core); err != nil {
				return c, err
			}
			return next, nil
		}
	}
	for i := range next.Locations {
		if next.Locations[i].ID == id {
			if err := apply(&next.Locations[i].Core); err != nil {
				return c, err
			}
			return next, nil
		}
	}
	for i := range next.PlotTwists {
		if next.PlotTwists[i].ID == id {
			if err := apply(&next.PlotTwists[i].Core); err != nil {
				return c, err
			}
			return next, nil
		}
	}
	for i := range next.Objects {
		if next.Objects[i].ID == id {
			if err := apply(&next.Objects[i].Core); err != nil {
				return c, err
			}
			return next, nil
		}
	}
	for i := range next.Themes {
		if next.Themes[i].ID == id {
			if err := apply(&next.Themes[i].Core); err != nil {
				return c, err
			}
			return next, nil
		}
	}
	return c, fault.NotFound("element", id)
}

// AdvanceHintStatus moves a hint's status forward, same rules as elements.
func (c Catalog) AdvanceHintStatus(id string, status HintStatus) (Catalog, error) {
	newRank, ok := hintRank[status]
	if !ok {
		return c, fault.Invalid("hint.status", "unknown status "+string(status))
	}

	next := c
	next.Hints = append([]Hint(nil), c.Hints...)
	for i := range next.Hints {
		if next.Hints[i].ID == id {
			if newRank < hintRank[next.Hints[i].Status] {
				return c, fault.Invalid("hint.status",
					"cannot regress from "+string(next.Hints[i].Status)+" to "+string(status))
			}
			next.Hints[i].Status = status
			return next, nil
		}
	}
	return c, fault.NotFound("hint", id)
}

func upsertCharacter(list []Character, e Character) []Character {
	for i := range list {
		if list[i].ID == e.ID {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

func upsertLocation(list []Location, e Location) []Location {
	for i := range list {
		if list[i].ID == e.ID {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

func upsertPlotTwist(list []PlotTwist, e PlotTwist) []PlotTwist {
	for i := range list {
		if list[i].ID == e.ID {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

func upsertObject(list []Object, e Object) []Object {
	for i := range list {
		if list[i].ID == e.ID {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

func upsertTheme(list []Theme, e Theme) []Theme {
	for i := range list {
		if list[i].ID == e.ID {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

func upsertHint(list []Hint, h Hint) []Hint {
	for i := range list {
		if list[i].ID == h.ID {
			list[i] = h
			return list
		}
	}
	return append(list, h)
}
