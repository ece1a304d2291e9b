// Package membank manages per-branch auxiliary memory banks: opaque
// key/value blobs (inventory, flags, world state) stored alongside a
// branch but outside the narrative graph.
//
// Like pkg/narrative, Store is a plain value and every mutating operation
// returns a new one. Banks keep insertion order so eviction is reproducible
// for a fixed input set.
package membank

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/kittclouds/storykitt/pkg/fault"
)

// DefaultMaxAgeHours is the cleanup age threshold when none is given.
const DefaultMaxAgeHours = 24

// DefaultMaxSizeBytes is the cleanup size budget when none is given (10 MiB).
const DefaultMaxSizeBytes = 10 << 20

// Bank is one branch's memory blob. Data is serialized wholesale to compute
// Size and Checksum; the checksum detects accidental drift, not tampering.
type Bank struct {
	BranchID     string         `json:"branchId"`
	Data         map[string]any `json:"data"`
	Checksum     string         `json:"checksum"`
	Size         int            `json:"size"`
	Compressed   bool           `json:"compressed"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastAccessed time.Time      `json:"lastAccessed"`
}

// Store holds all banks plus the derived stats, recomputed on every
// mutation. ActiveBanks counts banks accessed within the last 24 hours.
type Store struct {
	Banks       []Bank `json:"banks"`
	TotalBanks  int    `json:"totalBanks"`
	TotalSize   int    `json:"totalSize"`
	ActiveBanks int    `json:"activeBanks"`
}

// CreateOptions tune a bank write.
type CreateOptions struct {
	Compress bool
	MaxSize  int // 0 means unlimited
}

// CleanupOptions tune an eviction sweep.
type CleanupOptions struct {
	MaxAgeHours  float64
	MaxSizeBytes int
	KeepActive   bool
}

// DefaultCleanup returns the standard sweep settings.
func DefaultCleanup() CleanupOptions {
	return CleanupOptions{
		MaxAgeHours:  DefaultMaxAgeHours,
		MaxSizeBytes: DefaultMaxSizeBytes,
		KeepActive:   true,
	}
}

// Manager performs bank operations. Now is injectable for tests and
// defaults to time.Now.
type Manager struct {
	Now func() time.Time
}

// NewManager creates a Manager with the wall clock.
func NewManager() *Manager {
	return &Manager{Now: time.Now}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Serialize renders a data map to its canonical JSON form. encoding/json
// sorts map keys, so the same input always yields the same bytes; Size and
// Checksum are deterministic functions of the data.
func Serialize(data map[string]any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("serialize bank data: %w", err)
	}
	return raw, nil
}

// Checksum computes the FNV-1a 32-bit hash of serialized data, base-36
// encoded. A drift hint, not a security boundary.
func Checksum(raw []byte) string {
	h := fnv.New32a()
	h.Write(raw)
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// Create serializes data and writes a bank for the branch, overwriting any
// existing one. If opts.MaxSize is set and exceeded the call fails with a
// SizeLimitError and the store is unchanged.
func (m *Manager) Create(s Store, branchID string, data map[string]any, opts CreateOptions) (Store, error) {
	raw, err := Serialize(data)
	if err != nil {
		return s, err
	}
	if opts.MaxSize > 0 && len(raw) > opts.MaxSize {
		return s, fault.SizeLimit(len(raw), opts.MaxSize)
	}

	now := m.now()
	bank := Bank{
		BranchID:     branchID,
		Data:         cloneData(data),
		Checksum:     Checksum(raw),
		Size:         len(raw),
		Compressed:   opts.Compress,
		CreatedAt:    now,
		LastAccessed: now,
	}

	banks := cloneBanks(s.Banks)
	replaced := false
	for i := range banks {
		if banks[i].BranchID == branchID {
			bank.CreatedAt = banks[i].CreatedAt
			banks[i] = bank
			replaced = true
			break
		}
	}
	if !replaced {
		banks = append(banks, bank)
	}
	return m.restat(Store{Banks: banks}), nil
}

// Get returns the bank for a branch, refreshing its LastAccessed in the
// returned store: the read is the point at which staleness resets. A nil
// bank means none was ever created for the branch, a normal state.
func (m *Manager) Get(s Store, branchID string) (Store, *Bank) {
	for i := range s.Banks {
		if s.Banks[i].BranchID == branchID {
			banks := cloneBanks(s.Banks)
			banks[i].LastAccessed = m.now()
			bank := banks[i]
			bank.Data = cloneData(bank.Data)
			return m.restat(Store{Banks: banks}), &bank
		}
	}
	return s, nil
}

// Update shallow-merges partial onto the existing bank's data and rewrites
// the bank, re-running size and checksum computation. Fails with a
// NotFoundError if no bank exists for the branch yet.
func (m *Manager) Update(s Store, branchID string, partial map[string]any) (Store, error) {
	var existing *Bank
	for i := range s.Banks {
		if s.Banks[i].BranchID == branchID {
			existing = &s.Banks[i]
			break
		}
	}
	if existing == nil {
		return s, fault.NotFound("bank", branchID)
	}

	merged := cloneData(existing.Data)
	for k, v := range partial {
		merged[k] = v
	}
	return m.Create(s, branchID, merged, CreateOptions{Compress: existing.Compressed})
}

// Delete removes the bank for a branch. Fails with a NotFoundError if
// there is none.
func (m *Manager) Delete(s Store, branchID string) (Store, error) {
	banks := make([]Bank, 0, len(s.Banks))
	found := false
	for _, b := range s.Banks {
		if b.BranchID == branchID {
			found = true
			continue
		}
		banks = append(banks, b)
	}
	if !found {
		return s, fault.NotFound("bank", branchID)
	}
	return m.restat(Store{Banks: banks}), nil
}

// Cleanup sweeps banks in insertion order, keeping a running total of
// retained sizes. A bank is evicted when it is older than MaxAgeHours and
// either KeepActive is false or keeping it would push the running total
// past MaxSizeBytes. Deterministic for a fixed input set.
func (m *Manager) Cleanup(s Store, opts CleanupOptions) Store {
	if opts.MaxAgeHours <= 0 {
		opts.MaxAgeHours = DefaultMaxAgeHours
	}
	if opts.MaxSizeBytes <= 0 {
		opts.MaxSizeBytes = DefaultMaxSizeBytes
	}

	now := m.now()
	maxAge := time.Duration(opts.MaxAgeHours * float64(time.Hour))

	kept := make([]Bank, 0, len(s.Banks))
	total := 0
	for _, b := range s.Banks {
		stale := now.Sub(b.LastAccessed) > maxAge
		if stale && (!opts.KeepActive || total+b.Size > opts.MaxSizeBytes) {
			continue
		}
		kept = append(kept, b)
		total += b.Size
	}
	return m.restat(Store{Banks: kept})
}

// restat recomputes the derived totals. The single place stats change.
func (m *Manager) restat(s Store) Store {
	now := m.now()
	s.TotalBanks = len(s.Banks)
	s.TotalSize = 0
	s.ActiveBanks = 0
	for _, b := range s.Banks {
		s.TotalSize += b.Size
		if now.Sub(b.LastAccessed) <= 24*time.Hour {
			s.ActiveBanks++
		}
	}
	return s
}

func cloneBanks(in []Bank) []Bank {
	out := make([]Bank, len(in), len(in)+1)
	copy(out, in)
	return out
}

func cloneData(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
