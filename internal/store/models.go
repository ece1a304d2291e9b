// Package store provides SQLite-backed persistence for story state.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"time"

	"github.com/kittclouds/storykitt/pkg/elements"
	"github.com/kittclouds/storykitt/pkg/membank"
	"github.com/kittclouds/storykitt/pkg/narrative"
)

// SimilarNode is one nearest-neighbor result from the node embedding index.
type SimilarNode struct {
	NodeID   string  `json:"nodeId"`
	Distance float64 `json:"distance"`
}

// Storer is the full persistence surface. SQLiteStore is the only
// implementation; the interface pins the contract.
type Storer interface {
	SaveStory(s narrative.Store) error
	LoadStory() (*narrative.Store, error)
	SaveBanks(s membank.Store) error
	LoadBanks() (*membank.Store, error)
	SaveCatalog(c elements.Catalog) error
	LoadCatalog() (*elements.Catalog, error)
	UpsertNodeEmbedding(nodeID string, embedding []float32) error
	SimilarNodes(embedding []float32, k int) ([]SimilarNode, error)
	Export() ([]byte, error)
	Import(data []byte) error
	Close() error
}

// Timestamps are stored as unix milliseconds, UTC on the way back out.

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
