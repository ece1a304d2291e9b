package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kittclouds/storykitt/pkg/elements"
	"github.com/kittclouds/storykitt/pkg/membank"
	"github.com/kittclouds/storykitt/pkg/narrative"
)

// EmbeddingDim is the fixed width of node embeddings in vec_nodes.
const EmbeddingDim = 384

// SQLiteStore is the SQLite-backed data store.
// Safe for concurrent use.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines all tables. Story, bank and catalog state are each saved
// as a whole; rows carry a position column where slice order matters.
const schema = `
-- Story arena header (single row)
CREATE TABLE IF NOT EXISTS story_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    main_branch_id TEXT NOT NULL,
    current_node_id TEXT NOT NULL,
    current_branch_id TEXT NOT NULL,
    total_nodes INTEGER NOT NULL,
    total_words INTEGER NOT NULL,
    version INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    uri TEXT NOT NULL,
    parent_id TEXT,
    branch_id TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    title TEXT,
    content TEXT NOT NULL,
    word_count INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    tags TEXT,
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_nodes_branch ON nodes(branch_id, sequence);

CREATE TABLE IF NOT EXISTS branches (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    parent_node_id TEXT,
    reason TEXT,
    created_at INTEGER NOT NULL,
    is_active INTEGER DEFAULT 1,
    memory_bank_id TEXT
);

-- Memory banks keep insertion order; cleanup eviction depends on it.
CREATE TABLE IF NOT EXISTS memory_banks (
    branch_id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    data TEXT NOT NULL,
    checksum TEXT NOT NULL,
    size INTEGER NOT NULL,
    compressed INTEGER DEFAULT 0,
    created_at INTEGER NOT NULL,
    last_accessed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bank_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    total_banks INTEGER NOT NULL,
    total_size INTEGER NOT NULL,
    active_banks INTEGER NOT NULL
);

-- One row per element variant; body is the full variant JSON.
CREATE TABLE IF NOT EXISTS elements (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    position INTEGER NOT NULL,
    body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_elements_kind ON elements(kind, position);

CREATE TABLE IF NOT EXISTS hints (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    body TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    total_elements INTEGER NOT NULL,
    last_updated INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_nodes USING vec0(
    node_id TEXT PRIMARY KEY,
    embedding FLOAT[384]
);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Story arena
// =============================================================================

// SaveStory replaces the persisted story state with the given snapshot.
func (s *SQLiteStore) SaveStory(story narrative.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"nodes", "branches", "story_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO story_meta (id, main_branch_id, current_node_id, current_branch_id,
			total_nodes, total_words, version, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
	`, story.MainBranchID, story.CurrentNodeID, story.CurrentBranchID,
		story.TotalNodes, story.TotalWords, story.Version,
		toMillis(story.CreatedAt), toMillis(story.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save story meta: %w", err)
	}

	for i, node := range story.Nodes {
		tagsJSON, err := json.Marshal(node.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", node.ID, err)
		}
		metaJSON, err := json.Marshal(node.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", node.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO nodes (id, position, uri, parent_id, branch_id, sequence,
				title, content, word_count, created_at, tags, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, node.ID, i, node.URI, node.ParentID, node.BranchID, node.Sequence,
			node.Title, node.Content, node.WordCount, toMillis(node.CreatedAt),
			string(tagsJSON), string(metaJSON))
		if err != nil {
			return fmt.Errorf("save node %s: %w", node.ID, err)
		}
	}

	for i, branch := range story.Branches {
		_, err = tx.Exec(`
			INSERT INTO branches (id, position, name, parent_node_id, reason,
				created_at, is_active, memory_bank_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, branch.ID, i, branch.Name, branch.ParentNodeID, branch.Reason,
			toMillis(branch.CreatedAt), boolToInt(branch.IsActive), branch.MemoryBankID)
		if err != nil {
			return fmt.Errorf("save branch %s: %w", branch.ID, err)
		}
	}

	return tx.Commit()
}

// LoadStory returns the persisted story state, or nil when nothing is saved.
func (s *SQLiteStore) LoadStory() (*narrative.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var story narrative.Store
	var createdAt, updatedAt int64
	err := s.db.QueryRow(`
		SELECT main_branch_id, current_node_id, current_branch_id,
			total_nodes, total_words, version, created_at, updated_at
		FROM story_meta WHERE id = 1
	`).Scan(&story.MainBranchID, &story.CurrentNodeID, &story.CurrentBranchID,
		&story.TotalNodes, &story.TotalWords, &story.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	story.CreatedAt = fromMillis(createdAt)
	story.UpdatedAt = fromMillis(updatedAt)

	rows, err := s.db.Query(`
		SELECT id, uri, parent_id, branch_id, sequence, title, content,
			word_count, created_at, tags, metadata
		FROM nodes ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var node narrative.Node
		var nodeCreated int64
		var tagsJSON, metaJSON sql.NullString
		if err := rows.Scan(&node.ID, &node.URI, &node.ParentID, &node.BranchID,
			&node.Sequence, &node.Title, &node.Content, &node.WordCount,
			&nodeCreated, &tagsJSON, &metaJSON); err != nil {
			return nil, err
		}
		node.CreatedAt = fromMillis(nodeCreated)
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &node.Tags); err != nil {
				return nil, fmt.Errorf("tags for %s: %w", node.ID, err)
			}
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &node.Metadata); err != nil {
				return nil, fmt.Errorf("metadata for %s: %w", node.ID, err)
			}
		}
		story.Nodes = append(story.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	branchRows, err := s.db.Query(`
		SELECT id, name, parent_node_id, reason, created_at, is_active, memory_bank_id
		FROM branches ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer branchRows.Close()
	for branchRows.Next() {
		var branch narrative.Branch
		var branchCreated int64
		var isActive int
		if err := branchRows.Scan(&branch.ID, &branch.Name, &branch.ParentNodeID,
			&branch.Reason, &branchCreated, &isActive, &branch.MemoryBankID); err != nil {
			return nil, err
		}
		branch.CreatedAt = fromMillis(branchCreated)
		branch.IsActive = isActive != 0
		story.Branches = append(story.Branches, branch)
	}
	if err := branchRows.Err(); err != nil {
		return nil, err
	}

	return &story, nil
}

// =============================================================================
// Memory banks
// =============================================================================

// SaveBanks replaces the persisted memory bank state.
func (s *SQLiteStore) SaveBanks(banks membank.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"memory_banks", "bank_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO bank_meta (id, total_banks, total_size, active_banks)
		VALUES (1, ?, ?, ?)
	`, banks.TotalBanks, banks.TotalSize, banks.ActiveBanks)
	if err != nil {
		return fmt.Errorf("save bank meta: %w", err)
	}

	for i, bank := range banks.Banks {
		dataJSON, err := json.Marshal(bank.Data)
		if err != nil {
			return fmt.Errorf("marshal bank %s: %w", bank.BranchID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO memory_banks (branch_id, position, data, checksum, size,
				compressed, created_at, last_accessed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, bank.BranchID, i, string(dataJSON), bank.Checksum, bank.Size,
			boolToInt(bank.Compressed), toMillis(bank.CreatedAt), toMillis(bank.LastAccessed))
		if err != nil {
			return fmt.Errorf("save bank %s: %w", bank.BranchID, err)
		}
	}

	return tx.Commit()
}

// LoadBanks returns the persisted memory bank state, or nil when nothing is
// saved.
func (s *SQLiteStore) LoadBanks() (*membank.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var banks membank.Store
	err := s.db.QueryRow(`
		SELECT total_banks, total_size, active_banks FROM bank_meta WHERE id = 1
	`).Scan(&banks.TotalBanks, &banks.TotalSize, &banks.ActiveBanks)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT branch_id, data, checksum, size, compressed, created_at, last_accessed
		FROM memory_banks ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var bank membank.Bank
		var dataJSON string
		var compressed int
		var createdAt, lastAccessed int64
		if err := rows.Scan(&bank.BranchID, &dataJSON, &bank.Checksum, &bank.Size,
			&compressed, &createdAt, &lastAccessed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(dataJSON), &bank.Data); err != nil {
			return nil, fmt.Errorf("bank data for %s: %w", bank.BranchID, err)
		}
		bank.Compressed = compressed != 0
		bank.CreatedAt = fromMillis(createdAt)
		bank.LastAccessed = fromMillis(lastAccessed)
		banks.Banks = append(banks.Banks, bank)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &banks, nil
}

// =============================================================================
// Element catalog
// =============================================================================

// SaveCatalog replaces the persisted element catalog.
func (s *SQLiteStore) SaveCatalog(c elements.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"elements", "hints", "catalog_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO catalog_meta (id, total_elements, last_updated)
		VALUES (1, ?, ?)
	`, c.TotalElements, toMillis(c.LastUpdated))
	if err != nil {
		return fmt.Errorf("save catalog meta: %w", err)
	}

	insert := func(id string, kind elements.Kind, position int, body any) error {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal element %s: %w", id, err)
		}
		_, err = tx.Exec(`
			INSERT INTO elements (id, kind, position, body) VALUES (?, ?, ?, ?)
		`, id, string(kind), position, string(bodyJSON))
		if err != nil {
			return fmt.Errorf("save element %s: %w", id, err)
		}
		return nil
	}

	for i, e := range c.Characters {
		if err := insert(e.ID, elements.KindCharacter, i, e); err != nil {
			return err
		}
	}
	for i, e := range c.Locations {
		if err := insert(e.ID, elements.KindLocation, i, e); err != nil {
			return err
		}
	}
	for i, e := range c.PlotTwists {
		if err := insert(e.ID, elements.KindPlotTwist, i, e); err != nil {
			return err
		}
	}
	for i, e := range c.Objects {
		if err := insert(e.ID, elements.KindObject, i, e); err != nil {
			return err
		}
	}
	for i, e := range c.Themes {
		if err := insert(e.ID, elements.KindTheme, i, e); err != nil {
			return err
		}
	}

	for i, h := range c.Hints {
		bodyJSON, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("marshal hint %s: %w", h.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO hints (id, position, body) VALUES (?, ?, ?)
		`, h.ID, i, string(bodyJSON))
		if err != nil {
			return fmt.Errorf("save hint %s: %w", h.ID, err)
		}
	}

	return tx.Commit()
}

// LoadCatalog returns the persisted element catalog, or nil when nothing is
// saved.
func (s *SQLiteStore) LoadCatalog() (*elements.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c elements.Catalog
	var lastUpdated int64
	err := s.db.QueryRow(`
		SELECT total_elements, last_updated FROM catalog_meta WHERE id = 1
	`).Scan(&c.TotalElements, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.LastUpdated = fromMillis(lastUpdated)

	rows, err := s.db.Query(`SELECT id, kind, body FROM elements ORDER BY kind, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, kind, body string
		if err := rows.Scan(&id, &kind, &body); err != nil {
			return nil, err
		}
		switch elements.Kind(kind) {
		case elements.KindCharacter:
			var e elements.Character
			if err := json.Unmarshal([]byte(body), &e); err != nil {
				return nil, fmt.Errorf("element %s: %w", id, err)
			}
			c.Characters = append(c.Characters, e)
		case elements.KindLocation:
			var e elements.Location
			if err := json.Unmarshal([]byte(body), &e); err != nil {
				return nil, fmt.Errorf("element %s: %w", id, err)
			}
			c.Locations = append(c.Locations, e)
		case elements.KindPlotTwist:
			var e elements.PlotTwist
			if err := json.Unmarshal([]byte(body), &e); err != nil {
				return nil, fmt.Errorf("element %s: %w", id, err)
			}
			c.PlotTwists = append(c.PlotTwists, e)
		case elements.KindObject:
			var e elements.Object
			if err := json.Unmarshal([]byte(body), &e); err != nil {
				return nil, fmt.Errorf("element %s: %w", id, err)
			}
			c.Objects = append(c.Objects, e)
		case elements.KindTheme:
			var e elements.Theme
			if err := json.Unmarshal([]byte(body), &e); err != nil {
				return nil, fmt.Errorf("element %s: %w", id, err)
			}
			c.Themes = append(c.Themes, e)
		default:
			return nil, fmt.Errorf("element %s: unknown kind %q", id, kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hintRows, err := s.db.Query(`SELECT id, body FROM hints ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer hintRows.Close()
	for hintRows.Next() {
		var id, body string
		if err := hintRows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var h elements.Hint
		if err := json.Unmarshal([]byte(body), &h); err != nil {
			return nil, fmt.Errorf("hint %s: %w", id, err)
		}
		c.Hints = append(c.Hints, h)
	}
	if err := hintRows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}

// =============================================================================
// Node embeddings (sqlite-vec)
// =============================================================================

// UpsertNodeEmbedding stores or replaces the embedding for a node.
func (s *SQLiteStore) UpsertNodeEmbedding(nodeID string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(embedding) != EmbeddingDim {
		return fmt.Errorf("embedding for %s has %d dims, want %d", nodeID, len(embedding), EmbeddingDim)
	}

	// vec0 virtual tables reject ON CONFLICT clauses.
	if _, err := s.db.Exec("DELETE FROM vec_nodes WHERE node_id = ?", nodeID); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO vec_nodes (node_id, embedding) VALUES (?, ?)
	`, nodeID, serializeFloat32(embedding))
	return err
}

// SimilarNodes returns the k nodes nearest to the query embedding, closest
// first.
func (s *SQLiteStore) SimilarNodes(embedding []float32, k int) ([]SimilarNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(embedding) != EmbeddingDim {
		return nil, fmt.Errorf("query embedding has %d dims, want %d", len(embedding), EmbeddingDim)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT node_id, distance FROM vec_nodes
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, serializeFloat32(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SimilarNode
	for rows.Next() {
		var n SimilarNode
		if err := rows.Scan(&n.NodeID, &n.Distance); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// serializeFloat32 encodes a vector in the little-endian blob format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// =============================================================================
// Export / Import
// =============================================================================

type exportData struct {
	Story   *narrative.Store  `json:"story,omitempty"`
	Banks   *membank.Store    `json:"banks,omitempty"`
	Catalog *elements.Catalog `json:"catalog,omitempty"`
}

// Export serializes the full store state to JSON bytes. Embeddings are not
// exported; they are derived data.
func (s *SQLiteStore) Export() ([]byte, error) {
	story, err := s.LoadStory()
	if err != nil {
		return nil, fmt.Errorf("export story: %w", err)
	}
	banks, err := s.LoadBanks()
	if err != nil {
		return nil, fmt.Errorf("export banks: %w", err)
	}
	catalog, err := s.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("export catalog: %w", err)
	}
	return json.Marshal(exportData{Story: story, Banks: banks, Catalog: catalog})
}

// Import restores store state from an exported JSON byte slice. Sections
// absent from the export are left untouched.
func (s *SQLiteStore) Import(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var in exportData
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}

	if in.Story != nil {
		if err := s.SaveStory(*in.Story); err != nil {
			return fmt.Errorf("import story: %w", err)
		}
	}
	if in.Banks != nil {
		if err := s.SaveBanks(*in.Banks); err != nil {
			return fmt.Errorf("import banks: %w", err)
		}
	}
	if in.Catalog != nil {
		if err := s.SaveCatalog(*in.Catalog); err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
	}
	return nil
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
