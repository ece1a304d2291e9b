// Package narrative provides the branchable story graph: an append-only
// arena of immutable nodes organized into named branches.
//
// Store is a plain value. Every mutating operation takes the current value
// and returns a new one; nothing is shared or mutated in place, so the
// caller owns the concurrency story (one logical writer per story).
package narrative

import (
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/storykitt/pkg/fault"
)

// MainBranchID is the id of the root branch every store starts with.
const MainBranchID = "main"

// Metadata is the small record the generation loop supplies with each turn.
// The auditor and selector rely entirely on these tags; only the timeline
// scanner inspects raw prose.
type Metadata struct {
	Author     string   `json:"author,omitempty"`
	Mood       string   `json:"mood,omitempty"`
	Location   string   `json:"location,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Events     []string `json:"events,omitempty"`
}

// Node is a single story turn. Immutable once created.
type Node struct {
	ID        string    `json:"id"`
	URI       string    `json:"uri"`
	ParentID  string    `json:"parentId,omitempty"`
	BranchID  string    `json:"branchId"`
	Sequence  int       `json:"sequence"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
	Tags      []string  `json:"tags,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// Branch is a named fork of the story rooted at a specific node.
type Branch struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ParentNodeID string    `json:"parentNodeId,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	IsActive     bool      `json:"isActive"`
	MemoryBankID string    `json:"memoryBankId,omitempty"`
}

// Draft is the caller-supplied input to Append and Fork.
type Draft struct {
	Title    string
	Content  string
	Tags     []string
	Metadata Metadata
}

// Store is the branchable story graph. Nodes form an arena in creation
// order; ParentID is an id lookup, never a pointer, so traversal is plain
// index chasing. Version increments on every mutation and is advisory only:
// no optimistic concurrency is enforced at this boundary.
type Store struct {
	Nodes           []Node    `json:"nodes"`
	Branches        []Branch  `json:"branches"`
	MainBranchID    string    `json:"mainBranchId"`
	CurrentNodeID   string    `json:"currentNodeId,omitempty"`
	CurrentBranchID string    `json:"currentBranchId"`
	TotalNodes      int       `json:"totalNodes"`
	TotalWords      int       `json:"totalWords"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewStore creates an empty store with the main branch in place.
func NewStore(now time.Time) Store {
	return Store{
		Branches: []Branch{{
			ID:        MainBranchID,
			Name:      "Main Storyline",
			CreatedAt: now,
			IsActive:  true,
		}},
		MainBranchID:    MainBranchID,
		CurrentBranchID: MainBranchID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NodeURI derives the stable lookup key for a node.
func NodeURI(branchID, nodeID string) string {
	return fmt.Sprintf("narrative://%s/%s", branchID, nodeID)
}

// Append adds a node. ref may be a branch id, a node id, or "" for the
// current branch. A node ref appends to that node's branch with that node
// as parent; otherwise the parent is the tip of the resolved branch (or the
// branch's fork point when the branch is still empty). An unknown explicit
// ref fails with a NotFoundError and leaves the store untouched.
func (s Store) Append(ref string, d Draft, now time.Time) (Store, Node, error) {
	branchID := s.CurrentBranchID
	parentID := ""

	switch {
	case ref == "":
		// current branch, parent resolved below
	case s.Branch(ref) != nil:
		branchID = ref
	default:
		parent := s.Node(ref)
		if parent == nil {
			return s, Node{}, fault.NotFound("node", ref)
		}
		branchID = parent.BranchID
		parentID = parent.ID
	}

	branch := s.Branch(branchID)
	if branch == nil {
		return s, Node{}, fault.NotFound("branch", branchID)
	}

	existing := s.BranchNodes(branchID)
	if parentID == "" {
		if len(existing) > 0 {
			parentID = existing[len(existing)-1].ID
		} else {
			parentID = branch.ParentNodeID
		}
	}

	id := fmt.Sprintf("narrative_%03d", s.TotalNodes+1)
	node := Node{
		ID:        id,
		URI:       NodeURI(branchID, id),
		ParentID:  parentID,
		BranchID:  branchID,
		Sequence:  len(existing),
		Title:     d.Title,
		Content:   d.Content,
		WordCount: len(strings.Fields(d.Content)),
		CreatedAt: now,
		Tags:      cloneStrings(d.Tags),
		Metadata:  cloneMetadata(d.Metadata),
	}

	next := s
	next.Nodes = append(cloneNodes(s.Nodes), node)
	next.TotalNodes = s.TotalNodes + 1
	next.TotalWords = s.TotalWords + node.WordCount
	next.Version = s.Version + 1
	next.CurrentNodeID = node.ID
	next.CurrentBranchID = branchID
	next.UpdatedAt = now
	return next, node, nil
}

// Fork creates a new branch anchored at parentNodeID and appends its first
// node with the given draft. The new node's ParentID is the fork point.
func (s Store) Fork(parentNodeID, branchName, reason string, d Draft, now time.Time) (Store, Node, error) {
	if s.Node(parentNodeID) == nil {
		return s, Node{}, fault.NotFound("node", parentNodeID)
	}

	branch := Branch{
		ID:           fmt.Sprintf("branch_%03d", len(s.Branches)),
		Name:         branchName,
		ParentNodeID: parentNodeID,
		Reason:       reason,
		CreatedAt:    now,
		IsActive:     true,
	}

	next := s
	next.Branches = append(cloneBranches(s.Branches), branch)
	next.Version = s.Version + 1
	next.UpdatedAt = now
	return next.Append(branch.ID, d, now)
}

// Node looks a node up by id. Absence is a valid outcome, not an error.
func (s Store) Node(id string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			n := s.Nodes[i]
			return &n
		}
	}
	return nil
}

// NodeByURI looks a node up by its derived URI.
func (s Store) NodeByURI(uri string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].URI == uri {
			n := s.Nodes[i]
			return &n
		}
	}
	return nil
}

// Branch looks a branch up by id.
func (s Store) Branch(id string) *Branch {
	for i := range s.Branches {
		if s.Branches[i].ID == id {
			b := s.Branches[i]
			return &b
		}
	}
	return nil
}

// BranchNodes returns the nodes of a branch sorted by sequence ascending.
// The arena is already in creation order, so a single pass suffices.
func (s Store) BranchNodes(branchID string) []Node {
	var out []Node
	for _, n := range s.Nodes {
		if n.BranchID == branchID {
			out = append(out, n)
		}
	}
	return out
}

// Path walks parent links from the given node back to a root and returns
// the chain in root-to-node order.
//
// Precondition: parent links form a forest. Forks always point at an
// existing node, so a cycle cannot arise by construction; a malformed chain
// is a programming error, not defended against here.
func (s Store) Path(nodeID string) ([]Node, error) {
	node := s.Node(nodeID)
	if node == nil {
		return nil, fault.NotFound("node", nodeID)
	}

	var chain []Node
	for node != nil {
		chain = append(chain, *node)
		if node.ParentID == "" {
			break
		}
		node = s.Node(node.ParentID)
	}

	// reverse into root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Recent returns the most recent n nodes across the whole store by global
// creation order, oldest-first. n larger than the arena clamps.
func (s Store) Recent(n int) []Node {
	if n <= 0 || len(s.Nodes) == 0 {
		return nil
	}
	if n > len(s.Nodes) {
		n = len(s.Nodes)
	}
	out := make([]Node, n)
	copy(out, s.Nodes[len(s.Nodes)-n:])
	return out
}

// AttachBank records a memory bank id on a branch. The branch holds a
// non-owning back-reference only; bank values live in pkg/membank.
func (s Store) AttachBank(branchID, bankID string, now time.Time) (Store, error) {
	found := false
	branches := cloneBranches(s.Branches)
	for i := range branches {
		if branches[i].ID == branchID {
			branches[i].MemoryBankID = bankID
			found = true
		}
	}
	if !found {
		return s, fault.NotFound("branch", branchID)
	}

	next := s
	next.Branches = branches
	next.Version = s.Version + 1
	next.UpdatedAt = now
	return next, nil
}

func cloneNodes(in []Node) []Node {
	out := make([]Node, len(in), len(in)+1)
	copy(out, in)
	return out
}

func cloneBranches(in []Branch) []Branch {
	out := make([]Branch, len(in), len(in)+1)
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneMetadata(m Metadata) Metadata {
	m.Characters = cloneStrings(m.Characters)
	m.Events = cloneStrings(m.Events)
	return m
}
