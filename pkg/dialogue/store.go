package dialogue

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNodeNotFound is returned when a selected node id does not exist
// for the character. Callers rely on this to detect UI desync.
var ErrNodeNotFound = errors.New("dialogue node not found")

// ErrTreeNotFound is returned when attaching nodes to an unknown tree.
var ErrTreeNotFound = errors.New("dialogue tree not found")

// MaxOptions caps how many player options a single turn offers.
const MaxOptions = 6

// Store owns the dialogue forests for all characters. A single mutex
// guards the forest map and per-tree visit state.
type Store struct {
	mu    sync.Mutex
	trees map[string][]*Tree // keyed by character id
	now   func() time.Time
}

// NewStore creates an empty store. Pass nil to use time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		trees: make(map[string][]*Tree),
		now:   now,
	}
}

// AddTrees registers trees for a character.
func (s *Store) AddTrees(characterID string, trees ...*Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees[characterID] = append(s.trees[characterID], trees...)
}

// Trees returns the character's dialogue forest.
func (s *Store) Trees(characterID string) []*Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trees[characterID]
}

// AvailableOptions returns the player-speaker nodes currently on
// offer: for each unlocked tree, every offerable player child of
// every reachable node whose conditions hold, merged across trees,
// de-duplicated by id (first occurrence wins), sorted by priority
// descending, and truncated to MaxOptions.
func (s *Store) AvailableOptions(characterID string, env Env) []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if env.Now.IsZero() {
		env.Now = now
	}

	var options []*Node
	seen := make(map[string]bool)

	for _, tree := range s.trees[characterID] {
		if !Eval(tree.UnlockConditions, env) {
			continue
		}
		for _, n := range tree.reachable() {
			for _, childID := range n.Children {
				child, ok := tree.Nodes[childID]
				if !ok || !child.IsPlayer() || seen[child.ID] {
					continue
				}
				if !tree.offerable(child, now) {
					continue
				}
				if !Eval(child.Conditions, env) {
					continue
				}
				seen[child.ID] = true
				options = append(options, child)
			}
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Priority > options[j].Priority
	})
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}
	return options
}

// Selection is the result of choosing a player option: the
// character's response node, the follow-up player options hanging
// off that response, the consequences to apply, and any memory topic
// the response should call back to.
type Selection struct {
	Tree        *Tree
	Option      *Node
	Response    *Node
	NextOptions []*Node
	Effects     []Effect
	MemoryTopic string
}

// SelectOption marks the node visited, records its usage time for
// cooldown purposes, and resolves the character's response. The
// response is the first character-speaker child; next options are
// the player-speaker children of that response.
func (s *Store) SelectOption(characterID, nodeID string) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, node := s.findNode(characterID, nodeID)
	if node == nil {
		return nil, fmt.Errorf("selecting node %q for character %q: %w", nodeID, characterID, ErrNodeNotFound)
	}

	now := s.now()
	tree.Visited[node.ID] = true
	tree.LastUsed[node.ID] = now
	if tree.Completion == CompletionNotStarted {
		tree.Completion = CompletionInProgress
	}

	sel := &Selection{
		Tree:    tree,
		Option:  node,
		Effects: node.Effects,
	}

	for _, childID := range node.Children {
		child, ok := tree.Nodes[childID]
		if !ok || child.IsPlayer() {
			continue
		}
		sel.Response = child
		break
	}

	if sel.Response != nil {
		tree.Visited[sel.Response.ID] = true
		sel.Effects = append(sel.Effects, sel.Response.Effects...)
		if sel.Response.Role == RoleMemoryReference {
			sel.MemoryTopic = sel.Response.MemoryTopic
		}
		hasPlayerChild := false
		for _, childID := range sel.Response.Children {
			child, ok := tree.Nodes[childID]
			if !ok || !child.IsPlayer() {
				continue
			}
			hasPlayerChild = true
			sel.NextOptions = append(sel.NextOptions, child)
		}
		if !hasPlayerChild {
			tree.Completion = CompletionCompleted
		}
	}

	return sel, nil
}

// AttachNodes adds dynamically generated nodes under an existing
// parent. Attachment is additive only: existing nodes are never
// replaced or removed.
func (s *Store) AttachNodes(characterID, treeID, parentID string, nodes []*Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tree *Tree
	for _, t := range s.trees[characterID] {
		if t.ID == treeID {
			tree = t
			break
		}
	}
	if tree == nil {
		return fmt.Errorf("attaching to tree %q for character %q: %w", treeID, characterID, ErrTreeNotFound)
	}
	parent, ok := tree.Nodes[parentID]
	if !ok {
		return fmt.Errorf("attaching under node %q: %w", parentID, ErrNodeNotFound)
	}

	for _, n := range nodes {
		if _, exists := tree.Nodes[n.ID]; exists {
			return fmt.Errorf("node %q already exists in tree %q", n.ID, treeID)
		}
	}
	for _, n := range nodes {
		tree.Nodes[n.ID] = n
		parent.Children = append(parent.Children, n.ID)
	}
	return nil
}

func (s *Store) findNode(characterID, nodeID string) (*Tree, *Node) {
	for _, tree := range s.trees[characterID] {
		if n, ok := tree.Nodes[nodeID]; ok {
			return tree, n
		}
	}
	return nil, nil
}
