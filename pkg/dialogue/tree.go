package dialogue

import "time"

// CompletionStatus is advisory metadata on a tree's progress; the
// store records it but does not enforce it.
type CompletionStatus string

const (
	CompletionNotStarted CompletionStatus = "not_started"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
	CompletionLocked     CompletionStatus = "locked"
)

// Category tags a tree's topic.
type Category string

const (
	CategoryGreeting Category = "greeting"
	CategoryConflict Category = "conflict"
	CategoryQuest    Category = "quest"
	CategoryPersonal Category = "personal_story"
	CategoryTrade    Category = "trade"
	CategoryRomance  Category = "romance"
	CategoryDynamic  Category = "dynamic"
)

// Tree is a rooted forest entry: one topic's dialogue graph for one
// character, plus its visitation state.
type Tree struct {
	ID               string               `json:"id"`
	CharacterID      string               `json:"character_id"`
	RootID           string               `json:"root_id"`
	Nodes            map[string]*Node     `json:"nodes"`
	Category         Category             `json:"category"`
	UnlockConditions []Condition          `json:"unlock_conditions,omitempty"`
	Visited          map[string]bool      `json:"visited,omitempty"`
	LastUsed         map[string]time.Time `json:"last_used,omitempty"`
	Completion       CompletionStatus     `json:"completion"`
}

// NewTree builds a tree from its nodes. The root must be present in
// the node map.
func NewTree(id, characterID string, category Category, root *Node, rest ...*Node) *Tree {
	nodes := make(map[string]*Node, len(rest)+1)
	nodes[root.ID] = root
	for _, n := range rest {
		nodes[n.ID] = n
	}
	return &Tree{
		ID:          id,
		CharacterID: characterID,
		RootID:      root.ID,
		Nodes:       nodes,
		Category:    category,
		Visited:     make(map[string]bool),
		LastUsed:    make(map[string]time.Time),
		Completion:  CompletionNotStarted,
	}
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node {
	return t.Nodes[t.RootID]
}

// reachable walks the tree from the root and returns every node
// connected to it, in breadth-first order.
func (t *Tree) reachable() []*Node {
	root := t.Root()
	if root == nil {
		return nil
	}
	seen := map[string]bool{root.ID: true}
	queue := []*Node{root}
	var out []*Node
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		for _, childID := range n.Children {
			child, ok := t.Nodes[childID]
			if !ok || seen[childID] {
				continue
			}
			seen[childID] = true
			queue = append(queue, child)
		}
	}
	return out
}

// offerable reports whether a node may currently be offered: its
// one-time flag is not spent and any cooldown has elapsed.
func (t *Tree) offerable(n *Node, now time.Time) bool {
	if n.OneTime && t.Visited[n.ID] {
		return false
	}
	if n.Cooldown > 0 {
		if last, ok := t.LastUsed[n.ID]; ok && now.Sub(last) < n.Cooldown {
			return false
		}
	}
	return true
}
