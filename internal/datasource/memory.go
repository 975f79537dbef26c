package datasource

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
)

// Fixtures is the YAML document read by LoadFixtures.
type Fixtures struct {
	Nodes []*Node `yaml:"nodes"`
}

// MemoryStore keeps nodes in memory. It backs tests and fixture-driven
// development servers.
type MemoryStore struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	nextID int
	loads  int
}

var _ ReadWriter = (*MemoryStore)(nil)

// NewMemoryStore returns a store holding copies of nodes.
func NewMemoryStore(nodes ...*Node) *MemoryStore {
	s := &MemoryStore{nodes: make(map[string]*Node)}
	for _, n := range nodes {
		s.put(n.Clone())
	}
	return s
}

// LoadFixtures parses a fixtures document. Unknown keys are rejected.
func LoadFixtures(data []byte) ([]*Node, error) {
	var f Fixtures
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, n := range f.Nodes {
		if n == nil || n.Type == "" {
			return nil, fmt.Errorf("fixture node %d: type is required", i)
		}
		if n.DatabaseID == 0 && n.ID == "" {
			return nil, fmt.Errorf("fixture node %d: id or databaseId is required", i)
		}
	}
	return f.Nodes, nil
}

// OpenMemoryStore loads a fixtures file into a new MemoryStore.
func OpenMemoryStore(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	nodes, err := LoadFixtures(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewMemoryStore(nodes...), nil
}

func (s *MemoryStore) put(n *Node) {
	if n.DatabaseID == 0 {
		s.nextID++
		n.DatabaseID = s.nextID
	} else if n.DatabaseID > s.nextID {
		s.nextID = n.DatabaseID
	}
	if n.ID == "" {
		n.ID = GlobalID(n.Type, n.DatabaseID)
	}
	s.nodes[n.ID] = n
}

func (s *MemoryStore) Name() string { return "memory" }

// LoadCalls reports how many times LoadNodes ran.
func (s *MemoryStore) LoadCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}

func (s *MemoryStore) GetValue(_ context.Context, storageKey, contextID string, _ bool) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[contextID]
	if !ok {
		return nil, nil
	}
	return n.Meta[storageKey], nil
}

func (s *MemoryStore) LoadNodes(_ context.Context, ids []string) ([]*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = s.nodes[id].Clone()
	}
	return out, nil
}

func (s *MemoryStore) QueryNodes(_ context.Context, q Query) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Node
	for _, n := range s.nodes {
		if q.Matches(n) {
			out = append(out, n.Clone())
		}
	}
	SortNodes(out, q.Order)
	return out, nil
}

func (s *MemoryStore) SaveNode(_ context.Context, n *Node) (*Node, error) {
	if n == nil || n.Type == "" {
		return nil, fmt.Errorf("save node: type is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := n.Clone()
	s.put(c)
	return c.Clone(), nil
}

func (s *MemoryStore) DeleteNode(_ context.Context, id string) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.nodes, id)
	return n, nil
}
