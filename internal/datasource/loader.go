package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
)

type loadResult struct {
	node *Node
	err  error
}

// Loader batches node loads within one request. Load only queues an id; the
// first Await fetches every queued id with a single LoadNodes call.
type Loader struct {
	store Store

	mu      sync.Mutex
	pending []string
	queued  map[string]struct{}
	cache   map[string]loadResult
}

// NewLoader returns an empty loader reading from store.
func NewLoader(store Store) *Loader {
	return &Loader{
		store:  store,
		queued: make(map[string]struct{}),
		cache:  make(map[string]loadResult),
	}
}

// Store returns the underlying store.
func (l *Loader) Store() Store { return l.store }

// Load queues id and returns its deferred node.
func (l *Loader) Load(id string) *Deferred {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.cache[id]; !done {
		if _, ok := l.queued[id]; !ok {
			l.queued[id] = struct{}{}
			l.pending = append(l.pending, id)
		}
	}
	return &Deferred{loader: l, id: id}
}

// LoadMany queues every id.
func (l *Loader) LoadMany(ids []string) []*Deferred {
	out := make([]*Deferred, len(ids))
	for i, id := range ids {
		out[i] = l.Load(id)
	}
	return out
}

// Prime stores n so later loads of its id do not hit the store.
func (l *Loader) Prime(n *Node) {
	if n == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[n.ID] = loadResult{node: n}
}

// Clear forgets id, e.g. after a mutation changed it.
func (l *Loader) Clear(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, id)
}

func (l *Loader) get(ctx context.Context, id string) (*Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.cache[id]; ok {
		return r.node, r.err
	}
	if _, ok := l.queued[id]; !ok {
		l.queued[id] = struct{}{}
		l.pending = append(l.pending, id)
	}
	l.flush(ctx)
	r := l.cache[id]
	return r.node, r.err
}

// flush loads all pending ids. The caller holds l.mu.
func (l *Loader) flush(ctx context.Context) {
	ids := l.pending
	l.pending = nil
	l.queued = make(map[string]struct{})
	if len(ids) == 0 {
		return
	}

	start := time.Now()
	nodes, err := l.store.LoadNodes(ctx, ids)
	found := 0
	for i, id := range ids {
		if err != nil {
			l.cache[id] = loadResult{err: err}
			continue
		}
		var n *Node
		if i < len(nodes) {
			n = nodes[i]
		}
		if n != nil {
			found++
		}
		l.cache[id] = loadResult{node: n}
	}
	eventbus.Publish(ctx, events.LoaderBatch{
		Store:    l.store.Name(),
		Keys:     len(ids),
		Found:    found,
		Err:      err,
		Duration: time.Since(start),
	})
}

// Deferred is a node that is fetched on first Await.
type Deferred struct {
	loader *Loader
	id     string
}

// ID returns the id being loaded.
func (d *Deferred) ID() string { return d.id }

// Node waits for the node. A missing node is nil without error.
func (d *Deferred) Node(ctx context.Context) (*Node, error) {
	return d.loader.get(ctx, d.id)
}

// Await returns the loaded node as a resolver value, or untyped nil when it
// does not exist.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	n, err := d.Node(ctx)
	if err != nil || n == nil {
		return nil, err
	}
	return n, nil
}
