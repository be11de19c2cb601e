package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

type memCollections map[string]map[string]Document

func (m memCollections) put(collection, id string, data json.RawMessage) {
	c, ok := m[collection]
	if !ok {
		c = make(map[string]Document)
		m[collection] = c
	}
	c[id] = Document{ID: id, Data: cloneRaw(data), UpdatedAt: time.Now().UTC()}
}

func (m memCollections) get(collection, id string) (Document, bool) {
	d, ok := m[collection][id]
	if !ok {
		return Document{}, false
	}
	d.Data = cloneRaw(d.Data)
	return d, true
}

func (m memCollections) list(collection string, filters ...Filter) []Document {
	out := make([]Document, 0, len(m[collection]))
	for _, d := range m[collection] {
		if Match(d, filters...) {
			d.Data = cloneRaw(d.Data)
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

// MemoryRemote is an in-process remote store. Failures and hangs can be
// injected to simulate an unreachable backend.
type MemoryRemote struct {
	mu      sync.RWMutex
	data    memCollections
	failErr error
	hang    bool
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{data: make(memCollections)}
}

// SetFailure makes every subsequent call return err. Nil restores service.
func (m *MemoryRemote) SetFailure(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// SetHang makes every subsequent call block until its context ends.
func (m *MemoryRemote) SetHang(hang bool) {
	m.mu.Lock()
	m.hang = hang
	m.mu.Unlock()
}

// Seed stores v as JSON, bypassing any injected failure.
func (m *MemoryRemote) Seed(collection, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data.put(collection, id, b)
	m.mu.Unlock()
	return nil
}

// Len counts stored documents of a collection, bypassing injected failure.
func (m *MemoryRemote) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[collection])
}

func (m *MemoryRemote) check(ctx context.Context) error {
	m.mu.RLock()
	hang, failErr := m.hang, m.failErr
	m.mu.RUnlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return failErr
}

func (m *MemoryRemote) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := m.check(ctx); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data.get(collection, id)
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryRemote) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.list(collection, filters...), nil
}

func (m *MemoryRemote) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.put(collection, id, data)
	return nil
}

func (m *MemoryRemote) Delete(ctx context.Context, collection, id string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[collection], id)
	return nil
}

// MemoryLocal is a non-durable Local used in ephemeral mode and tests.
type MemoryLocal struct {
	mu      sync.Mutex
	data    memCollections
	failErr error
}

func NewMemoryLocal() *MemoryLocal {
	return &MemoryLocal{data: make(memCollections)}
}

// SetFailure makes every subsequent write return err.
func (m *MemoryLocal) SetFailure(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

func (m *MemoryLocal) Append(key, id string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.data.put(key, id, data)
	return nil
}

func (m *MemoryLocal) Update(key, id string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	d, ok := m.data.get(key, id)
	if !ok {
		return ErrNotFound
	}
	data, err := mergePatch(d.Data, patch)
	if err != nil {
		return err
	}
	m.data.put(key, id, data)
	return nil
}

func (m *MemoryLocal) Get(key, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data.get(key, id)
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryLocal) List(key string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.list(key), nil
}

func (m *MemoryLocal) Delete(key, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[key], id)
	return nil
}
