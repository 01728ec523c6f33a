package readmodel

import (
	"context"
	"sync"
)

// MemoryStore 内存读模型存储，用于测试与本地运行。
type MemoryStore struct {
	collections map[string]map[string]any
	mu          sync.RWMutex
}

// NewMemoryStore 创建内存读模型存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]any)}
}

// Upsert 按 ID 覆写文档。
func (s *MemoryStore) Upsert(_ context.Context, collection, id string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]any)
		s.collections[collection] = coll
	}
	coll[id] = doc

	return nil
}

// Delete 删除文档。
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if coll, ok := s.collections[collection]; ok {
		delete(coll, id)
	}

	return nil
}

// All 返回集合内全部文档的拷贝，供测试断言使用。
func (s *MemoryStore) All(collection string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		out[id] = doc
	}

	return out
}

// Get 读取文档，供测试断言使用。
func (s *MemoryStore) Get(collection, id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, false
	}
	doc, ok := coll[id]

	return doc, ok
}
