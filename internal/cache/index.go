// Package cache 维护设备、备件、人员的内存只读视图，
// 通过数据变更事件流增量更新。
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Op 变更类型
type Op string

const (
	OpAdded    Op = "added"
	OpModified Op = "modified"
	OpRemoved  Op = "removed"
)

// Change 一条实体变更事件
type Change[T any] struct {
	EventID string    `json:"event_id"`
	Op      Op        `json:"op"`
	ID      string    `json:"id"`
	Entity  *T        `json:"entity,omitempty"`
	At      time.Time `json:"at"`
}

// NewChange 构造变更事件
func NewChange[T any](op Op, id string, entity *T) Change[T] {
	return Change[T]{
		EventID: uuid.NewString(),
		Op:      op,
		ID:      id,
		Entity:  entity,
		At:      time.Now().UTC(),
	}
}

// Index 以实体 ID 为键的并发安全索引
type Index[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	key   func(*T) string
}

// NewIndex 创建索引，key 返回实体 ID
func NewIndex[T any](key func(*T) string) *Index[T] {
	return &Index[T]{items: make(map[string]T), key: key}
}

// Apply 应用一条变更，返回是否产生了修改
func (ix *Index[T]) Apply(ch Change[T]) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	switch ch.Op {
	case OpAdded, OpModified:
		if ch.Entity == nil {
			return false
		}
		id := ch.ID
		if id == "" {
			id = ix.key(ch.Entity)
		}
		ix.items[id] = *ch.Entity
		return true
	case OpRemoved:
		if _, ok := ix.items[ch.ID]; !ok {
			return false
		}
		delete(ix.items, ch.ID)
		return true
	}
	return false
}

// Replace 整体替换索引内容（初始加载）
func (ix *Index[T]) Replace(items []T) {
	next := make(map[string]T, len(items))
	for i := range items {
		next[ix.key(&items[i])] = items[i]
	}
	ix.mu.Lock()
	ix.items = next
	ix.mu.Unlock()
}

// Get 按 ID 读取副本
func (ix *Index[T]) Get(id string) (T, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	v, ok := ix.items[id]
	return v, ok
}

// List 按 ID 升序返回全部副本
func (ix *Index[T]) List() []T {
	ix.mu.RLock()
	ids := make([]string, 0, len(ix.items))
	for id := range ix.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, ix.items[id])
	}
	ix.mu.RUnlock()
	return out
}

// Len 实体数量
func (ix *Index[T]) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.items)
}
