package cache

import (
	"fmt"
	"sync"
)

// Cache мемоизирует чтения сущностей. Ключ включает версию; кроме того,
// кеш помнит последнюю записанную версию каждой сущности, поэтому GetLatest
// обслуживает чтение без похода в базу. Каждая мутация обязана звать
// Invalidate, иначе GetLatest отдаст устаревшее значение.
type Cache interface {
	Get(entityType, entityID string, version int) ([]byte, bool)
	GetLatest(entityType, entityID string) ([]byte, bool)
	Set(entityType, entityID string, version int, value []byte)
	Invalidate(entityType, entityID string)
}

// MemoryCache - потокобезопасная реализация Cache в памяти процесса.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	keys    map[string]map[string]struct{} // entity -> набор ключей с версиями
	latest  map[string]int                 // entity -> последняя записанная версия
}

// NewMemoryCache создаёт новый экземпляр MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]byte),
		keys:    make(map[string]map[string]struct{}),
		latest:  make(map[string]int),
	}
}

func cacheKey(entityType, entityID string, version int) string {
	return fmt.Sprintf("%s:%s:v%d", entityType, entityID, version)
}

func entityKey(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// Get возвращает закешированное значение для версии сущности.
func (c *MemoryCache) Get(entityType, entityID string, version int) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.entries[cacheKey(entityType, entityID, version)]
	return value, ok
}

// GetLatest возвращает значение последней записанной версии сущности.
func (c *MemoryCache) GetLatest(entityType, entityID string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	version, ok := c.latest[entityKey(entityType, entityID)]
	if !ok {
		return nil, false
	}
	value, ok := c.entries[cacheKey(entityType, entityID, version)]
	return value, ok
}

// Set сохраняет значение для версии сущности.
func (c *MemoryCache) Set(entityType, entityID string, version int, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(entityType, entityID, version)
	c.entries[key] = value

	entity := entityKey(entityType, entityID)
	if c.keys[entity] == nil {
		c.keys[entity] = make(map[string]struct{})
	}
	c.keys[entity][key] = struct{}{}
	if version >= c.latest[entity] {
		c.latest[entity] = version
	}
}

// Invalidate удаляет все версии сущности из кеша.
func (c *MemoryCache) Invalidate(entityType, entityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entity := entityKey(entityType, entityID)
	for key := range c.keys[entity] {
		delete(c.entries, key)
	}
	delete(c.keys, entity)
	delete(c.latest, entity)
}
