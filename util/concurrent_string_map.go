package util

import (
	"sync"
)

// ConcurrentStringMap maps a string key to a list of strings and remembers
// the order in which keys were first added.
type ConcurrentStringMap struct {
	keys []string
	data map[string][]string
	sync.RWMutex
}

func NewConcurrentStringMap() *ConcurrentStringMap {
	var concurrentStringMap ConcurrentStringMap
	concurrentStringMap.data = make(map[string][]string)

	return &concurrentStringMap
}

func (m *ConcurrentStringMap) Append(key string, values ...string) {
	m.Lock()
	defer m.Unlock()

	m.appendLocked(key, values...)
}

// AppendToKeys appends value to every key in one critical section.
func (m *ConcurrentStringMap) AppendToKeys(keys []string, value string) {
	m.Lock()
	defer m.Unlock()

	for _, key := range keys {
		m.appendLocked(key, value)
	}
}

func (m *ConcurrentStringMap) appendLocked(key string, values ...string) {
	if _, keyFound := m.data[key]; !keyFound {
		m.keys = append(m.keys, key)
	}
	m.data[key] = append(m.data[key], values...)
}

func (m *ConcurrentStringMap) Get(key string) ([]string, bool) {
	m.RLock()
	defer m.RUnlock()

	values, keyFound := m.data[key]
	if !keyFound {
		return nil, false
	}

	return append([]string(nil), values...), true
}

func (m *ConcurrentStringMap) Len() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.keys)
}

func (m *ConcurrentStringMap) HasKey(key string) bool {
	m.RLock()
	defer m.RUnlock()

	_, keyFound := m.data[key]

	return keyFound
}

// ApplyOperation visits keys in insertion order. The values slice is a copy.
func (m *ConcurrentStringMap) ApplyOperation(operation func(string, []string)) {
	m.RLock()
	defer m.RUnlock()

	for _, key := range m.keys {
		operation(key, append([]string(nil), m.data[key]...))
	}
}
