package util

import (
	"sync"
)

// ConcurrentSlice is an ordered set of strings.
type ConcurrentSlice struct {
	data []string
	sync.RWMutex
}

func NewConcurrentSlice(values ...string) *ConcurrentSlice {
	var concurrentSlice ConcurrentSlice
	concurrentSlice.data = make([]string, 0, len(values))
	for _, value := range values {
		concurrentSlice.appendUnique(value)
	}

	return &concurrentSlice
}

// AppendUnique adds value unless it is already present and reports whether
// it was added.
func (m *ConcurrentSlice) AppendUnique(value string) bool {
	m.Lock()
	defer m.Unlock()

	return m.appendUnique(value)
}

func (m *ConcurrentSlice) appendUnique(value string) bool {
	for _, crntValue := range m.data {
		if crntValue == value {
			return false
		}
	}
	m.data = append(m.data, value)

	return true
}

func (m *ConcurrentSlice) DeleteValue(value string) bool {
	m.Lock()
	defer m.Unlock()

	for crntIndex, crntValue := range m.data {
		if crntValue == value {
			m.data = append(m.data[:crntIndex], m.data[crntIndex+1:]...)
			return true
		}
	}

	return false
}

func (m *ConcurrentSlice) Contains(value string) bool {
	m.RLock()
	defer m.RUnlock()

	for _, crntValue := range m.data {
		if crntValue == value {
			return true
		}
	}

	return false
}

func (m *ConcurrentSlice) Values() []string {
	m.RLock()
	defer m.RUnlock()

	return append([]string(nil), m.data...)
}

func (m *ConcurrentSlice) Len() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.data)
}
