package workflow

import (
	"encoding/json"
	"errors"
	"sync"
)

// DataStore is the open-ended key/value document shared across the
// lifetime of a work instance. It is safe for concurrent use.
type DataStore struct {
	mu sync.RWMutex
	m  map[string]interface{}
}

// NewDataStore creates a data store holding a shallow copy of m.
func NewDataStore(m map[string]interface{}) *DataStore {
	ds := &DataStore{m: make(map[string]interface{}, len(m))}
	for k, v := range m {
		ds.m[k] = v
	}
	return ds
}

// Get returns the value for key.
func (ds *DataStore) Get(key string) (interface{}, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	v, ok := ds.m[key]
	return v, ok
}

// Set sets key to value.
func (ds *DataStore) Set(key string, value interface{}) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.m == nil {
		ds.m = make(map[string]interface{})
	}
	ds.m[key] = value
}

// Delete removes key.
func (ds *DataStore) Delete(key string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.m, key)
}

// Merge sets every key of m. A nil value deletes the key.
func (ds *DataStore) Merge(m map[string]interface{}) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.m == nil {
		ds.m = make(map[string]interface{}, len(m))
	}
	for k, v := range m {
		if v == nil {
			delete(ds.m, k)
			continue
		}
		ds.m[k] = v
	}
}

// Len returns the number of keys.
func (ds *DataStore) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return len(ds.m)
}

// Map returns a shallow copy of the data store contents.
func (ds *DataStore) Map() map[string]interface{} {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	m := make(map[string]interface{}, len(ds.m))
	for k, v := range ds.m {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the data store as a JSON object.
func (ds *DataStore) MarshalJSON() ([]byte, error) {
	return json.Marshal(ds.Map())
}

// UnmarshalJSON replaces the contents of ds with the JSON object in data.
func (ds *DataStore) UnmarshalJSON(data []byte) error {
	if ds == nil {
		return errors.New("nil value")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.m = m
	if ds.m == nil {
		ds.m = make(map[string]interface{})
	}
	return nil
}

// MarshalBinary is the storage encoding of the data store.
func (ds *DataStore) MarshalBinary() ([]byte, error) {
	return ds.MarshalJSON()
}

// UnmarshalBinary loads the storage encoding of the data store.
func (ds *DataStore) UnmarshalBinary(data []byte) error {
	return ds.UnmarshalJSON(data)
}
