package storage

import (
	"sort"
	"strings"
)

// Overlay buffers writes on top of a base DB. Reads observe buffered writes
// first. Nothing reaches the base until Flush hands the buffer to a batch,
// so dropping an Overlay discards its writes.
//
// An Overlay is not safe for concurrent use.
type Overlay struct {
	base   DB
	writes map[string][]byte // nil value marks a delete
}

// NewOverlay creates an empty overlay over base.
func NewOverlay(base DB) *Overlay {
	return &Overlay{base: base, writes: make(map[string][]byte)}
}

// Get returns the buffered value for key, falling back to the base.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if v, ok := o.writes[string(key)]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return cloneBytes(v), nil
	}
	return o.base.Get(key)
}

// Put buffers a write.
func (o *Overlay) Put(key, value []byte) error {
	o.writes[string(key)] = nonNil(cloneBytes(value))
	return nil
}

// Delete buffers a delete.
func (o *Overlay) Delete(key []byte) error {
	o.writes[string(key)] = nil
	return nil
}

// Has reports whether key exists in the overlay view.
func (o *Overlay) Has(key []byte) (bool, error) {
	if v, ok := o.writes[string(key)]; ok {
		return v != nil, nil
	}
	return o.base.Has(key)
}

// ForEach iterates the merged view in key order. Buffered writes shadow
// base values and buffered deletes hide them.
func (o *Overlay) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)
	merged := make(map[string][]byte)
	err := o.base.ForEach(prefix, func(key, value []byte) error {
		merged[string(key)] = cloneBytes(value)
		return nil
	})
	if err != nil {
		return err
	}
	for k, v := range o.writes {
		if !strings.HasPrefix(k, p) {
			continue
		}
		if v == nil {
			delete(merged, k)
		} else {
			merged[k] = cloneBytes(v)
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the base DB manages its own lifecycle.
func (o *Overlay) Close() error {
	return nil
}

// Len returns the number of buffered writes and deletes.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// Flush writes every buffered operation into b in key order. The caller
// commits or discards b.
func (o *Overlay) Flush(b Batch) error {
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := o.writes[k]
		var err error
		if v == nil {
			err = b.Delete([]byte(k))
		} else {
			err = b.Put([]byte(k), v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset drops all buffered writes.
func (o *Overlay) Reset() {
	o.writes = make(map[string][]byte)
}
