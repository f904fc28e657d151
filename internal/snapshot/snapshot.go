package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/muurk/dmxsync/internal/logging"
	"go.uber.org/zap"
)

// Snapshot is an ordered mapping from field key to scalar value. Key order
// follows first insertion and is preserved through JSON.
//
// A nil *Snapshot behaves as an empty one for reads.
type Snapshot struct {
	keys   []string
	values map[string]Value
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{values: make(map[string]Value)}
}

// Set stores v under key and returns s for chaining.
func (s *Snapshot) Set(key string, v Value) *Snapshot {
	if s.values == nil {
		s.values = make(map[string]Value)
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
	return s
}

// Get returns the value stored under key.
func (s *Snapshot) Get(key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Delete removes key.
func (s *Snapshot) Delete(key string) {
	if s == nil {
		return
	}
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i:i], s.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (s *Snapshot) Range(fn func(key string, v Value) bool) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		if !fn(k, s.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := New()
	s.Range(func(k string, v Value) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// Merge returns a new snapshot holding s overlaid with other. Keys only in s
// keep their position; new keys from other are appended.
func (s *Snapshot) Merge(other *Snapshot) *Snapshot {
	out := s.Clone()
	other.Range(func(k string, v Value) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// Equal reports whether both snapshots hold the same keys and values,
// regardless of order.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s.Len() != other.Len() {
		return false
	}
	equal := true
	s.Range(func(k string, v Value) bool {
		ov, ok := other.Get(k)
		if !ok || ov != v {
			equal = false
		}
		return equal
	})
	return equal
}

// Map returns the snapshot as a plain map of Go scalars.
func (s *Snapshot) Map() map[string]any {
	out := make(map[string]any, s.Len())
	s.Range(func(k string, v Value) bool {
		out[k] = v.Interface()
		return true
	})
	return out
}

// MarshalJSON encodes the snapshot as a JSON object in key order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	i := 0
	s.Range(func(k string, v Value) bool {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = json.Marshal(v); err != nil {
			return false
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order. Null, object and
// array members are skipped; the device only reports scalars.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("snapshot: expected JSON object")
	}

	*s = Snapshot{values: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("snapshot: expected object key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			logging.Debug("Skipping non-scalar snapshot member", zap.String("key", key))
			continue
		}
		s.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Parse decodes a JSON object into a new snapshot.
func Parse(data []byte) (*Snapshot, error) {
	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}
