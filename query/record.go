package query

import (
	"sort"

	"github.com/zeebo/xxh3"
)

// Record is one set of key=value properties within a reply or event.
type Record map[string]Value

// Get returns the value for key.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r[key]
	return v, ok
}

// String returns the text of key, or "" when absent.
func (r Record) String(key string) string {
	return r[key].String()
}

// Int returns the integer value of key, or def when absent or not an integer.
func (r Record) Int(key string, def int64) int64 {
	v, ok := r[key]
	if !ok {
		return def
	}
	return v.IntOr(def)
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy. Values are immutable, so the copy is
// independent of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fingerprint hashes the record contents independently of map order.
// Two records with the same keys and texts have the same fingerprint.
func (r Record) Fingerprint() uint64 {
	h := xxh3.New()
	for _, k := range r.Keys() {
		h.WriteString(k)
		h.Write([]byte{0})
		h.WriteString(r[k].raw)
		h.Write([]byte{0})
	}
	return h.Sum64()
}
