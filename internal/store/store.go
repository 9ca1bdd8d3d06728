package store

import "encoding/json"

// Store is the string-keyed JSON store the checkout state machine runs on.
// It mirrors the best-effort contract of browser local storage: reads of
// missing or unreadable entries report absence, writes overwrite.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string)
}

// GetJSON unmarshals the entry at key into out. A corrupt entry is dropped
// and reported as absent rather than surfaced.
func GetJSON(s Store, key string, out any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.Delete(key)
		return false
	}
	return true
}

// SetJSON marshals value and writes it under key.
func SetJSON(s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(key, raw)
}
