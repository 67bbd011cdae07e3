package usermeta

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
)

// Metadata is a JSON object keyed by top-level field.
type Metadata map[string]json.RawMessage

// User is one identity with its two metadata documents.
type User struct {
	ID              string
	PublicMetadata  Metadata
	PrivateMetadata Metadata
}

// Update names the top-level keys to replace in each document.
type Update struct {
	Public  Metadata
	Private Metadata
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Public) == 0 && len(u.Private) == 0
}

// Store reads and shallow-merges user metadata.
type Store interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	UpdateUserMetadata(ctx context.Context, userID string, upd Update) error
}

// UserLister enumerates known user ids. fn errors stop the iteration and are
// returned as is.
type UserLister interface {
	ListUserIDs(ctx context.Context, fn func(userID string) error) error
}

// Locker serializes work per key. The returned unlock is safe to call more
// than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Decode unmarshals m[key] into v. It reports false when the key is absent
// or JSON null.
func (m Metadata) Decode(key string, v any) (bool, error) {
	raw, ok := m[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Join(ErrInvalidMetadata, err)
	}
	return true, nil
}

// Set marshals v under key.
func (m Metadata) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrInvalidMetadata, err)
	}
	m[key] = raw
	return nil
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Merge applies src on top of m in place.
func (m Metadata) Merge(src Metadata) {
	maps.Copy(m, src.Clone())
}

func parseDocument(raw []byte) (Metadata, error) {
	m := Metadata{}
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Join(ErrInvalidMetadata, err)
	}
	if m == nil {
		m = Metadata{}
	}
	return m, nil
}

func marshalDocument(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Join(ErrInvalidMetadata, err)
	}
	return b, nil
}

func newUser(id string) *User {
	return &User{ID: id, PublicMetadata: Metadata{}, PrivateMetadata: Metadata{}}
}
