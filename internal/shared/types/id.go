// Package types holds identifiers shared by the assessment store, the API and
// the event payloads.
package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is the canonical lowercase text form of a UUID. The zero ID is empty and
// maps to SQL NULL.
type ID string

// NewID returns a time-ordered UUIDv7 so assessment rows cluster by creation.
func NewID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return ID(u.String())
}

// ParseID accepts any spelling uuid.Parse understands (braces, urn:uuid:,
// upper case) and returns the canonical form.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID %q: %w", s, err)
	}
	return ID(u.String()), nil
}

// MustParseID is ParseID for constants and tests.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

// UUID returns the binary form.
func (id ID) UUID() (uuid.UUID, error) {
	return uuid.Parse(string(id))
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id), nil
}

// UnmarshalText rejects anything that is not a UUID, except the empty string.
func (id *ID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ""
		return nil
	}
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return string(id), nil
}

// Scan accepts the text and binary UUID forms drivers hand back.
func (id *ID) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*id = ""
		return nil
	case [16]byte:
		*id = ID(uuid.UUID(v).String())
		return nil
	case uuid.UUID:
		*id = ID(v.String())
		return nil
	case string:
		return id.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 16 {
			*id = ID(uuid.UUID(v).String())
			return nil
		}
		return id.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
}
