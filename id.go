// Package notegraf holds the core types of the note store: identifiers,
// locators, per-revision metadata, the internal URL codec, and the error
// taxonomy shared by all storage backends.
package notegraf

import (
	"fmt"

	"github.com/google/uuid"
)

// NoteID identifies a note across all of its revisions.
//
// IDs are random 128-bit values rendered in the canonical hyphenated
// lowercase form. Within a store a NoteID uniquely identifies one note.
type NoteID uuid.UUID

// Revision identifies one immutable snapshot of a note.
//
// Revisions share the generation and rendering rules of NoteID and are
// unique across all notes, so a Revision alone pins down a single snapshot.
type Revision uuid.UUID

// NewNoteID generates a fresh random NoteID.
func NewNoteID() NoteID {
	return NoteID(uuid.New())
}

// NewRevision generates a fresh random Revision.
func NewRevision() Revision {
	return Revision(uuid.New())
}

// ParseNoteID parses a NoteID from its string form. Parsing is lenient about
// case; rendering always produces the canonical lowercase form.
func ParseNoteID(s string) (NoteID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoteID{}, &ParseError{Msg: fmt.Sprintf("note id %q cannot be parsed: %v", s, err)}
	}
	return NoteID(u), nil
}

// ParseRevision parses a Revision from its string form.
func ParseRevision(s string) (Revision, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Revision{}, &ParseError{Msg: fmt.Sprintf("revision %q cannot be parsed: %v", s, err)}
	}
	return Revision(u), nil
}

func (id NoteID) String() string {
	return uuid.UUID(id).String()
}

// UUID returns the identifier as a uuid.UUID for database parameters.
func (id NoteID) UUID() uuid.UUID {
	return uuid.UUID(id)
}

// MarshalText implements encoding.TextMarshaler so NoteID works as a JSON
// string and as a JSON object key.
func (id NoteID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NoteID) UnmarshalText(b []byte) error {
	parsed, err := ParseNoteID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (r Revision) String() string {
	return uuid.UUID(r).String()
}

// UUID returns the revision as a uuid.UUID for database parameters.
func (r Revision) UUID() uuid.UUID {
	return uuid.UUID(r)
}

// MarshalText implements encoding.TextMarshaler.
func (r Revision) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Revision) UnmarshalText(b []byte) error {
	parsed, err := ParseRevision(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
