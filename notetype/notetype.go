// Package notetype defines the pluggable note body formats.
//
// The store is agnostic to body syntax: the only capabilities it relies on
// are referent extraction and referent rewriting. New formats can be added
// by implementing Type and Body.
package notetype

import "github.com/notegraf/notegraf"

// Body is one revision's content in a specific note format.
//
// Body values are immutable; UpdateReferent returns a rewritten copy.
type Body interface {
	// String renders the body to the string form the store persists.
	String() string
	// Referents lists the notes the body links to, without duplicates.
	Referents() ([]notegraf.NoteID, error)
	// UpdateReferent returns a copy of the body with every link to old
	// rewritten to point at new. It is a no-op when old == new, and fails
	// with ReferenceNotExistError when the body does not link to old.
	UpdateReferent(old, new notegraf.NoteID) (Body, error)
}

// Type parses persisted strings back into bodies.
type Type interface {
	// Name is a short stable identifier of the format.
	Name() string
	// Parse converts the persisted string form into a Body.
	Parse(s string) (Body, error)
}

// ReferenceNotExistError reports an UpdateReferent call naming a note the
// body does not link to.
type ReferenceNotExistError struct {
	ID notegraf.NoteID
}

func (e *ReferenceNotExistError) Error() string {
	return "this note doesn't refer to `" + e.ID.String() + "`"
}

func containsID(ids []notegraf.NoteID, id notegraf.NoteID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
