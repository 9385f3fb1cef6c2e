package notegraf

import "fmt"

// Locator identifies either the current revision of a note or one specific
// revision of it.
//
// A Locator naming a specific revision doubles as an optimistic-concurrency
// token: mutating operations fail when the named revision is no longer
// current.
type Locator struct {
	id  NoteID
	rev Revision // zero value means "current"
}

// Current returns a locator for the current revision of id.
func Current(id NoteID) Locator {
	return Locator{id: id}
}

// Specific returns a locator for revision rev of note id.
func Specific(id NoteID, rev Revision) Locator {
	return Locator{id: id, rev: rev}
}

// ID returns the note the locator refers to.
func (l Locator) ID() NoteID {
	return l.id
}

// Revision returns the revision the locator names. ok is false for a
// current-revision locator.
func (l Locator) Revision() (rev Revision, ok bool) {
	if l.rev == (Revision{}) {
		return Revision{}, false
	}
	return l.rev, true
}

// At returns a locator pointing at revision rev of the same note.
func (l Locator) At(rev Revision) Locator {
	return Specific(l.id, rev)
}

// Current returns a locator pointing at the current revision of the same
// note.
func (l Locator) Current() Locator {
	return Current(l.id)
}

func (l Locator) String() string {
	if rev, ok := l.Revision(); ok {
		return fmt.Sprintf("%s@%s", l.id, rev)
	}
	return fmt.Sprintf("%s@current", l.id)
}
