// Package notestore provides the storage backends of notes.
//
// The Store interface is the contract every backend implements. Two
// backends ship with the package: InMemoryStore, a single-process reference
// implementation, and PostgresStore, the production implementation over a
// transactional PostgreSQL schema.
package notestore

import (
	"context"
	"errors"

	"github.com/notegraf/notegraf"
	"github.com/notegraf/notegraf/notetype"
)

// ErrBackupUnsupported is returned by backends that delegate backup to the
// database's native tooling.
var ErrBackupUnsupported = errors.New("backup is not supported by this backend, use the database's own tooling")

// Note is the full view of one revision, joined with the graph relations
// derived from the set of current revisions.
//
// Parent, Prev and Referents are stored on the revision itself; Branches,
// Next and References are derived projections and therefore always reflect
// the current graph, even when the viewed revision is historical.
type Note struct {
	ID         notegraf.NoteID
	Revision   notegraf.Revision
	Title      string
	Body       notetype.Body
	Parent     *notegraf.NoteID
	Branches   []notegraf.NoteID
	Prev       *notegraf.NoteID
	Next       *notegraf.NoteID
	Referents  []notegraf.NoteID
	References []notegraf.NoteID
	Metadata   notegraf.Metadata
	IsCurrent  bool
}

// Change describes an update to a note. Nil fields leave the stored value
// unchanged.
type Change struct {
	Title    *string
	Body     notetype.Body
	Metadata notegraf.MetadataPatch
}

// Store is the abstract contract of a note storage backend.
//
// Every operation is atomic: on failure no partial effects are visible to
// other operations. Mutations of the same note are linearized on the move
// of its current-revision pointer.
type Store interface {
	// NewNote creates a note with a fresh NoteID and Revision and returns a
	// specific locator for the created revision.
	NewNote(ctx context.Context, title string, body notetype.Body, patch notegraf.MetadataPatch) (notegraf.Locator, error)

	// GetNote resolves a locator into a full note view.
	GetNote(ctx context.Context, loc notegraf.Locator) (*Note, error)

	// UpdateNote appends a new revision carrying the change and makes it
	// current. The locator must point at the current revision, except that a
	// specific locator naming a revision of a deleted note resurrects the
	// note from that revision.
	UpdateNote(ctx context.Context, loc notegraf.Locator, change Change) (notegraf.Locator, error)

	// DeleteNote removes the current-revision pointer of a note. The note's
	// revisions stay addressable. Deletion is rejected while the note has
	// branches or incoming references; deleting an interior sequence node
	// rewires the successor past the deleted note.
	DeleteNote(ctx context.Context, loc notegraf.Locator) error

	// CurrentRevision returns the current revision of a note, or ok=false
	// when the note is deleted.
	CurrentRevision(ctx context.Context, id notegraf.NoteID) (rev notegraf.Revision, ok bool, err error)

	// Revisions returns every revision of a note, oldest first.
	Revisions(ctx context.Context, id notegraf.NoteID) ([]*Note, error)

	// AppendNote makes next the successor of last by appending a revision of
	// next with prev set to last. Fails when last already has a successor.
	AppendNote(ctx context.Context, last, next notegraf.NoteID) error

	// AddBranch makes child a branch of parent by appending a revision of
	// child with parent set.
	AddBranch(ctx context.Context, parent, child notegraf.NoteID) error

	// Search returns the current notes matching the request, most recently
	// modified first.
	Search(ctx context.Context, req SearchRequest) ([]*Note, error)

	// Backup serializes the whole store into dir. Backends without a
	// portable serialization return ErrBackupUnsupported.
	Backup(ctx context.Context, dir string) error
}

func containsID(ids []notegraf.NoteID, id notegraf.NoteID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
