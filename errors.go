package notegraf

import "fmt"

// NoteNotExistError reports an operation against an id with no note row.
type NoteNotExistError struct {
	ID NoteID
}

func (e *NoteNotExistError) Error() string {
	return fmt.Sprintf("note `%s` doesn't exist", e.ID)
}

// NoteDeletedError reports a current-revision access to a note that exists
// but has been deleted.
type NoteDeletedError struct {
	ID NoteID
}

func (e *NoteDeletedError) Error() string {
	return fmt.Sprintf("note `%s` is deleted, revision needed if resurrecting a deleted note", e.ID)
}

// NoteIDConflictError reports an attempt to create a note under an id that
// is already taken.
type NoteIDConflictError struct {
	ID NoteID
}

func (e *NoteIDConflictError) Error() string {
	return fmt.Sprintf("note `%s` already exists", e.ID)
}

// RevisionNotExistError reports an access to a revision that was never
// written.
type RevisionNotExistError struct {
	ID       NoteID
	Revision Revision
}

func (e *RevisionNotExistError) Error() string {
	return fmt.Sprintf("revision `%s` of note `%s` doesn't exist", e.Revision, e.ID)
}

// UpdateOldRevisionError reports an update against a revision that is no
// longer current.
type UpdateOldRevisionError struct {
	ID       NoteID
	Revision Revision
}

func (e *UpdateOldRevisionError) Error() string {
	return fmt.Sprintf("attempt to update non-current revision `%s` of note `%s`", e.Revision, e.ID)
}

// DeleteOldRevisionError reports a delete against a revision that is no
// longer current.
type DeleteOldRevisionError struct {
	ID       NoteID
	Revision Revision
}

func (e *DeleteOldRevisionError) Error() string {
	return fmt.Sprintf("attempt to delete non-current revision `%s` of note `%s`", e.Revision, e.ID)
}

// NotAChildError reports an operation that requires a parent-child relation
// which does not hold.
type NotAChildError struct {
	Parent NoteID
	Child  NoteID
}

func (e *NotAChildError) Error() string {
	return fmt.Sprintf("inconsistency detected: note `%s` is not a child of note `%s`", e.Child, e.Parent)
}

// ExistingNextError reports an append onto a note that already has a
// successor.
type ExistingNextError struct {
	ID   NoteID
	Next NoteID
}

func (e *ExistingNextError) Error() string {
	return fmt.Sprintf("cannot append to note `%s`, because it already has next note `%s`", e.ID, e.Next)
}

// HasBranchesError reports a delete blocked by existing branches.
type HasBranchesError struct {
	ID NoteID
}

func (e *HasBranchesError) Error() string {
	return fmt.Sprintf("cannot delete note `%s`, because it has branches", e.ID)
}

// HasReferencesError reports a delete blocked by incoming references.
type HasReferencesError struct {
	ID NoteID
}

func (e *HasReferencesError) Error() string {
	return fmt.Sprintf("cannot delete note `%s`, because other notes refer to it", e.ID)
}

// WouldCreateCycleError reports an AddBranch or AppendNote call whose new
// edge would make a note its own ancestor or predecessor.
type WouldCreateCycleError struct {
	From NoteID
	To   NoteID
}

func (e *WouldCreateCycleError) Error() string {
	return fmt.Sprintf("cannot link note `%s` under note `%s`, because that would create a cycle", e.To, e.From)
}

// UnsupportedSchemaVersionError reports an update against a revision whose
// metadata was written by a newer schema than this code understands.
type UnsupportedSchemaVersionError struct {
	Version uint64
}

func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("metadata schema version %d is newer than the supported version %d", e.Version, CurrentMetadataSchemaVersion)
}

// ParseError reports a malformed identifier. Malformed internal URLs are
// reported by the URL error kinds of ParseURL instead.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return e.Msg
}

// NoteInnerError reports a failure inside a note body adapter.
type NoteInnerError struct {
	Msg string
}

func (e *NoteInnerError) Error() string {
	return fmt.Sprintf("error processing note inner: %s", e.Msg)
}

// StorageError wraps a transient failure of the storage backend. Unlike the
// other kinds it is potentially recoverable by retrying the operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
