package notestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/notegraf/notegraf"
	"github.com/notegraf/notegraf/notetype"
)

// BackupFileName is the file the in-memory backing serializes itself into.
const BackupFileName = "notegraf_in_memory.json"

// InMemoryStore is the reference Store implementation: single process, no
// persistence beyond explicit Backup calls. It is used for tests and
// development.
//
// The store owns its data exclusively; a single write-locked critical
// section per operation provides the serialization the contract requires.
type InMemoryStore struct {
	typ notetype.Type

	mu      sync.RWMutex
	notes   map[notegraf.NoteID]map[notegraf.Revision]*storedRevision
	current map[notegraf.NoteID]notegraf.Revision
	seq     uint64
}

// storedRevision is one immutable row of the in-memory revision log. Seq
// breaks modified_at ties so revision ordering stays stable under coarse
// clocks.
type storedRevision struct {
	Revision  notegraf.Revision
	Note      notegraf.NoteID
	Title     string
	Body      notetype.Body
	Parent    *notegraf.NoteID
	Prev      *notegraf.NoteID
	Referents []notegraf.NoteID
	Metadata  notegraf.Metadata
	Seq       uint64
}

// NewInMemory creates an empty in-memory store for bodies of the given
// type.
func NewInMemory(typ notetype.Type) *InMemoryStore {
	return &InMemoryStore{
		typ:     typ,
		notes:   make(map[notegraf.NoteID]map[notegraf.Revision]*storedRevision),
		current: make(map[notegraf.NoteID]notegraf.Revision),
	}
}

func (s *InMemoryStore) NewNote(ctx context.Context, title string, body notetype.Body, patch notegraf.MetadataPatch) (notegraf.Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := notegraf.NewNoteID()
	if _, ok := s.notes[id]; ok {
		return notegraf.Locator{}, &notegraf.NoteIDConflictError{ID: id}
	}
	referents, err := body.Referents()
	if err != nil {
		return notegraf.Locator{}, &notegraf.NoteInnerError{Msg: err.Error()}
	}
	rev := notegraf.NewRevision()
	s.seq++
	sr := &storedRevision{
		Revision:  rev,
		Note:      id,
		Title:     title,
		Body:      body,
		Referents: referents,
		Metadata:  notegraf.NewMetadata().Apply(patch),
		Seq:       s.seq,
	}
	s.notes[id] = map[notegraf.Revision]*storedRevision{rev: sr}
	s.current[id] = rev
	return notegraf.Specific(id, rev), nil
}

func (s *InMemoryStore) GetNote(ctx context.Context, loc notegraf.Locator) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, err := s.resolveLocked(loc)
	if err != nil {
		return nil, err
	}
	return s.hydrateLocked(sr), nil
}

func (s *InMemoryStore) UpdateNote(ctx context.Context, loc notegraf.Locator, change Change) (notegraf.Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLocked(loc, change.Metadata, func(draft *storedRevision) {
		if change.Title != nil {
			draft.Title = *change.Title
		}
		if change.Body != nil {
			draft.Body = change.Body
		}
	})
}

func (s *InMemoryStore) DeleteNote(ctx context.Context, loc notegraf.Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := loc.ID()
	deleted, err := s.isDeletedLocked(id)
	if err != nil {
		return err
	}
	if rev, ok := loc.Revision(); ok {
		if deleted || s.current[id] != rev {
			return &notegraf.DeleteOldRevisionError{ID: id, Revision: rev}
		}
	} else if deleted {
		return &notegraf.NoteDeletedError{ID: id}
	}

	note := s.hydrateLocked(s.notes[id][s.current[id]])
	if len(note.Branches) > 0 {
		return &notegraf.HasBranchesError{ID: id}
	}
	if len(note.References) > 0 {
		return &notegraf.HasReferencesError{ID: id}
	}
	// An interior sequence node is bypassed by rewiring its successor; a
	// head or tail node leaves the surviving neighbor untouched.
	if note.Prev != nil && note.Next != nil {
		prev := *note.Prev
		if _, err := s.updateLocked(notegraf.Current(*note.Next), notegraf.MetadataPatch{}, func(draft *storedRevision) {
			draft.Prev = &prev
		}); err != nil {
			return err
		}
	}
	delete(s.current, id)
	return nil
}

func (s *InMemoryStore) CurrentRevision(ctx context.Context, id notegraf.NoteID) (notegraf.Revision, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.notes[id]; !ok {
		return notegraf.Revision{}, false, &notegraf.NoteNotExistError{ID: id}
	}
	rev, ok := s.current[id]
	return rev, ok, nil
}

func (s *InMemoryStore) Revisions(ctx context.Context, id notegraf.NoteID) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revs, ok := s.notes[id]
	if !ok {
		return nil, &notegraf.NoteNotExistError{ID: id}
	}
	out := make([]*Note, 0, len(revs))
	for _, sr := range revs {
		out = append(out, s.hydrateLocked(sr))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Metadata.ModifiedAt.Equal(out[j].Metadata.ModifiedAt) {
			return out[i].Metadata.ModifiedAt.Before(out[j].Metadata.ModifiedAt)
		}
		return revs[out[i].Revision].Seq < revs[out[j].Revision].Seq
	})
	return out, nil
}

func (s *InMemoryStore) AppendNote(ctx context.Context, last, next notegraf.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastRev, err := s.resolveLocked(notegraf.Current(last))
	if err != nil {
		return err
	}
	lastNote := s.hydrateLocked(lastRev)
	if lastNote.Next != nil {
		return &notegraf.ExistingNextError{ID: last, Next: *lastNote.Next}
	}
	// Walking prev from last must not reach next, or the chain would loop.
	for cur := &last; cur != nil; {
		if *cur == next {
			return &notegraf.WouldCreateCycleError{From: last, To: next}
		}
		rev, ok := s.current[*cur]
		if !ok {
			break
		}
		cur = s.notes[*cur][rev].Prev
	}
	_, err = s.updateLocked(notegraf.Current(next), notegraf.MetadataPatch{}, func(draft *storedRevision) {
		draft.Prev = &last
	})
	return err
}

func (s *InMemoryStore) AddBranch(ctx context.Context, parent, child notegraf.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[parent]; !ok {
		return &notegraf.NoteNotExistError{ID: parent}
	}
	// Walking parents from the new parent must not reach the child.
	for cur := &parent; cur != nil; {
		if *cur == child {
			return &notegraf.WouldCreateCycleError{From: parent, To: child}
		}
		rev, ok := s.current[*cur]
		if !ok {
			break
		}
		cur = s.notes[*cur][rev].Parent
	}
	_, err := s.updateLocked(notegraf.Current(child), notegraf.MetadataPatch{}, func(draft *storedRevision) {
		draft.Parent = &parent
	})
	return err
}

func (s *InMemoryStore) Search(ctx context.Context, req SearchRequest) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Note, 0)
	for id, rev := range s.current {
		note := s.hydrateLocked(s.notes[id][rev])
		if req.Matches(note) {
			out = append(out, note)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Metadata.ModifiedAt.Equal(out[j].Metadata.ModifiedAt) {
			return out[i].Metadata.ModifiedAt.After(out[j].Metadata.ModifiedAt)
		}
		return s.notes[out[i].ID][out[i].Revision].Seq > s.notes[out[j].ID][out[j].Revision].Seq
	})
	if limit := req.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// resolveLocked finds the stored revision a locator names. Callers hold at
// least the read lock.
func (s *InMemoryStore) resolveLocked(loc notegraf.Locator) (*storedRevision, error) {
	id := loc.ID()
	revs, ok := s.notes[id]
	if !ok {
		return nil, &notegraf.NoteNotExistError{ID: id}
	}
	rev, specific := loc.Revision()
	if !specific {
		cur, ok := s.current[id]
		if !ok {
			return nil, &notegraf.NoteDeletedError{ID: id}
		}
		rev = cur
	}
	sr, ok := revs[rev]
	if !ok {
		return nil, &notegraf.RevisionNotExistError{ID: id, Revision: rev}
	}
	return sr, nil
}

// updateLocked appends a new revision of the note a locator points at and
// makes it current. The locator must be current, except that a specific
// locator naming any revision of a deleted note resurrects it. Callers hold
// the write lock.
func (s *InMemoryStore) updateLocked(loc notegraf.Locator, patch notegraf.MetadataPatch, mutate func(draft *storedRevision)) (notegraf.Locator, error) {
	id := loc.ID()
	deleted, err := s.isDeletedLocked(id)
	if err != nil {
		return notegraf.Locator{}, err
	}
	var old *storedRevision
	if rev, ok := loc.Revision(); ok {
		if old = s.notes[id][rev]; old == nil {
			return notegraf.Locator{}, &notegraf.RevisionNotExistError{ID: id, Revision: rev}
		}
		if !deleted && s.current[id] != rev {
			return notegraf.Locator{}, &notegraf.UpdateOldRevisionError{ID: id, Revision: rev}
		}
	} else {
		if deleted {
			return notegraf.Locator{}, &notegraf.NoteDeletedError{ID: id}
		}
		old = s.notes[id][s.current[id]]
	}

	meta, err := old.Metadata.OnUpdate(patch)
	if err != nil {
		return notegraf.Locator{}, err
	}
	s.seq++
	draft := &storedRevision{
		Revision: notegraf.NewRevision(),
		Note:     id,
		Title:    old.Title,
		Body:     old.Body,
		Parent:   old.Parent,
		Prev:     old.Prev,
		Metadata: meta,
		Seq:      s.seq,
	}
	mutate(draft)
	referents, err := draft.Body.Referents()
	if err != nil {
		return notegraf.Locator{}, &notegraf.NoteInnerError{Msg: err.Error()}
	}
	draft.Referents = referents

	s.notes[id][draft.Revision] = draft
	s.current[id] = draft.Revision
	return notegraf.Specific(id, draft.Revision), nil
}

// isDeletedLocked reports whether a note exists but has no current
// revision. Callers hold at least the read lock.
func (s *InMemoryStore) isDeletedLocked(id notegraf.NoteID) (bool, error) {
	if _, ok := s.notes[id]; !ok {
		return false, &notegraf.NoteNotExistError{ID: id}
	}
	_, ok := s.current[id]
	return !ok, nil
}

// hydrateLocked joins a stored revision with the projections derived from
// the current revisions. Callers hold at least the read lock.
func (s *InMemoryStore) hydrateLocked(sr *storedRevision) *Note {
	note := &Note{
		ID:         sr.Note,
		Revision:   sr.Revision,
		Title:      sr.Title,
		Body:       sr.Body,
		Parent:     sr.Parent,
		Prev:       sr.Prev,
		Branches:   []notegraf.NoteID{},
		Referents:  append([]notegraf.NoteID{}, sr.Referents...),
		References: []notegraf.NoteID{},
		Metadata:   sr.Metadata,
		IsCurrent:  s.current[sr.Note] == sr.Revision,
	}
	for id, rev := range s.current {
		cur := s.notes[id][rev]
		if cur.Parent != nil && *cur.Parent == sr.Note {
			note.Branches = append(note.Branches, id)
		}
		if cur.Prev != nil && *cur.Prev == sr.Note {
			next := id
			note.Next = &next
		}
		if containsID(cur.Referents, sr.Note) {
			note.References = append(note.References, id)
		}
	}
	return note
}

// Serialized form of the whole store, written by Backup and read by
// RestoreInMemory.
type inMemorySnapshot struct {
	Notes           map[notegraf.NoteID]map[notegraf.Revision]snapshotRevision `json:"notes"`
	CurrentRevision map[notegraf.NoteID]notegraf.Revision                      `json:"current_revision"`
}

type snapshotRevision struct {
	Title     string            `json:"title"`
	NoteInner string            `json:"note_inner"`
	Parent    *notegraf.NoteID  `json:"parent"`
	Prev      *notegraf.NoteID  `json:"prev"`
	Referents []notegraf.NoteID `json:"referents"`
	Metadata  notegraf.Metadata `json:"metadata"`
	Seq       uint64            `json:"seq"`
}

func (s *InMemoryStore) Backup(ctx context.Context, dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := inMemorySnapshot{
		Notes:           make(map[notegraf.NoteID]map[notegraf.Revision]snapshotRevision, len(s.notes)),
		CurrentRevision: make(map[notegraf.NoteID]notegraf.Revision, len(s.current)),
	}
	for id, revs := range s.notes {
		m := make(map[notegraf.Revision]snapshotRevision, len(revs))
		for rev, sr := range revs {
			m[rev] = snapshotRevision{
				Title:     sr.Title,
				NoteInner: sr.Body.String(),
				Parent:    sr.Parent,
				Prev:      sr.Prev,
				Referents: sr.Referents,
				Metadata:  sr.Metadata,
				Seq:       sr.Seq,
			}
		}
		snap.Notes[id] = m
	}
	for id, rev := range s.current {
		snap.CurrentRevision[id] = rev
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return &notegraf.StorageError{Op: "backup", Err: err}
	}
	if err := os.WriteFile(filepath.Join(dir, BackupFileName), data, 0o644); err != nil {
		return &notegraf.StorageError{Op: "backup", Err: err}
	}
	return nil
}

// RestoreInMemory reconstructs an in-memory store from a directory written
// by Backup.
func RestoreInMemory(dir string, typ notetype.Type) (*InMemoryStore, error) {
	data, err := os.ReadFile(filepath.Join(dir, BackupFileName))
	if err != nil {
		return nil, &notegraf.StorageError{Op: "restore", Err: err}
	}
	var snap inMemorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &notegraf.StorageError{Op: "restore", Err: err}
	}

	s := NewInMemory(typ)
	for id, revs := range snap.Notes {
		m := make(map[notegraf.Revision]*storedRevision, len(revs))
		for rev, sr := range revs {
			body, err := typ.Parse(sr.NoteInner)
			if err != nil {
				return nil, err
			}
			m[rev] = &storedRevision{
				Revision:  rev,
				Note:      id,
				Title:     sr.Title,
				Body:      body,
				Parent:    sr.Parent,
				Prev:      sr.Prev,
				Referents: sr.Referents,
				Metadata:  sr.Metadata,
				Seq:       sr.Seq,
			}
			if sr.Seq > s.seq {
				s.seq = sr.Seq
			}
		}
		s.notes[id] = m
	}
	for id, rev := range snap.CurrentRevision {
		s.current[id] = rev
	}
	return s, nil
}
