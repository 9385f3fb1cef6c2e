package notestore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/notegraf/notegraf"
	"github.com/notegraf/notegraf/notetype"
)

// PostgresStore is the production Store implementation over a PostgreSQL
// schema of notes, revisions, and the current-revision pointer.
//
// Every operation checks out one pooled connection and runs inside a single
// repeatable-read transaction, committing as its terminal step, so a
// cancelled or failed operation leaves no partial state behind.
type PostgresStore struct {
	typ  notetype.Type
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at url, applies the embedded schema
// migrations, and returns a ready store for bodies of the given type.
func NewPostgres(ctx context.Context, url string, typ notetype.Type) (*PostgresStore, error) {
	if err := runMigrations(url); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, &notegraf.StorageError{Op: "parse database url", Err: err}
	}

	// Connection pool configuration
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &notegraf.StorageError{Op: "create pool", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &notegraf.StorageError{Op: "ping", Err: err}
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("postgres connection pool created")

	return &PostgresStore{typ: typ, pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

var txOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead}

// withTx runs op inside one transaction and commits only when op succeeds.
func (s *PostgresStore) withTx(ctx context.Context, name string, op func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, txOptions)
	if err != nil {
		return &notegraf.StorageError{Op: name, Err: err}
	}
	defer tx.Rollback(ctx)

	if err := op(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Str("op", name).Msg("failed to commit transaction")
		return &notegraf.StorageError{Op: name, Err: err}
	}
	return nil
}

func (s *PostgresStore) NewNote(ctx context.Context, title string, body notetype.Body, patch notegraf.MetadataPatch) (notegraf.Locator, error) {
	id := notegraf.NewNoteID()
	rev := notegraf.NewRevision()
	err := s.withTx(ctx, "new note", func(tx pgx.Tx) error {
		if exists, err := noteExists(ctx, tx, id); err != nil {
			return err
		} else if exists {
			return &notegraf.NoteIDConflictError{ID: id}
		}
		if _, err := tx.Exec(ctx, `INSERT INTO note (id) VALUES ($1)`, id.UUID()); err != nil {
			return &notegraf.StorageError{Op: "insert note", Err: err}
		}
		if err := insertRevision(ctx, tx, revisionInsert{
			Revision: rev,
			ID:       id,
			Title:    title,
			Body:     body,
			Metadata: notegraf.NewMetadata().Apply(patch),
		}); err != nil {
			return err
		}
		return upsertCurrentRevision(ctx, tx, id, rev)
	})
	if err != nil {
		return notegraf.Locator{}, err
	}
	return notegraf.Specific(id, rev), nil
}

func (s *PostgresStore) GetNote(ctx context.Context, loc notegraf.Locator) (*Note, error) {
	var row *noteRow
	err := s.withTx(ctx, "get note", func(tx pgx.Tx) error {
		var err error
		row, err = getNoteByLoc(ctx, tx, loc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row.toNote(s.typ)
}

func (s *PostgresStore) UpdateNote(ctx context.Context, loc notegraf.Locator, change Change) (notegraf.Locator, error) {
	var newLoc notegraf.Locator
	err := s.withTx(ctx, "update note", func(tx pgx.Tx) error {
		var err error
		newLoc, err = s.updateNoteTx(ctx, tx, loc, func(draft *revisionInsert) {
			if change.Title != nil {
				draft.Title = *change.Title
			}
			if change.Body != nil {
				draft.Body = change.Body
			}
		}, change.Metadata)
		return err
	})
	if err != nil {
		return notegraf.Locator{}, err
	}
	return newLoc, nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, loc notegraf.Locator) error {
	return s.withTx(ctx, "delete note", func(tx pgx.Tx) error {
		id := loc.ID()
		deleted, err := isDeletedTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if rev, ok := loc.Revision(); ok {
			if deleted {
				return &notegraf.DeleteOldRevisionError{ID: id, Revision: rev}
			}
			current, err := isCurrentTx(ctx, tx, id, rev)
			if err != nil {
				return err
			}
			if !current {
				return &notegraf.DeleteOldRevisionError{ID: id, Revision: rev}
			}
		} else if deleted {
			return &notegraf.NoteDeletedError{ID: id}
		}

		row, err := getNoteCurrent(ctx, tx, id)
		if err != nil {
			return err
		}
		note, err := row.toNote(s.typ)
		if err != nil {
			return err
		}
		if len(note.Branches) > 0 {
			return &notegraf.HasBranchesError{ID: id}
		}
		if len(note.References) > 0 {
			return &notegraf.HasReferencesError{ID: id}
		}
		// Bypass an interior sequence node; head and tail deletions leave
		// the surviving neighbor untouched.
		if note.Prev != nil && note.Next != nil {
			prev := *note.Prev
			if _, err := s.updateNoteTx(ctx, tx, notegraf.Current(*note.Next), func(draft *revisionInsert) {
				draft.Prev = &prev
			}, notegraf.MetadataPatch{}); err != nil {
				return err
			}
		}
		return deleteCurrentRevision(ctx, tx, loc)
	})
}

func (s *PostgresStore) CurrentRevision(ctx context.Context, id notegraf.NoteID) (notegraf.Revision, bool, error) {
	var (
		rev notegraf.Revision
		ok  bool
	)
	err := s.withTx(ctx, "current revision", func(tx pgx.Tx) error {
		deleted, err := isDeletedTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if deleted {
			return nil
		}
		current, err := currentRevisionOf(ctx, tx, id)
		if err != nil {
			return err
		}
		rev, ok = current, true
		return nil
	})
	if err != nil {
		return notegraf.Revision{}, false, err
	}
	return rev, ok, nil
}

func (s *PostgresStore) Revisions(ctx context.Context, id notegraf.NoteID) ([]*Note, error) {
	var rows []*noteRow
	err := s.withTx(ctx, "revisions", func(tx pgx.Tx) error {
		if exists, err := noteExists(ctx, tx, id); err != nil {
			return err
		} else if !exists {
			return &notegraf.NoteNotExistError{ID: id}
		}
		var err error
		rows, err = getRevisionRows(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Note, len(rows))
	for i, row := range rows {
		if out[i], err = row.toNote(s.typ); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) AppendNote(ctx context.Context, last, next notegraf.NoteID) error {
	return s.withTx(ctx, "append note", func(tx pgx.Tx) error {
		row, err := getNoteCurrent(ctx, tx, last)
		if err != nil {
			return err
		}
		lastNote, err := row.toNote(s.typ)
		if err != nil {
			return err
		}
		if lastNote.Next != nil {
			return &notegraf.ExistingNextError{ID: last, Next: *lastNote.Next}
		}
		// Walking prev from last must not reach next, or the chain would
		// loop.
		cur := last
		for {
			if cur == next {
				return &notegraf.WouldCreateCycleError{From: last, To: next}
			}
			prev, err := currentPrev(ctx, tx, cur)
			if err != nil {
				return err
			}
			if prev == nil {
				break
			}
			cur = notegraf.NoteID(*prev)
		}
		_, err = s.updateNoteTx(ctx, tx, notegraf.Current(next), func(draft *revisionInsert) {
			draft.Prev = &last
		}, notegraf.MetadataPatch{})
		return err
	})
}

func (s *PostgresStore) AddBranch(ctx context.Context, parent, child notegraf.NoteID) error {
	return s.withTx(ctx, "add branch", func(tx pgx.Tx) error {
		if exists, err := noteExists(ctx, tx, parent); err != nil {
			return err
		} else if !exists {
			return &notegraf.NoteNotExistError{ID: parent}
		}
		// Walking parents from the new parent must not reach the child.
		cur := parent
		for {
			if cur == child {
				return &notegraf.WouldCreateCycleError{From: parent, To: child}
			}
			p, err := currentParent(ctx, tx, cur)
			if err != nil {
				return err
			}
			if p == nil {
				break
			}
			cur = notegraf.NoteID(*p)
		}
		_, err := s.updateNoteTx(ctx, tx, notegraf.Current(child), func(draft *revisionInsert) {
			draft.Parent = &parent
		}, notegraf.MetadataPatch{})
		return err
	})
}

func (s *PostgresStore) Search(ctx context.Context, req SearchRequest) ([]*Note, error) {
	var rows []*noteRow
	err := s.withTx(ctx, "search", func(tx pgx.Tx) error {
		var err error
		rows, err = searchRows(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Note, len(rows))
	for i, row := range rows {
		if out[i], err = row.toNote(s.typ); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Backup is not implemented; use PostgreSQL's own backup utilities.
func (s *PostgresStore) Backup(ctx context.Context, dir string) error {
	return ErrBackupUnsupported
}

// getNoteByLoc dispatches on the locator kind.
func getNoteByLoc(ctx context.Context, tx pgx.Tx, loc notegraf.Locator) (*noteRow, error) {
	if rev, ok := loc.Revision(); ok {
		return getNoteSpecific(ctx, tx, loc.ID(), rev)
	}
	return getNoteCurrent(ctx, tx, loc.ID())
}

// updateNoteTx appends a new revision derived from the revision the locator
// names and moves the current-revision pointer to it. The locator must be
// current, except that a specific locator naming a revision of a deleted
// note resurrects it from that revision.
func (s *PostgresStore) updateNoteTx(ctx context.Context, tx pgx.Tx, loc notegraf.Locator, mutate func(draft *revisionInsert), patch notegraf.MetadataPatch) (notegraf.Locator, error) {
	id := loc.ID()
	deleted, err := isDeletedTx(ctx, tx, id)
	if err != nil {
		return notegraf.Locator{}, err
	}
	var old *noteRow
	if rev, ok := loc.Revision(); ok {
		if old, err = getNoteSpecific(ctx, tx, id, rev); err != nil {
			return notegraf.Locator{}, err
		}
		if !deleted && !old.IsCurrent {
			return notegraf.Locator{}, &notegraf.UpdateOldRevisionError{ID: id, Revision: rev}
		}
	} else {
		if deleted {
			return notegraf.Locator{}, &notegraf.NoteDeletedError{ID: id}
		}
		if old, err = getNoteCurrent(ctx, tx, id); err != nil {
			return notegraf.Locator{}, err
		}
	}

	oldNote, err := old.toNote(s.typ)
	if err != nil {
		return notegraf.Locator{}, err
	}
	meta, err := oldNote.Metadata.OnUpdate(patch)
	if err != nil {
		return notegraf.Locator{}, err
	}
	draft := revisionInsert{
		Revision: notegraf.NewRevision(),
		ID:       id,
		Title:    oldNote.Title,
		Body:     oldNote.Body,
		Parent:   oldNote.Parent,
		Prev:     oldNote.Prev,
		Metadata: meta,
	}
	mutate(&draft)
	if err := insertRevision(ctx, tx, draft); err != nil {
		return notegraf.Locator{}, err
	}
	if err := upsertCurrentRevision(ctx, tx, id, draft.Revision); err != nil {
		return notegraf.Locator{}, err
	}
	return notegraf.Specific(id, draft.Revision), nil
}
