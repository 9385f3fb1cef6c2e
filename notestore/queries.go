package notestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/notegraf/notegraf"
	"github.com/notegraf/notegraf/notetype"
)

// noteColumns is the joined projection shared by every note-view query:
// the revision row itself plus branches, next, and references derived from
// the revision_only_current view.
const noteColumns = `
	revision.revision,
	revision.id,
	revision.title,
	revision.note_inner,
	revision.parent,
	array_remove(array_agg(DISTINCT branch.id), NULL) AS branches,
	revision.prev,
	array_remove(array_agg(DISTINCT next_note.id), NULL) AS next,
	revision.referents,
	array_remove(array_agg(DISTINCT referrer.id), NULL) AS "references",
	revision.metadata_schema_version,
	revision.metadata_created_at,
	revision.metadata_modified_at,
	revision.metadata_tags,
	revision.metadata_custom_metadata,
	COALESCE(cr.current_revision = revision.revision, FALSE) AS is_current`

// noteJoins derives the graph projections. Array containment keeps the
// indexed expression on the left of the operator so the GIN index applies.
const noteJoins = `
	LEFT JOIN current_revision cr ON cr.id = revision.id
	LEFT JOIN revision_only_current AS branch ON branch.parent = revision.id
	LEFT JOIN revision_only_current AS next_note ON next_note.prev = revision.id
	LEFT JOIN revision_only_current AS referrer ON referrer.referents @> ARRAY[revision.id]`

const noteGroupBy = ` GROUP BY revision.revision, cr.current_revision`

// noteRow is a scanned joined row, still in database types.
type noteRow struct {
	Revision      uuid.UUID
	ID            uuid.UUID
	Title         string
	NoteInner     string
	Parent        *uuid.UUID
	Branches      []uuid.UUID
	Prev          *uuid.UUID
	Next          []uuid.UUID
	Referents     []uuid.UUID
	References    []uuid.UUID
	SchemaVersion int64
	CreatedAt     time.Time
	ModifiedAt    time.Time
	Tags          []string
	Custom        []byte
	IsCurrent     bool
}

func scanNoteRow(row pgx.Row) (*noteRow, error) {
	var r noteRow
	err := row.Scan(
		&r.Revision, &r.ID, &r.Title, &r.NoteInner, &r.Parent, &r.Branches,
		&r.Prev, &r.Next, &r.Referents, &r.References,
		&r.SchemaVersion, &r.CreatedAt, &r.ModifiedAt, &r.Tags, &r.Custom,
		&r.IsCurrent,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// toNote converts a database row into the Note view, parsing the body with
// the store's note type.
func (r *noteRow) toNote(typ notetype.Type) (*Note, error) {
	body, err := typ.Parse(r.NoteInner)
	if err != nil {
		return nil, err
	}
	note := &Note{
		ID:         notegraf.NoteID(r.ID),
		Revision:   notegraf.Revision(r.Revision),
		Title:      r.Title,
		Body:       body,
		Branches:   noteIDs(r.Branches),
		Referents:  noteIDs(r.Referents),
		References: noteIDs(r.References),
		Metadata: notegraf.Metadata{
			SchemaVersion: uint64(r.SchemaVersion),
			CreatedAt:     r.CreatedAt,
			ModifiedAt:    r.ModifiedAt,
			Tags:          r.Tags,
			Custom:        json.RawMessage(r.Custom),
		},
		IsCurrent: r.IsCurrent,
	}
	if r.Parent != nil {
		p := notegraf.NoteID(*r.Parent)
		note.Parent = &p
	}
	if r.Prev != nil {
		p := notegraf.NoteID(*r.Prev)
		note.Prev = &p
	}
	// The single-successor invariant makes next a projection of cardinality
	// at most one.
	if len(r.Next) > 0 {
		n := notegraf.NoteID(r.Next[0])
		note.Next = &n
	}
	return note, nil
}

func noteIDs(us []uuid.UUID) []notegraf.NoteID {
	out := make([]notegraf.NoteID, len(us))
	for i, u := range us {
		out[i] = notegraf.NoteID(u)
	}
	return out
}

func uuids(ids []notegraf.NoteID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		out[i] = id.UUID()
	}
	return out
}

// getNoteCurrent loads the current revision of a note with its derived
// relations, distinguishing missing notes from deleted ones.
func getNoteCurrent(ctx context.Context, tx pgx.Tx, id notegraf.NoteID) (*noteRow, error) {
	query := `SELECT` + noteColumns + `
	FROM revision` + noteJoins + `
	WHERE revision.id = $1 AND revision.revision = cr.current_revision` + noteGroupBy
	row, err := scanNoteRow(tx.QueryRow(ctx, query, id.UUID()))
	if errors.Is(err, pgx.ErrNoRows) {
		deleted, derr := isDeletedTx(ctx, tx, id)
		if derr != nil {
			return nil, derr
		}
		if deleted {
			return nil, &notegraf.NoteDeletedError{ID: id}
		}
		return nil, &notegraf.NoteNotExistError{ID: id}
	}
	if err != nil {
		return nil, &notegraf.StorageError{Op: "get note", Err: err}
	}
	return row, nil
}

// getNoteSpecific loads one revision of a note with its derived relations.
func getNoteSpecific(ctx context.Context, tx pgx.Tx, id notegraf.NoteID, rev notegraf.Revision) (*noteRow, error) {
	query := `SELECT` + noteColumns + `
	FROM revision` + noteJoins + `
	WHERE revision.id = $1 AND revision.revision = $2` + noteGroupBy
	row, err := scanNoteRow(tx.QueryRow(ctx, query, id.UUID(), rev.UUID()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &notegraf.RevisionNotExistError{ID: id, Revision: rev}
	}
	if err != nil {
		return nil, &notegraf.StorageError{Op: "get revision", Err: err}
	}
	return row, nil
}

// getRevisionRows loads every revision of a note, oldest first.
func getRevisionRows(ctx context.Context, tx pgx.Tx, id notegraf.NoteID) ([]*noteRow, error) {
	query := `SELECT` + noteColumns + `
	FROM revision` + noteJoins + `
	WHERE revision.id = $1` + noteGroupBy + `
	ORDER BY revision.metadata_modified_at ASC`
	rows, err := tx.Query(ctx, query, id.UUID())
	if err != nil {
		return nil, &notegraf.StorageError{Op: "get revisions", Err: err}
	}
	defer rows.Close()

	var out []*noteRow
	for rows.Next() {
		r, err := scanNoteRow(rows)
		if err != nil {
			return nil, &notegraf.StorageError{Op: "get revisions", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &notegraf.StorageError{Op: "get revisions", Err: err}
	}
	return out, nil
}

// revisionInsert is the set of writable columns of a revision row. The
// derived columns of noteRow have no place here: they exist only in query
// projections.
type revisionInsert struct {
	Revision notegraf.Revision
	ID       notegraf.NoteID
	Title    string
	Body     notetype.Body
	Parent   *notegraf.NoteID
	Prev     *notegraf.NoteID
	Metadata notegraf.Metadata
}

func insertRevision(ctx context.Context, tx pgx.Tx, ins revisionInsert) error {
	referents, err := ins.Body.Referents()
	if err != nil {
		return &notegraf.NoteInnerError{Msg: err.Error()}
	}
	custom := ins.Metadata.Custom
	if custom == nil {
		custom = json.RawMessage("null")
	}
	tags := ins.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	var parent, prev *uuid.UUID
	if ins.Parent != nil {
		u := ins.Parent.UUID()
		parent = &u
	}
	if ins.Prev != nil {
		u := ins.Prev.UUID()
		prev = &u
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO revision (
			revision, id, title, note_inner, parent, prev, referents,
			metadata_schema_version, metadata_created_at,
			metadata_modified_at, metadata_tags, metadata_custom_metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		ins.Revision.UUID(), ins.ID.UUID(), ins.Title, ins.Body.String(),
		parent, prev, uuids(referents),
		int64(ins.Metadata.SchemaVersion), ins.Metadata.CreatedAt,
		ins.Metadata.ModifiedAt, tags, []byte(custom),
	)
	if err != nil {
		return &notegraf.StorageError{Op: "insert revision", Err: err}
	}
	return nil
}

func upsertCurrentRevision(ctx context.Context, tx pgx.Tx, id notegraf.NoteID, rev notegraf.Revision) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO current_revision (id, current_revision)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET current_revision = EXCLUDED.current_revision
	`, id.UUID(), rev.UUID())
	if err != nil {
		return &notegraf.StorageError{Op: "upsert current revision", Err: err}
	}
	return nil
}

func noteExists(ctx context.Context, tx pgx.Tx, id notegraf.NoteID) (bool, error) {
	var found uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM note WHERE id = $1`, id.UUID()).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &notegraf.StorageError{Op: "note exists", Err: err}
	}
	return true, nil
}

// isDeletedTx reports whether a note exists but has no current revision.
func isDeletedTx(ctx context.Context, tx pgx.Tx, id notegraf.NoteID) (bool, error) {
	var current *uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT cr.current_revision
		FROM note
		LEFT JOIN current_revision cr ON cr.id = note.id
		WHERE note.id = $1
	`, id.UUID()).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, &notegraf.NoteNotExistError{ID: id}
	}
	if err != nil {
		return false, &notegraf.StorageError{Op: "is deleted", Err: err}
	}
	return current == nil, nil
}

// isCurrentTx reports whether a specific revision is the current one.
func isCurrentTx(ctx context.Context, tx pgx.Tx, id notegraf.NoteID, rev notegraf.Revision) (bool, error) {
	var found uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT id FROM current_revision
		WHERE id = $1 AND current_revision = $2
	`, id.UUID(), rev.UUID()).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &notegraf.StorageError{Op: "is current", Err: err}
	}
	return true, nil
}

// currentRevisionOf returns the current revision of a note that is known
// to have one.
func currentRevisionOf(ctx context.Context, tx pgx.Tx, id notegraf.NoteID) (notegraf.Revision, error) {
	var rev uuid.UUID
	err := tx.QueryRow(ctx, `SELECT current_revision FROM current_revision WHERE id = $1`, id.UUID()).Scan(&rev)
	if err != nil {
		return notegraf.Revision{}, &notegraf.StorageError{Op: "current revision", Err: err}
	}
	return notegraf.Revision(rev), nil
}

// deleteCurrentRevision removes the current-revision pointer, optionally
// guarded on a specific revision still being current.
func deleteCurrentRevision(ctx context.Context, tx pgx.Tx, loc notegraf.Locator) error {
	id := loc.ID()
	if rev, ok := loc.Revision(); ok {
		res, err := tx.Exec(ctx,
			`DELETE FROM current_revision WHERE id = $1 AND current_revision = $2`,
			id.UUID(), rev.UUID())
		if err != nil {
			return &notegraf.StorageError{Op: "delete note", Err: err}
		}
		if res.RowsAffected() != 1 {
			return &notegraf.DeleteOldRevisionError{ID: id, Revision: rev}
		}
		return nil
	}
	res, err := tx.Exec(ctx, `DELETE FROM current_revision WHERE id = $1`, id.UUID())
	if err != nil {
		return &notegraf.StorageError{Op: "delete note", Err: err}
	}
	if res.RowsAffected() != 1 {
		return &notegraf.NoteDeletedError{ID: id}
	}
	return nil
}

// currentParent and currentPrev read single graph edges of a current
// revision; both are used by the cycle walks of AddBranch and AppendNote.
func currentParent(ctx context.Context, tx pgx.Tx, id notegraf.NoteID) (*uuid.UUID, error) {
	var parent *uuid.UUID
	err := tx.QueryRow(ctx, `SELECT parent FROM revision_only_current WHERE id = $1`, id.UUID()).Scan(&parent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &notegraf.StorageError{Op: "current parent", Err: err}
	}
	return parent, nil
}

func currentPrev(ctx context.Context, tx pgx.Tx, id notegraf.NoteID) (*uuid.UUID, error) {
	var prev *uuid.UUID
	err := tx.QueryRow(ctx, `SELECT prev FROM revision_only_current WHERE id = $1`, id.UUID()).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &notegraf.StorageError{Op: "current prev", Err: err}
	}
	return prev, nil
}

// searchRows translates a search request into SQL over the current
// projection. The predicates mirror SearchRequest.Matches.
func searchRows(ctx context.Context, tx pgx.Tx, req SearchRequest) ([]*noteRow, error) {
	var (
		conds  = []string{"revision.revision = cr.current_revision"}
		having []string
		args   []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	for _, lex := range req.Lexemes {
		p := arg(likePattern(lex))
		conds = append(conds, fmt.Sprintf("(revision.title ILIKE %s OR revision.note_inner ILIKE %s)", p, p))
	}
	for _, lex := range req.ExcludedLexemes {
		p := arg(likePattern(lex))
		conds = append(conds, fmt.Sprintf("NOT (revision.title ILIKE %s OR revision.note_inner ILIKE %s)", p, p))
	}
	if len(req.Tags) > 0 {
		conds = append(conds, fmt.Sprintf("revision.metadata_tags @> %s", arg(req.Tags)))
	}
	if len(req.ExcludedTags) > 0 {
		conds = append(conds, fmt.Sprintf("NOT (revision.metadata_tags && %s)", arg(req.ExcludedTags)))
	}
	if req.OrphansOnly {
		conds = append(conds, "revision.prev IS NULL", "revision.parent IS NULL")
		having = append(having, "COUNT(referrer.id) = 0")
	}

	query := `SELECT` + noteColumns + `
	FROM revision` + noteJoins + `
	WHERE ` + strings.Join(conds, " AND ") + noteGroupBy
	if len(having) > 0 {
		query += ` HAVING ` + strings.Join(having, " AND ")
	}
	query += ` ORDER BY revision.metadata_modified_at DESC LIMIT ` + arg(req.EffectiveLimit())

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, &notegraf.StorageError{Op: "search", Err: err}
	}
	defer rows.Close()

	var out []*noteRow
	for rows.Next() {
		r, err := scanNoteRow(rows)
		if err != nil {
			return nil, &notegraf.StorageError{Op: "search", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &notegraf.StorageError{Op: "search", Err: err}
	}
	return out, nil
}

// likePattern builds a substring ILIKE pattern, escaping the LIKE
// metacharacters in the lexeme.
func likePattern(lexeme string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(lexeme)
	return "%" + escaped + "%"
}
