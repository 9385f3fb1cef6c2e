package notestore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/notegraf/notegraf"
	"github.com/notegraf/notegraf/notetype"
)

// storeFactory builds a fresh store for one test case. Both backends run
// the same scenario suite through it.
type storeFactory func(t *testing.T, typ notetype.Type) Store

func runStoreSuite(t *testing.T, newStore storeFactory) {
	plain := notetype.PlainType{}
	markdown := notetype.MarkdownType{}

	scenarios := []struct {
		name string
		typ  notetype.Type
		fn   func(*testing.T, Store)
	}{
		{"UniqueID", plain, testUniqueID},
		{"NewNoteRevision", plain, testNewNoteRevision},
		{"NewNoteRetrieve", plain, testNewNoteRetrieve},
		{"UpdateNote", plain, testUpdateNote},
		{"UpdateTitleAndTags", plain, testUpdateTitleAndTags},
		{"OptimisticConcurrency", plain, testOptimisticConcurrency},
		{"DeleteNoteStates", plain, testDeleteNoteStates},
		{"DeleteWithBranches", plain, testDeleteWithBranches},
		{"DeleteMiddleOfSequence", plain, testDeleteMiddleOfSequence},
		{"DeleteHeadOfSequence", plain, testDeleteHeadOfSequence},
		{"DeleteTailOfSequence", plain, testDeleteTailOfSequence},
		{"DeleteWithReferences", markdown, testDeleteWithReferences},
		{"Resurrect", plain, testResurrect},
		{"AppendExistingNext", plain, testAppendExistingNext},
		{"AppendOverwritesPrev", plain, testAppendOverwritesPrev},
		{"AppendSelfRejected", plain, testAppendSelfRejected},
		{"AddBranch", plain, testAddBranch},
		{"AddBranchSelfRejected", plain, testAddBranchSelfRejected},
		{"AddBranchCycleRejected", plain, testAddBranchCycleRejected},
		{"CurrentRevisionStates", plain, testCurrentRevisionStates},
		{"BacklinkAndOrphanSearch", markdown, testBacklinkAndOrphanSearch},
		{"SearchTagExclude", plain, testSearchTagExclude},
		{"SearchRecentOrderAndLimit", plain, testSearchRecentOrderAndLimit},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			sc.fn(t, newStore(t, sc.typ))
		})
	}
}

func newPlainNote(t *testing.T, s Store, title, text string, tags ...string) notegraf.Locator {
	t.Helper()
	patch := notegraf.MetadataPatch{}
	if len(tags) > 0 {
		patch.Tags = tags
	}
	loc, err := s.NewNote(context.Background(), title, notetype.NewPlainBody(text), patch)
	if err != nil {
		t.Fatalf("NewNote() error = %v", err)
	}
	return loc
}

func getNote(t *testing.T, s Store, loc notegraf.Locator) *Note {
	t.Helper()
	note, err := s.GetNote(context.Background(), loc)
	if err != nil {
		t.Fatalf("GetNote(%s) error = %v", loc, err)
	}
	return note
}

func strPtr(s string) *string {
	return &s
}

func testUniqueID(t *testing.T, s Store) {
	loc1 := newPlainNote(t, s, "", "Foo")
	loc2 := newPlainNote(t, s, "", "Bar")
	if loc1.ID() == loc2.ID() {
		t.Errorf("two notes share id %v", loc1.ID())
	}
}

func testNewNoteRevision(t *testing.T, s Store) {
	ctx := context.Background()
	loc := newPlainNote(t, s, "", "Foo")
	rev, ok := loc.Revision()
	if !ok {
		t.Fatalf("NewNote() returned a non-specific locator")
	}
	current, exists, err := s.CurrentRevision(ctx, loc.ID())
	if err != nil {
		t.Fatalf("CurrentRevision() error = %v", err)
	}
	if !exists || current != rev {
		t.Errorf("CurrentRevision() = %v (%v), want %v", current, exists, rev)
	}
}

func testNewNoteRetrieve(t *testing.T, s Store) {
	loc := newPlainNote(t, s, "t", "b")

	for _, l := range []notegraf.Locator{loc.Current(), loc} {
		note := getNote(t, s, l)
		if note.Title != "t" {
			t.Errorf("Title = %q, want %q", note.Title, "t")
		}
		if note.Body.String() != notetype.NewPlainBody("b").String() {
			t.Errorf("Body = %s, want plain %q", note.Body.String(), "b")
		}
		if len(note.Branches) != 0 || len(note.References) != 0 || len(note.Referents) != 0 {
			t.Errorf("fresh note has relations: %+v", note)
		}
		if note.Parent != nil || note.Prev != nil || note.Next != nil {
			t.Errorf("fresh note has graph edges: %+v", note)
		}
		if !note.IsCurrent {
			t.Errorf("fresh note revision is not current")
		}
	}
}

func testUpdateNote(t *testing.T, s Store) {
	ctx := context.Background()
	loc1 := newPlainNote(t, s, "", "Foo")
	rev1, _ := loc1.Revision()
	before := getNote(t, s, loc1.Current())
	created1 := before.Metadata.CreatedAt

	loc2, err := s.UpdateNote(ctx, loc1, Change{Body: notetype.NewPlainBody("Foo1")})
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	rev2, ok := loc2.Revision()
	if !ok || rev2 == rev1 {
		t.Fatalf("UpdateNote() locator = %v, want a fresh specific revision", loc2)
	}

	current, _, err := s.CurrentRevision(ctx, loc1.ID())
	if err != nil {
		t.Fatalf("CurrentRevision() error = %v", err)
	}
	if current != rev2 {
		t.Errorf("CurrentRevision() = %v, want %v", current, rev2)
	}

	after := getNote(t, s, loc1.Current())
	if after.Body.String() != notetype.NewPlainBody("Foo1").String() {
		t.Errorf("Body = %s, want updated", after.Body.String())
	}
	if !after.Metadata.CreatedAt.Equal(created1) {
		t.Errorf("CreatedAt = %v, want unchanged %v", after.Metadata.CreatedAt, created1)
	}
	if !after.Metadata.ModifiedAt.After(created1) {
		t.Errorf("ModifiedAt = %v, want after %v", after.Metadata.ModifiedAt, created1)
	}

	revisions, err := s.Revisions(ctx, loc1.ID())
	if err != nil {
		t.Fatalf("Revisions() error = %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("Revisions() returned %d entries, want 2", len(revisions))
	}
	if revisions[0].Revision != rev1 || revisions[1].Revision != rev2 {
		t.Errorf("Revisions() order = [%v, %v], want [%v, %v]",
			revisions[0].Revision, revisions[1].Revision, rev1, rev2)
	}
	if revisions[0].IsCurrent || !revisions[1].IsCurrent {
		t.Errorf("IsCurrent flags = [%v, %v], want [false, true]",
			revisions[0].IsCurrent, revisions[1].IsCurrent)
	}
}

func testUpdateTitleAndTags(t *testing.T, s Store) {
	ctx := context.Background()
	loc := newPlainNote(t, s, "draft", "text")

	_, err := s.UpdateNote(ctx, loc, Change{
		Title:    strPtr("final"),
		Metadata: notegraf.MetadataPatch{Tags: []string{"done"}},
	})
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	note := getNote(t, s, loc.Current())
	if note.Title != "final" {
		t.Errorf("Title = %q, want %q", note.Title, "final")
	}
	if !note.Metadata.HasTag("done") {
		t.Errorf("Tags = %v, want to contain done", note.Metadata.Tags)
	}

	// A body-only update carries title and tags over.
	if _, err := s.UpdateNote(ctx, notegraf.Current(loc.ID()), Change{Body: notetype.NewPlainBody("text2")}); err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	note = getNote(t, s, loc.Current())
	if note.Title != "final" || !note.Metadata.HasTag("done") {
		t.Errorf("carried state lost: title %q tags %v", note.Title, note.Metadata.Tags)
	}
}

func testOptimisticConcurrency(t *testing.T, s Store) {
	ctx := context.Background()
	loc1 := newPlainNote(t, s, "", "v1")
	rev1, _ := loc1.Revision()

	loc2, err := s.UpdateNote(ctx, loc1, Change{Body: notetype.NewPlainBody("v2")})
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}

	_, err = s.UpdateNote(ctx, notegraf.Specific(loc1.ID(), rev1), Change{Body: notetype.NewPlainBody("v2-lost")})
	var oldErr *notegraf.UpdateOldRevisionError
	if !errors.As(err, &oldErr) {
		t.Fatalf("UpdateNote() error = %v, want *UpdateOldRevisionError", err)
	}
	if oldErr.ID != loc1.ID() || oldErr.Revision != rev1 {
		t.Errorf("UpdateOldRevisionError = %+v, want id %v rev %v", oldErr, loc1.ID(), rev1)
	}

	loc3, err := s.UpdateNote(ctx, notegraf.Current(loc1.ID()), Change{Body: notetype.NewPlainBody("v3")})
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	rev2, _ := loc2.Revision()
	rev3, _ := loc3.Revision()
	if rev3 == rev2 || rev3 == rev1 {
		t.Errorf("third update produced a stale revision %v", rev3)
	}
}

func testDeleteNoteStates(t *testing.T, s Store) {
	ctx := context.Background()
	loc := newPlainNote(t, s, "", "Note")

	// Deleting via the creating (specific, current) locator works.
	if err := s.DeleteNote(ctx, loc); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}

	_, err := s.GetNote(ctx, loc.Current())
	var deletedErr *notegraf.NoteDeletedError
	if !errors.As(err, &deletedErr) {
		t.Errorf("GetNote(current) error = %v, want *NoteDeletedError", err)
	}

	// The specific revision stays addressable after deletion.
	note := getNote(t, s, loc)
	if note.Body.String() != notetype.NewPlainBody("Note").String() {
		t.Errorf("Body = %s, want preserved", note.Body.String())
	}
	if note.IsCurrent {
		t.Errorf("deleted revision still reported current")
	}

	_, err = s.GetNote(ctx, notegraf.Current(notegraf.NewNoteID()))
	var notExistErr *notegraf.NoteNotExistError
	if !errors.As(err, &notExistErr) {
		t.Errorf("GetNote(unknown) error = %v, want *NoteNotExistError", err)
	}

	// Deleting a stale revision is rejected.
	loc2 := newPlainNote(t, s, "", "Other")
	rev1, _ := loc2.Revision()
	if _, err := s.UpdateNote(ctx, loc2, Change{Body: notetype.NewPlainBody("Other2")}); err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	err = s.DeleteNote(ctx, notegraf.Specific(loc2.ID(), rev1))
	var delOldErr *notegraf.DeleteOldRevisionError
	if !errors.As(err, &delOldErr) {
		t.Errorf("DeleteNote(stale) error = %v, want *DeleteOldRevisionError", err)
	}
}

func testDeleteWithBranches(t *testing.T, s Store) {
	ctx := context.Background()
	parent := newPlainNote(t, s, "", "Parent")
	child := newPlainNote(t, s, "", "Branch")

	if err := s.AddBranch(ctx, parent.ID(), child.ID()); err != nil {
		t.Fatalf("AddBranch() error = %v", err)
	}
	err := s.DeleteNote(ctx, parent.Current())
	var branchErr *notegraf.HasBranchesError
	if !errors.As(err, &branchErr) {
		t.Fatalf("DeleteNote() error = %v, want *HasBranchesError", err)
	}
	if branchErr.ID != parent.ID() {
		t.Errorf("HasBranchesError.ID = %v, want %v", branchErr.ID, parent.ID())
	}
}

func testDeleteWithReferences(t *testing.T, s Store) {
	ctx := context.Background()
	target, err := s.NewNote(ctx, "target", notetype.NewMarkdownBody("body"), notegraf.MetadataPatch{})
	if err != nil {
		t.Fatalf("NewNote() error = %v", err)
	}
	link := notegraf.NoteURL(target.ID()).String()
	if _, err := s.NewNote(ctx, "referrer", notetype.NewMarkdownBody("[see]("+link+")"), notegraf.MetadataPatch{}); err != nil {
		t.Fatalf("NewNote() error = %v", err)
	}

	err = s.DeleteNote(ctx, target.Current())
	var refErr *notegraf.HasReferencesError
	if !errors.As(err, &refErr) {
		t.Fatalf("DeleteNote() error = %v, want *HasReferencesError", err)
	}
}

func sequence(t *testing.T, s Store, titles ...string) []notegraf.Locator {
	t.Helper()
	ctx := context.Background()
	locs := make([]notegraf.Locator, len(titles))
	for i, title := range titles {
		locs[i] = newPlainNote(t, s, title, title)
		if i > 0 {
			if err := s.AppendNote(ctx, locs[i-1].ID(), locs[i].ID()); err != nil {
				t.Fatalf("AppendNote() error = %v", err)
			}
		}
	}
	return locs
}

func testDeleteMiddleOfSequence(t *testing.T, s Store) {
	ctx := context.Background()
	locs := sequence(t, s, "N1", "N2", "N3")

	if err := s.DeleteNote(ctx, locs[1].Current()); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}

	n3 := getNote(t, s, locs[2].Current())
	if n3.Prev == nil || *n3.Prev != locs[0].ID() {
		t.Errorf("N3.Prev = %v, want %v", n3.Prev, locs[0].ID())
	}
	n1 := getNote(t, s, locs[0].Current())
	if n1.Next == nil || *n1.Next != locs[2].ID() {
		t.Errorf("N1.Next = %v, want %v", n1.Next, locs[2].ID())
	}
	if _, ok, err := s.CurrentRevision(ctx, locs[1].ID()); err != nil || ok {
		t.Errorf("CurrentRevision(N2) = (%v, %v), want deleted", ok, err)
	}
}

func testDeleteHeadOfSequence(t *testing.T, s Store) {
	ctx := context.Background()
	locs := sequence(t, s, "N1", "N2")

	if err := s.DeleteNote(ctx, locs[0].Current()); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	// The successor keeps its prev pointer at the tombstoned head.
	n2 := getNote(t, s, locs[1].Current())
	if n2.Prev == nil || *n2.Prev != locs[0].ID() {
		t.Errorf("N2.Prev = %v, want dangling %v", n2.Prev, locs[0].ID())
	}
	if n2.Next != nil {
		t.Errorf("N2.Next = %v, want nil", n2.Next)
	}
}

func testDeleteTailOfSequence(t *testing.T, s Store) {
	ctx := context.Background()
	locs := sequence(t, s, "N1", "N2")

	if err := s.DeleteNote(ctx, locs[1].Current()); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	n1 := getNote(t, s, locs[0].Current())
	if n1.Next != nil {
		t.Errorf("N1.Next = %v, want nil after tail deletion", n1.Next)
	}
	if n1.Prev != nil {
		t.Errorf("N1.Prev = %v, want nil", n1.Prev)
	}
}

func testResurrect(t *testing.T, s Store) {
	ctx := context.Background()
	loc1 := newPlainNote(t, s, "", "Foo")
	loc2, err := s.UpdateNote(ctx, loc1, Change{Body: notetype.NewPlainBody("Foo1")})
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if err := s.DeleteNote(ctx, loc1.Current()); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}

	revisions, err := s.Revisions(ctx, loc1.ID())
	if err != nil {
		t.Fatalf("Revisions() error = %v", err)
	}
	last := revisions[len(revisions)-1]
	rev2, _ := loc2.Revision()
	if last.Revision != rev2 {
		t.Fatalf("last revision = %v, want %v", last.Revision, rev2)
	}

	// Updating a specific revision of a deleted note resurrects it.
	if _, err := s.UpdateNote(ctx, notegraf.Specific(loc1.ID(), last.Revision), Change{}); err != nil {
		t.Fatalf("UpdateNote(resurrect) error = %v", err)
	}
	note := getNote(t, s, loc1.Current())
	if note.Body.String() != notetype.NewPlainBody("Foo1").String() {
		t.Errorf("Body = %s, want seeded from last revision", note.Body.String())
	}
}

func testAppendExistingNext(t *testing.T, s Store) {
	ctx := context.Background()
	locs := sequence(t, s, "A", "B")
	c := newPlainNote(t, s, "C", "C")

	err := s.AppendNote(ctx, locs[0].ID(), c.ID())
	var nextErr *notegraf.ExistingNextError
	if !errors.As(err, &nextErr) {
		t.Fatalf("AppendNote() error = %v, want *ExistingNextError", err)
	}
	if nextErr.ID != locs[0].ID() || nextErr.Next != locs[1].ID() {
		t.Errorf("ExistingNextError = %+v, want id %v next %v", nextErr, locs[0].ID(), locs[1].ID())
	}
}

func testAppendOverwritesPrev(t *testing.T, s Store) {
	ctx := context.Background()
	locs := sequence(t, s, "A", "B")
	c := newPlainNote(t, s, "C", "C")

	// Appending onto a note that already has a predecessor rewires its prev.
	if err := s.AppendNote(ctx, c.ID(), locs[1].ID()); err != nil {
		t.Fatalf("AppendNote() error = %v", err)
	}
	b := getNote(t, s, locs[1].Current())
	if b.Prev == nil || *b.Prev != c.ID() {
		t.Errorf("B.Prev = %v, want %v", b.Prev, c.ID())
	}
	a := getNote(t, s, locs[0].Current())
	if a.Next != nil {
		t.Errorf("A.Next = %v, want nil after rewiring", a.Next)
	}
}

func testAppendSelfRejected(t *testing.T, s Store) {
	ctx := context.Background()
	loc := newPlainNote(t, s, "", "A")

	err := s.AppendNote(ctx, loc.ID(), loc.ID())
	var cycleErr *notegraf.WouldCreateCycleError
	if !errors.As(err, &cycleErr) {
		t.Errorf("AppendNote(self) error = %v, want *WouldCreateCycleError", err)
	}
}

func testAddBranch(t *testing.T, s Store) {
	ctx := context.Background()
	child := newPlainNote(t, s, "", "Branch")
	parent := newPlainNote(t, s, "", "Parent")

	if err := s.AddBranch(ctx, parent.ID(), child.ID()); err != nil {
		t.Fatalf("AddBranch() error = %v", err)
	}

	// The old parent revision predates the link; the projection is derived
	// from current revisions, so it shows the branch either way.
	if got := getNote(t, s, parent.Current()); !containsID(got.Branches, child.ID()) {
		t.Errorf("Branches = %v, want to contain %v", got.Branches, child.ID())
	}
	if got := getNote(t, s, child.Current()); got.Parent == nil || *got.Parent != parent.ID() {
		t.Errorf("Parent = %v, want %v", got.Parent, parent.ID())
	}
}

func testAddBranchSelfRejected(t *testing.T, s Store) {
	ctx := context.Background()
	loc := newPlainNote(t, s, "", "P")

	err := s.AddBranch(ctx, loc.ID(), loc.ID())
	var cycleErr *notegraf.WouldCreateCycleError
	if !errors.As(err, &cycleErr) {
		t.Errorf("AddBranch(self) error = %v, want *WouldCreateCycleError", err)
	}
}

func testAddBranchCycleRejected(t *testing.T, s Store) {
	ctx := context.Background()
	p := newPlainNote(t, s, "", "P")
	c := newPlainNote(t, s, "", "C")

	if err := s.AddBranch(ctx, p.ID(), c.ID()); err != nil {
		t.Fatalf("AddBranch() error = %v", err)
	}
	err := s.AddBranch(ctx, c.ID(), p.ID())
	var cycleErr *notegraf.WouldCreateCycleError
	if !errors.As(err, &cycleErr) {
		t.Errorf("AddBranch(cycle) error = %v, want *WouldCreateCycleError", err)
	}
}

func testCurrentRevisionStates(t *testing.T, s Store) {
	ctx := context.Background()
	loc := newPlainNote(t, s, "", "Note")
	rev, _ := loc.Revision()

	current, ok, err := s.CurrentRevision(ctx, loc.ID())
	if err != nil || !ok || current != rev {
		t.Errorf("CurrentRevision() = (%v, %v, %v), want (%v, true, nil)", current, ok, err, rev)
	}

	if err := s.DeleteNote(ctx, loc.Current()); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	_, ok, err = s.CurrentRevision(ctx, loc.ID())
	if err != nil || ok {
		t.Errorf("CurrentRevision(deleted) = (%v, %v), want (false, nil)", ok, err)
	}

	_, _, err = s.CurrentRevision(ctx, notegraf.NewNoteID())
	var notExistErr *notegraf.NoteNotExistError
	if !errors.As(err, &notExistErr) {
		t.Errorf("CurrentRevision(unknown) error = %v, want *NoteNotExistError", err)
	}
}

func testBacklinkAndOrphanSearch(t *testing.T, s Store) {
	ctx := context.Background()
	a, err := s.NewNote(ctx, "foo", notetype.NewMarkdownBody("a body"), notegraf.MetadataPatch{})
	if err != nil {
		t.Fatalf("NewNote() error = %v", err)
	}
	link := notegraf.NoteURL(a.ID()).String()
	b, err := s.NewNote(ctx, "bar", notetype.NewMarkdownBody("[a]("+link+")"), notegraf.MetadataPatch{})
	if err != nil {
		t.Fatalf("NewNote() error = %v", err)
	}

	noteA := getNote(t, s, a.Current())
	if len(noteA.References) != 1 || noteA.References[0] != b.ID() {
		t.Errorf("references(A) = %v, want {%v}", noteA.References, b.ID())
	}
	noteB := getNote(t, s, b.Current())
	if len(noteB.Referents) != 1 || noteB.Referents[0] != a.ID() {
		t.Errorf("referents(B) = %v, want {%v}", noteB.Referents, a.ID())
	}

	// A has an incoming reference, so only B is an orphan.
	results, err := s.Search(ctx, ParseSearchRequest("!orphan"))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != b.ID() {
		ids := make([]notegraf.NoteID, len(results))
		for i, n := range results {
			ids[i] = n.ID
		}
		t.Errorf("Search(!orphan) = %v, want {%v}", ids, b.ID())
	}
}

func testSearchTagExclude(t *testing.T, s Store) {
	ctx := context.Background()
	n1 := newPlainNote(t, s, "foo", "", "tag1")
	n2 := newPlainNote(t, s, "foo", "", "tag2")

	results, err := s.Search(ctx, ParseSearchRequest("-#tag1"))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != n2.ID() {
		t.Errorf("Search(-#tag1) returned %d results, want just N2", len(results))
	}

	results, err = s.Search(ctx, ParseSearchRequest("foo -#tag2"))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != n1.ID() {
		t.Errorf("Search(foo -#tag2) returned %d results, want just N1", len(results))
	}
}

func testSearchRecentOrderAndLimit(t *testing.T, s Store) {
	ctx := context.Background()
	var ids []notegraf.NoteID
	for i := 1; i <= 3; i++ {
		loc := newPlainNote(t, s, fmt.Sprintf("note %d", i), "")
		ids = append(ids, loc.ID())
	}

	results, err := s.Search(ctx, ParseSearchRequest(""))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(results))
	}
	// Most recently modified first.
	for i, want := range []notegraf.NoteID{ids[2], ids[1], ids[0]} {
		if results[i].ID != want {
			t.Errorf("results[%d].ID = %v, want %v", i, results[i].ID, want)
		}
	}

	results, err = s.Search(ctx, ParseSearchRequest("!limit=1"))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != ids[2] {
		t.Errorf("Search(!limit=1) = %d results, want just the newest", len(results))
	}
}
