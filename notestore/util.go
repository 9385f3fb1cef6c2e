package notestore

import (
	"context"

	"github.com/notegraf/notegraf"
	"github.com/notegraf/notegraf/notetype"
)

// PopulateTestData seeds a store with a small markdown sequence, for
// development setups that want something to look at.
func PopulateTestData(ctx context.Context, store Store) error {
	loc1, err := store.NewNote(ctx, "Sequence 1", notetype.NewMarkdownBody("body1"), notegraf.MetadataPatch{})
	if err != nil {
		return err
	}
	loc2, err := store.NewNote(ctx, "Sequence 2", notetype.NewMarkdownBody("body2"), notegraf.MetadataPatch{
		Tags: []string{"tag1", "tag2"},
	})
	if err != nil {
		return err
	}
	if err := store.AppendNote(ctx, loc1.ID(), loc2.ID()); err != nil {
		return err
	}
	loc3, err := store.NewNote(ctx, "Sequence 3", notetype.NewMarkdownBody(""), notegraf.MetadataPatch{})
	if err != nil {
		return err
	}
	return store.AppendNote(ctx, loc2.ID(), loc3.ID())
}
