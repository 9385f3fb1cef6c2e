package notetype

import (
	"bytes"
	"strings"

	"github.com/pgavlin/goldmark"
	"github.com/pgavlin/goldmark/ast"
	"github.com/pgavlin/goldmark/renderer/markdown"
	"github.com/pgavlin/goldmark/text"

	"github.com/notegraf/notegraf"
)

// MarkdownType is the markdown note format. Referents are the targets of
// links and autolinks whose destination is an internal notegraf:/note/<id>
// URL; everything else in the body is opaque to the store.
type MarkdownType struct{}

func (MarkdownType) Name() string {
	return "markdown"
}

func (MarkdownType) Parse(s string) (Body, error) {
	return MarkdownBody{Text: s}, nil
}

// MarkdownBody is a markdown body; the persisted form is the markdown text
// itself.
type MarkdownBody struct {
	Text string
}

// NewMarkdownBody wraps markdown text as a body.
func NewMarkdownBody(text string) MarkdownBody {
	return MarkdownBody{Text: text}
}

func (b MarkdownBody) String() string {
	return b.Text
}

func (b MarkdownBody) Referents() ([]notegraf.NoteID, error) {
	source := []byte(b.Text)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var ids []notegraf.NoteID
	seen := make(map[notegraf.NoteID]struct{})
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dest string
		switch link := n.(type) {
		case *ast.Link:
			dest = string(link.Destination)
		case *ast.AutoLink:
			dest = string(link.URL(source))
		default:
			return ast.WalkContinue, nil
		}
		u, err := notegraf.ParseURL(dest)
		if err != nil {
			// Foreign or malformed URLs are not referents.
			return ast.WalkContinue, nil
		}
		if _, ok := seen[u.Note]; !ok {
			seen[u.Note] = struct{}{}
			ids = append(ids, u.Note)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &notegraf.NoteInnerError{Msg: err.Error()}
	}
	if ids == nil {
		ids = []notegraf.NoteID{}
	}
	return ids, nil
}

func (b MarkdownBody) UpdateReferent(old, new notegraf.NoteID) (Body, error) {
	refs, err := b.Referents()
	if err != nil {
		return nil, err
	}
	if !containsID(refs, old) {
		return nil, &ReferenceNotExistError{ID: old}
	}
	if old == new {
		return b, nil
	}

	oldURL := notegraf.NoteURL(old).String()
	newURL := notegraf.NoteURL(new).String()

	// Autolink text is the URL itself, so rewriting the destination must
	// also rewrite the visible text. Replacing the <url> form up front
	// covers both at once.
	source := []byte(strings.ReplaceAll(b.Text, "<"+oldURL+">", "<"+newURL+">"))

	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok && string(link.Destination) == oldURL {
			link.Destination = []byte(newURL)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &notegraf.NoteInnerError{Msg: err.Error()}
	}

	var buf bytes.Buffer
	if err := markdown.NewRenderer().Render(&buf, source, doc); err != nil {
		return nil, &notegraf.NoteInnerError{Msg: err.Error()}
	}
	return MarkdownBody{Text: buf.String()}, nil
}
