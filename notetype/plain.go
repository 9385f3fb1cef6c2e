package notetype

import (
	"encoding/json"
	"sort"

	"github.com/notegraf/notegraf"
)

// PlainType is the plain-text note format. Bodies carry their referent set
// explicitly next to the text; the persisted form is a small JSON document.
type PlainType struct{}

func (PlainType) Name() string {
	return "plain"
}

func (PlainType) Parse(s string) (Body, error) {
	var b PlainBody
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return nil, &notegraf.NoteInnerError{Msg: "malformed plain note: " + err.Error()}
	}
	if b.ReferentIDs == nil {
		b.ReferentIDs = []notegraf.NoteID{}
	}
	return b, nil
}

// PlainBody is a plain-text body with an explicit referent set.
type PlainBody struct {
	Text        string            `json:"body"`
	ReferentIDs []notegraf.NoteID `json:"referents"`
}

// NewPlainBody builds a plain body referring to the given notes. Duplicate
// referents are collapsed.
func NewPlainBody(text string, referents ...notegraf.NoteID) PlainBody {
	b := PlainBody{Text: text, ReferentIDs: []notegraf.NoteID{}}
	for _, r := range referents {
		if !containsID(b.ReferentIDs, r) {
			b.ReferentIDs = append(b.ReferentIDs, r)
		}
	}
	b.sortReferents()
	return b
}

func (b PlainBody) String() string {
	data, _ := json.Marshal(b)
	return string(data)
}

func (b PlainBody) Referents() ([]notegraf.NoteID, error) {
	out := make([]notegraf.NoteID, len(b.ReferentIDs))
	copy(out, b.ReferentIDs)
	return out, nil
}

func (b PlainBody) UpdateReferent(old, new notegraf.NoteID) (Body, error) {
	if !containsID(b.ReferentIDs, old) {
		return nil, &ReferenceNotExistError{ID: old}
	}
	if old == new {
		return b, nil
	}
	out := PlainBody{Text: b.Text, ReferentIDs: []notegraf.NoteID{}}
	for _, r := range b.ReferentIDs {
		if r == old {
			r = new
		}
		if !containsID(out.ReferentIDs, r) {
			out.ReferentIDs = append(out.ReferentIDs, r)
		}
	}
	out.sortReferents()
	return out, nil
}

// sortReferents keeps the referent set in a canonical order so the string
// form is deterministic across backends.
func (b PlainBody) sortReferents() {
	sort.Slice(b.ReferentIDs, func(i, j int) bool {
		return b.ReferentIDs[i].String() < b.ReferentIDs[j].String()
	})
}
