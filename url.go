package notegraf

import (
	"fmt"
	"net/url"
	"strings"
)

// URLScheme is the scheme of notegraf-internal URLs.
const URLScheme = "notegraf"

// URL is a parsed notegraf-internal URL. The only kind currently defined
// points at a note: notegraf:/note/<id>.
type URL struct {
	Note NoteID
}

// NoteURL returns the internal URL for a note.
func NoteURL(id NoteID) URL {
	return URL{Note: id}
}

func (u URL) String() string {
	return fmt.Sprintf("%s:/note/%s", URLScheme, u.Note)
}

// NotAURLError reports input that is not a URL at all.
type NotAURLError struct {
	Msg string
}

func (e *NotAURLError) Error() string {
	return fmt.Sprintf("not a valid URL: %s", e.Msg)
}

// WrongSchemeError reports a URL with a scheme other than notegraf.
type WrongSchemeError struct {
	Scheme string
}

func (e *WrongSchemeError) Error() string {
	return fmt.Sprintf("URL scheme `%s` not supported", e.Scheme)
}

// CannotBeABaseError reports an opaque URL that has no path segments.
type CannotBeABaseError struct{}

func (e *CannotBeABaseError) Error() string {
	return "the URL cannot be a base"
}

// URLSyntaxError reports a notegraf URL whose path does not follow the
// /note/<id> shape.
type URLSyntaxError struct {
	Msg string
}

func (e *URLSyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", e.Msg)
}

// ParseURL parses a string into an internal URL. The input must use the
// notegraf scheme, be base-relative, and have exactly the path segments
// ["note", <id>].
func ParseURL(s string) (URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return URL{}, &NotAURLError{Msg: err.Error()}
	}
	if u.Scheme == "" {
		return URL{}, &NotAURLError{Msg: "relative URL without a scheme"}
	}
	if u.Scheme != URLScheme {
		return URL{}, &WrongSchemeError{Scheme: u.Scheme}
	}
	if u.Opaque != "" {
		return URL{}, &CannotBeABaseError{}
	}
	if u.Host != "" {
		return URL{}, &URLSyntaxError{Msg: "URL must be base-relative"}
	}
	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(parts) != 2 {
		return URL{}, &URLSyntaxError{Msg: "URL does not have exactly two parts"}
	}
	if parts[0] != "note" {
		return URL{}, &URLSyntaxError{Msg: "first part of the URL not recognized"}
	}
	id, err := ParseNoteID(parts[1])
	if err != nil {
		return URL{}, &URLSyntaxError{Msg: fmt.Sprintf("invalid note id %q", parts[1])}
	}
	return URL{Note: id}, nil
}
