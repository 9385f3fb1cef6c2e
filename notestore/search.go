package notestore

import (
	"strconv"
	"strings"
)

// DefaultSearchLimit caps result sets when a search request does not carry
// an explicit !limit flag.
const DefaultSearchLimit = 50

// SearchRequest is a parsed search string.
type SearchRequest struct {
	Lexemes         []string
	ExcludedLexemes []string
	Tags            []string
	ExcludedTags    []string
	OrphansOnly     bool
	Limit           int // 0 means DefaultSearchLimit
}

// ParseSearchRequest tokenizes a search string on whitespace and classifies
// each token:
//
//	#tag      include tag
//	-#tag     exclude tag
//	!orphan   restrict to orphans
//	!limit=N  cap the result count
//	-word     exclude lexeme
//	word      include lexeme
//
// Empty tokens and malformed !limit values are discarded.
func ParseSearchRequest(query string) SearchRequest {
	var req SearchRequest
	for _, tok := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(tok, "-#"):
			if tag := tok[2:]; tag != "" {
				req.ExcludedTags = append(req.ExcludedTags, tag)
			}
		case strings.HasPrefix(tok, "#"):
			if tag := tok[1:]; tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		case tok == "!orphan":
			req.OrphansOnly = true
		case strings.HasPrefix(tok, "!limit="):
			if n, err := strconv.Atoi(tok[len("!limit="):]); err == nil && n > 0 {
				req.Limit = n
			}
		case strings.HasPrefix(tok, "-"):
			if word := tok[1:]; word != "" {
				req.ExcludedLexemes = append(req.ExcludedLexemes, word)
			}
		default:
			req.Lexemes = append(req.Lexemes, tok)
		}
	}
	return req
}

// Recent reports whether the request is the empty "most recent notes"
// request: no lexemes, no tags, and no flags.
func (r SearchRequest) Recent() bool {
	return len(r.Lexemes) == 0 &&
		len(r.ExcludedLexemes) == 0 &&
		len(r.Tags) == 0 &&
		len(r.ExcludedTags) == 0 &&
		!r.OrphansOnly &&
		r.Limit == 0
}

// EffectiveLimit returns the result cap the backends apply.
func (r SearchRequest) EffectiveLimit() int {
	if r.Limit > 0 {
		return r.Limit
	}
	return DefaultSearchLimit
}

// Matches evaluates the request against a hydrated current-revision view.
// The relational backing pushes the same predicates into SQL; this form is
// used by the in-memory backing and serves as the reference semantics.
func (r SearchRequest) Matches(n *Note) bool {
	title := strings.ToLower(n.Title)
	body := strings.ToLower(n.Body.String())
	for _, lex := range r.Lexemes {
		lex = strings.ToLower(lex)
		if !strings.Contains(title, lex) && !strings.Contains(body, lex) {
			return false
		}
	}
	for _, lex := range r.ExcludedLexemes {
		lex = strings.ToLower(lex)
		if strings.Contains(title, lex) || strings.Contains(body, lex) {
			return false
		}
	}
	for _, tag := range r.Tags {
		if !n.Metadata.HasTag(tag) {
			return false
		}
	}
	for _, tag := range r.ExcludedTags {
		if n.Metadata.HasTag(tag) {
			return false
		}
	}
	if r.OrphansOnly {
		if len(n.References) > 0 || n.Prev != nil || n.Parent != nil {
			return false
		}
	}
	return true
}
