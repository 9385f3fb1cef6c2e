package notegraf

import (
	"encoding/json"
	"sort"
	"time"
)

// CurrentMetadataSchemaVersion is the newest metadata layout this code
// understands. Revisions carrying a higher version are read-only.
const CurrentMetadataSchemaVersion uint64 = 0

// Metadata is the per-revision bookkeeping stored next to a note's content.
type Metadata struct {
	SchemaVersion uint64          `json:"schema_version"`
	CreatedAt     time.Time       `json:"created_at"`
	ModifiedAt    time.Time       `json:"modified_at"`
	Tags          []string        `json:"tags"`
	Custom        json.RawMessage `json:"custom_metadata"`
}

// MetadataPatch is the caller-editable subset of Metadata. A nil field
// leaves the stored value unchanged; to clear tags pass an empty non-nil
// slice, to clear custom metadata pass the JSON literal null.
type MetadataPatch struct {
	Tags   []string
	Custom json.RawMessage
}

// NewMetadata returns metadata for a freshly created note: both timestamps
// set to now, no tags, no custom payload.
func NewMetadata() Metadata {
	now := time.Now().UTC()
	return Metadata{
		SchemaVersion: CurrentMetadataSchemaVersion,
		CreatedAt:     now,
		ModifiedAt:    now,
		Tags:          []string{},
	}
}

// Apply returns a copy of m with the patch applied. Timestamps and the
// schema version are untouched.
func (m Metadata) Apply(p MetadataPatch) Metadata {
	out := m
	if p.Tags != nil {
		out.Tags = NormalizeTags(p.Tags)
	}
	if p.Custom != nil {
		out.Custom = p.Custom
	}
	return out
}

// OnUpdate derives the metadata for a new revision from the metadata of the
// revision it replaces: created_at is preserved, modified_at moves strictly
// forward, and the patch is applied on top. It fails when the stored
// metadata was written by a newer schema than this code understands.
func (m Metadata) OnUpdate(p MetadataPatch) (Metadata, error) {
	if m.SchemaVersion > CurrentMetadataSchemaVersion {
		return Metadata{}, &UnsupportedSchemaVersionError{Version: m.SchemaVersion}
	}
	out := m.Apply(p)
	out.SchemaVersion = CurrentMetadataSchemaVersion
	out.ModifiedAt = monotonicNow(m.ModifiedAt)
	return out, nil
}

// HasTag reports whether tag is in the metadata's tag set.
func (m Metadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags sorts and deduplicates a tag list, giving the set a single
// canonical representation across backends.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// monotonicNow returns the current time, nudged forward to prev plus one
// microsecond when the wall clock has not advanced at least that far.
// Revision timestamps must be strictly increasing within a note; the
// microsecond step survives the timestamptz round trip of the relational
// backing.
func monotonicNow(prev time.Time) time.Time {
	now := time.Now().UTC()
	if floor := prev.Add(time.Microsecond); now.Before(floor) {
		return floor
	}
	return now
}
