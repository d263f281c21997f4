package domain

import (
	"sort"
	"strings"
	"time"
)

// NoteSchemaVersion is the record layout version stamped on every saved
// note record.
const NoteSchemaVersion = 1

// NoteSchemaName is the name NoteSchema is registered under with an
// InstanceFactory.
const NoteSchemaName = "domain.NoteSchema"

// Note is a short text with tags. It is the aggregate the CLI manages.
type Note struct {
	Entity

	title     string
	body      string
	tags      []string
	updatedAt time.Time
}

// NewNote creates a detached note.
func NewNote(title, body string, tags ...string) *Note {
	n := &Note{title: title, body: body}
	n.SetTags(tags)
	return n
}

func (n *Note) Title() string         { return n.title }
func (n *Note) SetTitle(title string) { n.title = title }
func (n *Note) Body() string          { return n.body }
func (n *Note) SetBody(body string)   { n.body = body }

// UpdatedAt is the time the backing record was last saved.
func (n *Note) UpdatedAt() time.Time     { return n.updatedAt }
func (n *Note) SetUpdatedAt(t time.Time) { n.updatedAt = t }

// Tags returns a copy of the note's tags.
func (n *Note) Tags() []string {
	out := make([]string, len(n.tags))
	copy(out, n.tags)
	return out
}

// SetTags replaces the tags. Blanks and duplicates are dropped and the
// remainder is sorted.
func (n *Note) SetTags(tags []string) {
	n.tags = normalizeTags(tags)
}

// AutoSetMarkers declares the note setters filled from a NoteRecord.
// Tags are converted by repository hooks.
func (n *Note) AutoSetMarkers() []AutoSet {
	return []AutoSet{
		Mark("SetTitle"),
		Mark("SetBody"),
		Mark("SetUpdatedAt"),
	}
}

// NoteRecord is the persisted form of a Note.
type NoteRecord struct {
	DataObject `yaml:",inline"`

	Title     string    `json:"title" yaml:"title"`
	Body      string    `json:"body" yaml:"body"`
	Tags      string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Schema    int       `json:"schema" yaml:"schema"`
}

func (r *NoteRecord) GetTitle() string         { return r.Title }
func (r *NoteRecord) SetTitle(title string)    { r.Title = title }
func (r *NoteRecord) GetBody() string          { return r.Body }
func (r *NoteRecord) SetBody(body string)      { r.Body = body }
func (r *NoteRecord) GetUpdatedAt() time.Time  { return r.UpdatedAt }
func (r *NoteRecord) SetUpdatedAt(t time.Time) { r.UpdatedAt = t }
func (r *NoteRecord) GetSchema() int           { return r.Schema }
func (r *NoteRecord) SetSchema(v int)          { r.Schema = v }

// AutoSetMarkers declares the record setters filled from a Note. The save
// time and schema version come from helper owners rather than the note.
func (r *NoteRecord) AutoSetMarkers() []AutoSet {
	return []AutoSet{
		Mark("SetTitle"),
		Mark("SetBody"),
		Mark("SetUpdatedAt").On(Clock{}).From("Now"),
		Mark("SetSchema").OnNamed(NoteSchemaName).From("Version"),
	}
}

// CopyTagsFromRecord fills the tags of n from rec. It is the from-record
// hook of note repositories.
func CopyTagsFromRecord(rec *NoteRecord, n *Note) error {
	n.SetTags(SplitTags(rec.Tags))
	return nil
}

// CopyTagsToRecord stores the tags of n in rec. It is the to-record hook of
// note repositories.
func CopyTagsToRecord(n *Note, rec *NoteRecord) error {
	rec.Tags = JoinTags(n.Tags())
	return nil
}

// Clock provides the save time of records.
type Clock struct{}

// Now returns the current time in UTC.
func (Clock) Now() time.Time { return time.Now().UTC() }

// NoteSchema provides the note record layout version.
type NoteSchema struct{}

// Version returns NoteSchemaVersion.
func (NoteSchema) Version() int { return NoteSchemaVersion }

// JoinTags renders tags in their stored form.
func JoinTags(tags []string) string {
	return strings.Join(normalizeTags(tags), ",")
}

// SplitTags parses the stored form of tags.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	return normalizeTags(strings.Split(s, ","))
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
