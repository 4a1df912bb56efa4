// Package vcon holds the conversation-record data model produced by the
// adapters and posted to the conserver.
//
// The shape tracks the vCon draft: parties, dialog entries and attachments.
// Only the subset this service emits is modeled; unknown inbound fields are
// never read back, so there is no round-trip requirement.
package vcon

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the vCon syntax version emitted by this service.
const SpecVersion = "0.0.1"

// DialogTypeRecording is the only dialog type the adapters produce.
const DialogTypeRecording = "recording"

// Party identifies one participant of the conversation by phone number.
type Party struct {
	Tel string `json:"tel,omitempty"`
}

// Dialog is one conversation segment. For recordings either Body (embedded
// base64 audio) or URL (external reference) is set, never both; a dialog with
// neither is a valid reference-less recording.
type Dialog struct {
	Type       string    `json:"type"`
	Start      time.Time `json:"start"`
	Parties    []int     `json:"parties"`
	Originator int       `json:"originator"`
	Mimetype   string    `json:"mimetype,omitempty"`
	Duration   *float64  `json:"duration,omitempty"`
	Body       string    `json:"body,omitempty"`
	Encoding   string    `json:"encoding,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	URL        string    `json:"url,omitempty"`
}

// Attachment carries out-of-dialog data. Tags are stored as a single
// attachment of type "tags" whose body is a list of "name:value" strings.
type Attachment struct {
	Type     string   `json:"type"`
	Body     []string `json:"body"`
	Encoding string   `json:"encoding"`
}

// Vcon is one conversation record. Built once per webhook event; treated as
// immutable after it has been posted.
type Vcon struct {
	Vcon        string       `json:"vcon"`
	UUID        string       `json:"uuid"`
	CreatedAt   time.Time    `json:"created_at"`
	Parties     []Party      `json:"parties"`
	Dialog      []Dialog     `json:"dialog,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// New allocates an empty record with a fresh UUID and the current UTC time.
// Callers overwrite CreatedAt with the recording start time when known.
func New() *Vcon {
	return &Vcon{
		Vcon:      SpecVersion,
		UUID:      uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// AddParty appends a party and returns its index.
func (v *Vcon) AddParty(p Party) int {
	v.Parties = append(v.Parties, p)
	return len(v.Parties) - 1
}

// AddDialog appends a dialog entry.
func (v *Vcon) AddDialog(d Dialog) {
	v.Dialog = append(v.Dialog, d)
}

// AddTag appends a "name:value" entry to the tags attachment, creating the
// attachment on first use.
func (v *Vcon) AddTag(name, value string) {
	for i := range v.Attachments {
		if v.Attachments[i].Type == "tags" {
			v.Attachments[i].Body = append(v.Attachments[i].Body, name+":"+value)
			return
		}
	}
	v.Attachments = append(v.Attachments, Attachment{
		Type:     "tags",
		Body:     []string{name + ":" + value},
		Encoding: "json",
	})
}

// Tag returns the value of a named tag, or "" when absent. The first match
// wins; tags are append-only and never deduplicated.
func (v *Vcon) Tag(name string) string {
	prefix := name + ":"
	for _, a := range v.Attachments {
		if a.Type != "tags" {
			continue
		}
		for _, entry := range a.Body {
			if len(entry) > len(prefix) && entry[:len(prefix)] == prefix {
				return entry[len(prefix):]
			}
		}
	}
	return ""
}

// ToJSON renders the canonical JSON form posted to the conserver.
func (v *Vcon) ToJSON() ([]byte, error) {
	return json.Marshal(v)
}
