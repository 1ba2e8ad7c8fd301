package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// DeliveryNotesKind tags which shape a DeliveryNotes payload carries.
type DeliveryNotesKind string

const (
	NotesStructured DeliveryNotesKind = "structured"
	NotesFreeform   DeliveryNotesKind = "freeform"
)

var ErrUnknownNotesKind = errors.New("delivery notes: kind must be 'structured' or 'freeform'")

// DeliveryNotes is the tagged payload stored JSON-encoded in 'orders.delivery_notes'.
// Structured notes carry event and logistics metadata, freeform notes carry Text only.
// AdminNotes is maintained by admins after checkout and is valid for both kinds.
type DeliveryNotes struct {
	Kind DeliveryNotesKind `json:"kind"`

	// --- Freeform ---
	Text string `json:"text,omitempty"`

	// --- Structured ---
	EventName       string `json:"event_name,omitempty"`
	EventDate       string `json:"event_date,omitempty"`
	EventTime       string `json:"event_time,omitempty"`
	ContactPhone    string `json:"contact_phone,omitempty"`
	AlternatePhone  string `json:"alternate_phone,omitempty"`
	ReferenceSource string `json:"reference_source,omitempty"`
	ShareLocation   string `json:"share_location,omitempty"`
	Landmark        string `json:"landmark,omitempty"`
	DeliveryType    string `json:"delivery_type,omitempty"`

	AdminNotes string `json:"admin_notes,omitempty"`
}

// deliveryNotesJSON has the same fields without the custom decoder.
type deliveryNotesJSON DeliveryNotes

// UnmarshalJSON accepts either a tagged object or a bare JSON string.
// A JSON string is freeform text; an object must name its kind.
func (n *DeliveryNotes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = DeliveryNotes{}
		return nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*n = DeliveryNotes{Kind: NotesFreeform, Text: text}
		return nil
	}

	var decoded deliveryNotesJSON
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return fmt.Errorf("delivery notes: %w", err)
	}
	notes := DeliveryNotes(decoded)
	if !notes.Kind.Valid() {
		return ErrUnknownNotesKind
	}
	*n = notes
	return nil
}

func (k DeliveryNotesKind) Valid() bool {
	return k == NotesStructured || k == NotesFreeform
}

// IsZero reports whether no notes were supplied at all.
func (n DeliveryNotes) IsZero() bool {
	return n == DeliveryNotes{}
}

// Value implements driver.Valuer so the payload can be written directly.
func (n DeliveryNotes) Value() (driver.Value, error) {
	if n.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
// Rows written before the payload was tagged hold plain text and load as freeform.
func (n *DeliveryNotes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*n = DeliveryNotes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("delivery notes: unsupported column type %T", src)
	}

	if err := n.UnmarshalJSON(raw); err != nil {
		*n = DeliveryNotes{Kind: NotesFreeform, Text: string(raw)}
	}
	return nil
}

// nullable returns nil for empty strings so exploded columns stay NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DeliveryColumns are the exploded, individually indexed copies of structured notes.
type DeliveryColumns struct {
	EventName       *string
	EventDate       *string
	EventTime       *string
	ContactPhone    *string
	AlternatePhone  *string
	ReferenceSource *string
	ShareLocation   *string
	Landmark        *string
	DeliveryType    *string
}

// Columns explodes structured notes. Freeform notes produce all-NULL columns.
func (n DeliveryNotes) Columns() DeliveryColumns {
	if n.Kind != NotesStructured {
		return DeliveryColumns{}
	}
	return DeliveryColumns{
		EventName:       nullable(n.EventName),
		EventDate:       nullable(n.EventDate),
		EventTime:       nullable(n.EventTime),
		ContactPhone:    nullable(n.ContactPhone),
		AlternatePhone:  nullable(n.AlternatePhone),
		ReferenceSource: nullable(n.ReferenceSource),
		ShareLocation:   nullable(n.ShareLocation),
		Landmark:        nullable(n.Landmark),
		DeliveryType:    nullable(n.DeliveryType),
	}
}
