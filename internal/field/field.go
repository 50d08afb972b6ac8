package field

import (
	"github.com/google/uuid"

	"timetable-service/internal/genre"
)

// Type is the vocabulary for timeline-level resource fields.
type Type string

const (
	TypeText     Type = "text"
	TypeTextarea Type = "textarea"
	TypeDatetime Type = "datetime"
	TypeNumber   Type = "number"
	TypeHeader   Type = "header"
	TypeFile     Type = "file"
	TypeLink     Type = "link"
	TypeBoolean  Type = "boolean"
)

var types = []Type{TypeText, TypeTextarea, TypeDatetime, TypeNumber, TypeHeader, TypeFile, TypeLink, TypeBoolean}

func ParseType(s string) (Type, bool) {
	for _, t := range types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// EventType is the vocabulary for per-event detail fields.
type EventType string

const (
	EventText     EventType = "text"
	EventTextarea EventType = "textarea"
	EventDatetime EventType = "datetime"
	EventNumber   EventType = "number"
	EventSelect   EventType = "select"
	EventURL      EventType = "url"
	EventEmail    EventType = "email"
	EventPhone    EventType = "phone"
)

var eventTypes = []EventType{EventText, EventTextarea, EventDatetime, EventNumber, EventSelect, EventURL, EventEmail, EventPhone}

func ParseEventType(s string) (EventType, bool) {
	for _, t := range eventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusAcquired  Status = "acquired"
)

// Units offered for number fields.
var Units = []string{"個", "本", "m", "A", "W", "kg", "円", "台", "セット", "枚"}

// CustomField is an entry of the resource checklist. Header entries are
// section dividers and carry neither value nor status.
type CustomField struct {
	ID       string `json:"id"`
	Type     Type   `json:"type"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Unit     string `json:"unit,omitempty"`
	Status   Status `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

func (f CustomField) Ident() string { return f.ID }

func (f CustomField) IsHeader() bool { return f.Type == TypeHeader }

// EventField is a free-form detail attached to a single event.
type EventField struct {
	ID      string    `json:"id"`
	Label   string    `json:"label"`
	Value   string    `json:"value"`
	Type    EventType `json:"type"`
	Options []string  `json:"options,omitempty"`
}

func (f EventField) Ident() string { return f.ID }

// NewID mints a random identifier for fields, events and items.
func NewID() string {
	return uuid.NewString()
}

// New returns an empty field of type t with a fresh id.
func New(t Type) CustomField {
	f := CustomField{ID: NewID(), Type: t}
	if t != TypeHeader {
		f.Status = StatusPending
	}
	return f
}

func FromPreset(p genre.Preset) CustomField {
	t, ok := ParseType(p.Type)
	if !ok {
		t = TypeText
	}
	f := New(t)
	f.Label = p.Label
	f.Unit = p.Unit
	return f
}

// NextStatus cycles pending -> confirmed -> acquired -> pending.
// Anything unrecognised is treated as pending.
func NextStatus(s Status) Status {
	switch s {
	case StatusPending:
		return StatusConfirmed
	case StatusConfirmed:
		return StatusAcquired
	case StatusAcquired:
		return StatusPending
	default:
		return StatusConfirmed
	}
}

// ToggleStatus advances the status of a non-header field. Headers are returned unchanged.
func ToggleStatus(f CustomField) CustomField {
	if f.IsHeader() {
		return f
	}
	f.Status = NextStatus(f.Status)
	return f
}

// Patch holds the fields to merge into a CustomField. Nil members are left alone.
type Patch struct {
	Type     *Type   `json:"type,omitempty"`
	Label    *string `json:"label,omitempty"`
	Value    *string `json:"value,omitempty"`
	Unit     *string `json:"unit,omitempty"`
	Status   *Status `json:"status,omitempty"`
	Assignee *string `json:"assignee,omitempty"`
}

func (p Patch) Apply(f CustomField) CustomField {
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Value != nil {
		f.Value = *p.Value
	}
	if p.Unit != nil {
		f.Unit = *p.Unit
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.Assignee != nil {
		f.Assignee = *p.Assignee
	}
	if p.Type != nil || p.Value != nil || p.Status != nil {
		if f.IsHeader() {
			f.Value = ""
			f.Status = ""
		} else if f.Status == "" {
			f.Status = StatusPending
		}
	}
	return f
}

type EventPatch struct {
	Label   *string    `json:"label,omitempty"`
	Value   *string    `json:"value,omitempty"`
	Type    *EventType `json:"type,omitempty"`
	Options []string   `json:"options,omitempty"`
}

func (p EventPatch) Apply(f EventField) EventField {
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Value != nil {
		f.Value = *p.Value
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Options != nil {
		f.Options = append([]string(nil), p.Options...)
	}
	return f
}
