package metadata

import (
	"encoding/json"
	"errors"
	"fmt"

	"timetable-service/internal/field"
	"timetable-service/internal/genre"
)

var ErrMissingGenre = errors.New("metadata: genre is required")

// Document is the genre-specific metadata stored on a timeline.
// Implementations: *PA, *Meeting, *Travel, *LifePlan, *Other.
type Document interface {
	Genre() genre.Genre
	Fields() []field.CustomField
	document()
}

// Absent optional values are omitted from every document, never written as null.

type PA struct {
	VenueName            string              `json:"venue_name,omitempty"`
	VenueAddress         string              `json:"venue_address,omitempty"`
	LoadInTime           string              `json:"load_in_time,omitempty"`
	RehearsalStartTime   string              `json:"rehearsal_start_time,omitempty"`
	PerformanceStartTime string              `json:"performance_start_time,omitempty"`
	LoadOutTime          string              `json:"load_out_time,omitempty"`
	ContactPerson        string              `json:"contact_person,omitempty"`
	ContactPhone         string              `json:"contact_phone,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	CustomFields         []field.CustomField `json:"customFields,omitempty"`
}

type Meeting struct {
	MeetingRoom   string              `json:"meeting_room,omitempty"`
	BuildingName  string              `json:"building_name,omitempty"`
	Floor         string              `json:"floor,omitempty"`
	Capacity      *int                `json:"capacity,omitempty"`
	ContactPerson string              `json:"contact_person,omitempty"`
	ContactEmail  string              `json:"contact_email,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CustomFields  []field.CustomField `json:"customFields,omitempty"`
}

type Accommodation struct {
	Name     string `json:"name,omitempty"`
	Address  string `json:"address,omitempty"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
}

type Leg struct {
	Method   string `json:"method,omitempty"`
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`
}

type Transportation struct {
	Departure *Leg `json:"departure,omitempty"`
	Return    *Leg `json:"return,omitempty"`
}

type Travel struct {
	Destination      string              `json:"destination,omitempty"`
	Accommodation    *Accommodation      `json:"accommodation,omitempty"`
	Transportation   *Transportation     `json:"transportation,omitempty"`
	EmergencyContact string              `json:"emergency_contact,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	CustomFields     []field.CustomField `json:"customFields,omitempty"`
}

type LifePlan struct {
	Category     string              `json:"category,omitempty"`
	Priority     string              `json:"priority,omitempty"`
	Budget       *float64            `json:"budget,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	CustomFields []field.CustomField `json:"customFields,omitempty"`
}

type Other struct {
	Notes        string              `json:"notes,omitempty"`
	CustomFields []field.CustomField `json:"customFields,omitempty"`
}

func (*PA) Genre() genre.Genre       { return genre.PA }
func (*Meeting) Genre() genre.Genre  { return genre.Meeting }
func (*Travel) Genre() genre.Genre   { return genre.Travel }
func (*LifePlan) Genre() genre.Genre { return genre.LifePlan }
func (*Other) Genre() genre.Genre    { return genre.Other }

func (d *PA) Fields() []field.CustomField       { return d.CustomFields }
func (d *Meeting) Fields() []field.CustomField  { return d.CustomFields }
func (d *Travel) Fields() []field.CustomField   { return d.CustomFields }
func (d *LifePlan) Fields() []field.CustomField { return d.CustomFields }
func (d *Other) Fields() []field.CustomField    { return d.CustomFields }

func (*PA) document()       {}
func (*Meeting) document()  {}
func (*Travel) document()   {}
func (*LifePlan) document() {}
func (*Other) document()    {}

// Decode reads a stored document back into its genre-specific shape.
// Unknown genres decode as Other.
func Decode(g genre.Genre, raw []byte) (Document, error) {
	var doc Document
	switch g {
	case genre.PA:
		doc = &PA{}
	case genre.Meeting:
		doc = &Meeting{}
	case genre.Travel:
		doc = &Travel{}
	case genre.LifePlan:
		doc = &LifePlan{}
	default:
		doc = &Other{}
	}
	if len(raw) == 0 || string(raw) == "null" {
		return doc, nil
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", g, err)
	}
	return doc, nil
}
