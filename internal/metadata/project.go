package metadata

import (
	"timetable-service/internal/field"
	"timetable-service/internal/genre"
)

// Project builds the metadata document for a timeline of genre g.
// An empty g falls back to info.Genre; if both are empty ErrMissingGenre is
// returned. Unrecognised genres project as Other.
func Project(g genre.Genre, info BasicInfo) (Document, error) {
	if g == "" {
		g = info.Genre
	}
	if g == "" {
		return nil, ErrMissingGenre
	}

	custom := labelled(info.CustomFields)

	switch g {
	case genre.PA:
		return &PA{
			VenueName:            info.VenueName,
			VenueAddress:         info.VenueAddress,
			LoadInTime:           info.LoadInTime,
			RehearsalStartTime:   info.RehearsalStartTime,
			PerformanceStartTime: info.PerformanceStartTime,
			LoadOutTime:          info.LoadOutTime,
			ContactPerson:        info.ContactPerson,
			ContactPhone:         info.ContactPhone,
			Notes:                info.Notes,
			CustomFields:         custom,
		}, nil
	case genre.Meeting:
		return &Meeting{
			MeetingRoom:   info.MeetingRoom,
			BuildingName:  info.BuildingName,
			Floor:         info.Floor,
			Capacity:      wholeNumber(info.Capacity),
			ContactPerson: info.ContactPerson,
			ContactEmail:  info.ContactEmail,
			Notes:         info.Notes,
			CustomFields:  custom,
		}, nil
	case genre.Travel:
		return &Travel{
			Destination:      info.Destination,
			Accommodation:    accommodation(info),
			Transportation:   transportation(info),
			EmergencyContact: info.EmergencyContact,
			Notes:            info.Notes,
			CustomFields:     custom,
		}, nil
	case genre.LifePlan:
		return &LifePlan{
			Category:     info.Category,
			Priority:     info.Priority,
			Budget:       copyFloat(info.Budget),
			Notes:        info.Notes,
			CustomFields: custom,
		}, nil
	default:
		return &Other{
			Notes:        info.Notes,
			CustomFields: custom,
		}, nil
	}
}

// labelled keeps the fields that have a label, copied verbatim.
func labelled(fields []field.CustomField) []field.CustomField {
	var out []field.CustomField
	for _, f := range fields {
		if f.Label == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func accommodation(info BasicInfo) *Accommodation {
	a := Accommodation{
		Name:     info.AccommodationName,
		Address:  info.AccommodationAddress,
		CheckIn:  info.CheckIn,
		CheckOut: info.CheckOut,
	}
	if a == (Accommodation{}) {
		return nil
	}
	return &a
}

func transportation(info BasicInfo) *Transportation {
	t := Transportation{
		Departure: leg(info.DepartureMethod, info.DepartureTime, info.DepartureLocation),
		Return:    leg(info.ReturnMethod, info.ReturnTime, info.ReturnLocation),
	}
	if t.Departure == nil && t.Return == nil {
		return nil
	}
	return &t
}

func leg(method, at, location string) *Leg {
	l := Leg{Method: method, Time: at, Location: location}
	if l == (Leg{}) {
		return nil
	}
	return &l
}

// wholeNumber drops any fraction; validation has already rejected one.
func wholeNumber(v *float64) *int {
	if v == nil {
		return nil
	}
	c := int(*v)
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// EventEntry is one per-event detail, keyed by its label in EventMetadata.
type EventEntry struct {
	Value   string          `json:"value"`
	Type    field.EventType `json:"type"`
	Options []string        `json:"options,omitempty"`
}

type EventMetadata map[string]EventEntry

// ProjectEvent folds an event's detail fields into a label-keyed map.
// Fields without a label or value are dropped; on a repeated label the later
// field wins.
func ProjectEvent(fields []field.EventField) EventMetadata {
	out := EventMetadata{}
	for _, f := range fields {
		if f.Label == "" || f.Value == "" {
			continue
		}
		out[f.Label] = EventEntry{
			Value:   f.Value,
			Type:    f.Type,
			Options: append([]string(nil), f.Options...),
		}
	}
	return out
}
