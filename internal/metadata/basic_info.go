package metadata

import (
	"strconv"

	"timetable-service/internal/field"
	"timetable-service/internal/genre"
)

// BasicInfo is the step-two form. It carries the common fields, the optional
// fields of every genre and the resource checklist; Genre says which of the
// genre-specific fields are meaningful.
type BasicInfo struct {
	Genre       genre.Genre `json:"genre"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`

	VenueName            string `json:"venue_name,omitempty"`
	VenueAddress         string `json:"venue_address,omitempty"`
	LoadInTime           string `json:"load_in_time,omitempty"`
	RehearsalStartTime   string `json:"rehearsal_start_time,omitempty"`
	PerformanceStartTime string `json:"performance_start_time,omitempty"`
	LoadOutTime          string `json:"load_out_time,omitempty"`
	ContactPerson        string `json:"contact_person,omitempty"`
	ContactPhone         string `json:"contact_phone,omitempty"`

	MeetingRoom  string   `json:"meeting_room,omitempty"`
	BuildingName string   `json:"building_name,omitempty"`
	Floor        string   `json:"floor,omitempty"`
	Capacity     *float64 `json:"capacity,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`

	Destination          string `json:"destination,omitempty"`
	AccommodationName    string `json:"accommodation_name,omitempty"`
	AccommodationAddress string `json:"accommodation_address,omitempty"`
	CheckIn              string `json:"check_in,omitempty"`
	CheckOut             string `json:"check_out,omitempty"`
	DepartureMethod      string `json:"departure_method,omitempty"`
	DepartureTime        string `json:"departure_time,omitempty"`
	DepartureLocation    string `json:"departure_location,omitempty"`
	ReturnMethod         string `json:"return_method,omitempty"`
	ReturnTime           string `json:"return_time,omitempty"`
	ReturnLocation       string `json:"return_location,omitempty"`
	EmergencyContact     string `json:"emergency_contact,omitempty"`

	Category string   `json:"category,omitempty"`
	Priority string   `json:"priority,omitempty"`
	Budget   *float64 `json:"budget,omitempty"`

	Notes string `json:"notes,omitempty"`

	CustomFields []field.CustomField `json:"customFields,omitempty"`
}

// Value returns the form value stored under a catalog field key.
func (b BasicInfo) Value(key string) string {
	switch key {
	case "title":
		return b.Title
	case "description":
		return b.Description
	case "start_date":
		return b.StartDate
	case "end_date":
		return b.EndDate
	case "venue_name":
		return b.VenueName
	case "venue_address":
		return b.VenueAddress
	case "load_in_time":
		return b.LoadInTime
	case "rehearsal_start_time":
		return b.RehearsalStartTime
	case "performance_start_time":
		return b.PerformanceStartTime
	case "load_out_time":
		return b.LoadOutTime
	case "contact_person":
		return b.ContactPerson
	case "contact_phone":
		return b.ContactPhone
	case "meeting_room":
		return b.MeetingRoom
	case "building_name":
		return b.BuildingName
	case "floor":
		return b.Floor
	case "capacity":
		if b.Capacity == nil {
			return ""
		}
		return strconv.FormatFloat(*b.Capacity, 'f', -1, 64)
	case "contact_email":
		return b.ContactEmail
	case "destination":
		return b.Destination
	case "accommodation_name":
		return b.AccommodationName
	case "accommodation_address":
		return b.AccommodationAddress
	case "check_in":
		return b.CheckIn
	case "check_out":
		return b.CheckOut
	case "departure_method":
		return b.DepartureMethod
	case "departure_time":
		return b.DepartureTime
	case "departure_location":
		return b.DepartureLocation
	case "return_method":
		return b.ReturnMethod
	case "return_time":
		return b.ReturnTime
	case "return_location":
		return b.ReturnLocation
	case "emergency_contact":
		return b.EmergencyContact
	case "category":
		return b.Category
	case "priority":
		return b.Priority
	case "budget":
		if b.Budget == nil {
			return ""
		}
		return strconv.FormatFloat(*b.Budget, 'f', -1, 64)
	case "notes":
		return b.Notes
	}
	return ""
}
