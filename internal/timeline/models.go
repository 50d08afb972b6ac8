package timeline

import (
	"encoding/json"
	"time"

	"timetable-service/internal/field"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
)

type Timeline struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Genre       genre.Genre     `json:"genre"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Metadata    json.RawMessage `json:"metadata"`
	IsPublic    bool            `json:"is_public"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Event struct {
	ID          string          `json:"id"`
	TimelineID  string          `json:"timeline_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Location    string          `json:"location"`
	Metadata    json.RawMessage `json:"metadata"`
	OrderIndex  int             `json:"order_index"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Item struct {
	ID          string    `json:"id"`
	TimelineID  string    `json:"timeline_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	Category    string    `json:"category"`
	IsRequired  bool      `json:"is_required"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
}

// Detail is a timeline with its children in display order.
type Detail struct {
	Timeline
	Events []Event `json:"events"`
	Items  []Item  `json:"items"`
}

type EventInput struct {
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	StartTime    string             `json:"start_time"`
	EndTime      string             `json:"end_time"`
	Location     string             `json:"location,omitempty"`
	CustomFields []field.EventField `json:"customFields,omitempty"`
}

type ItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit,omitempty"`
	Category    string `json:"category,omitempty"`
	IsRequired  bool   `json:"is_required"`
}

// CreateInput is a finished wizard draft.
type CreateInput struct {
	Genre     genre.Genre        `json:"genre"`
	BasicInfo metadata.BasicInfo `json:"basicInfo"`
	Events    []EventInput       `json:"events"`
	Items     []ItemInput        `json:"items"`
}
