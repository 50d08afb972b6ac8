package view

import (
	"encoding/json"
	"html/template"
	"sort"
	"strings"
	"time"

	"timetable-service/internal/field"
	"timetable-service/internal/metadata"
)

const (
	emptyValue     = "（未入力）"
	untitledHeader = "（見出し未設定）"
)

type StatusBadge struct {
	Emoji string
	Text  string
	Class string
}

// Badge returns the indicator for s. Anything other than confirmed or
// acquired shows as not yet checked.
func Badge(s field.Status) StatusBadge {
	switch s {
	case field.StatusAcquired:
		return StatusBadge{Emoji: "🟢", Text: "準備OK", Class: "status-acquired"}
	case field.StatusConfirmed:
		return StatusBadge{Emoji: "🟡", Text: "手配中", Class: "status-confirmed"}
	default:
		return StatusBadge{Emoji: "🔴", Text: "未確認", Class: "status-pending"}
	}
}

func (b StatusBadge) String() string {
	return b.Emoji + " " + b.Text
}

// ResourceRow is one line of the resource checklist on the detail page.
type ResourceRow struct {
	ID       string
	Header   bool
	Label    string
	Value    string
	Empty    bool
	Status   *StatusBadge
	Assignee string
}

func FormatFieldValue(f field.CustomField, loc *time.Location) string {
	if f.Value == "" {
		return emptyValue
	}
	switch f.Type {
	case field.TypeDatetime:
		return FormatDateTime(f.Value, loc)
	case field.TypeNumber:
		return f.Value + f.Unit
	case field.TypeBoolean:
		if f.Value == "true" {
			return "あり"
		}
		return "なし"
	default:
		return f.Value
	}
}

// ResourceRows lays out the checklist. Unlabelled non-header fields are not
// shown; headers never carry a status.
func ResourceRows(fields []field.CustomField, loc *time.Location) []ResourceRow {
	rows := make([]ResourceRow, 0, len(fields))
	for _, f := range fields {
		if f.IsHeader() {
			label := f.Label
			if label == "" {
				label = untitledHeader
			}
			rows = append(rows, ResourceRow{ID: f.ID, Header: true, Label: label})
			continue
		}
		if f.Label == "" {
			continue
		}
		row := ResourceRow{
			ID:       f.ID,
			Label:    f.Label,
			Value:    FormatFieldValue(f, loc),
			Empty:    f.Value == "",
			Assignee: f.Assignee,
		}
		if f.Status != "" {
			b := Badge(f.Status)
			row.Status = &b
		}
		rows = append(rows, row)
	}
	return rows
}

// EventTypeLabel names an event field type in the detail dialog.
func EventTypeLabel(t field.EventType) string {
	switch t {
	case field.EventText:
		return "テキスト"
	case field.EventTextarea:
		return "長文"
	case field.EventDatetime:
		return "日時"
	case field.EventNumber:
		return "数値"
	case field.EventSelect:
		return "選択"
	case field.EventURL:
		return "URL"
	case field.EventEmail:
		return "メール"
	case field.EventPhone:
		return "電話"
	}
	return string(t)
}

type DetailRow struct {
	Label    string
	Value    string
	Href     template.URL
	TypeName string
}

func FormatEventValue(e metadata.EventEntry, loc *time.Location) (value, href string) {
	if e.Value == "" {
		return emptyValue, ""
	}
	switch e.Type {
	case field.EventDatetime:
		return FormatDateTime(e.Value, loc), ""
	case field.EventNumber:
		return FormatNumber(e.Value), ""
	case field.EventURL:
		if strings.HasPrefix(e.Value, "http://") || strings.HasPrefix(e.Value, "https://") {
			return e.Value, e.Value
		}
		return e.Value, ""
	case field.EventEmail:
		return e.Value, "mailto:" + e.Value
	case field.EventPhone:
		return e.Value, "tel:" + e.Value
	}
	return e.Value, ""
}

// EventDetails decodes an event's stored metadata into display rows ordered
// by label. Malformed metadata yields no rows.
func EventDetails(raw json.RawMessage, loc *time.Location) []DetailRow {
	var meta metadata.EventMetadata
	if len(raw) == 0 || json.Unmarshal(raw, &meta) != nil {
		return nil
	}
	labels := make([]string, 0, len(meta))
	for label, e := range meta {
		if e.Value != "" {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	rows := make([]DetailRow, 0, len(labels))
	for _, label := range labels {
		e := meta[label]
		value, href := FormatEventValue(e, loc)
		rows = append(rows, DetailRow{
			Label:    label,
			Value:    value,
			Href:     template.URL(href),
			TypeName: EventTypeLabel(e.Type),
		})
	}
	return rows
}
