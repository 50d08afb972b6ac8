package view

import (
	"fmt"
	"html/template"
	"time"

	"timetable-service/internal/timeline"
)

type Mode string

const (
	ModeMonth Mode = "month"
	ModeWeek  Mode = "week"
	ModeDay   Mode = "day"
)

func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeWeek, ModeDay:
		return Mode(s)
	}
	return ModeMonth
}

// Weekdays are the calendar column headings, Sunday first.
var Weekdays = []string{"日", "月", "火", "水", "木", "金", "土"}

var eventColors = []string{"blue", "green", "purple", "orange", "pink", "teal", "indigo", "yellow"}

// Color picks the palette entry for the i-th event of a timeline.
func Color(i int) string {
	return eventColors[i%len(eventColors)]
}

type CalendarEvent struct {
	ID       string
	Title    string
	Location string
	Start    time.Time
	End      time.Time
	Color    string
	Details  []DetailRow
}

// Span is "15:04 - 15:04".
func (e CalendarEvent) Span() string {
	return e.Start.Format("15:04") + " - " + e.End.Format("15:04")
}

// Range is the full date range for tooltips.
func (e CalendarEvent) Range() string {
	return e.Start.Format(shortLayout) + " - " + e.End.Format(shortLayout)
}

// CalendarEvents converts stored events, keeping their order so each event
// keeps its colour. Events whose times cannot be read are skipped.
func CalendarEvents(events []timeline.Event, loc *time.Location) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(events))
	for i, ev := range events {
		start, ok := ParseTime(ev.StartTime, loc)
		if !ok {
			continue
		}
		end, ok := ParseTime(ev.EndTime, loc)
		if !ok {
			end = start
		}
		out = append(out, CalendarEvent{
			ID:       ev.ID,
			Title:    ev.Title,
			Location: ev.Location,
			Start:    start,
			End:      end,
			Color:    Color(i),
			Details:  EventDetails(ev.Metadata, loc),
		})
	}
	return out
}

// OnDay reports whether e touches the calendar day containing day.
func (e CalendarEvent) OnDay(day time.Time) bool {
	d := startOfDay(day)
	return sameDay(e.Start, d) || sameDay(e.End, d) || (!e.Start.After(d) && !e.End.Before(d))
}

type Day struct {
	Date    time.Time
	InMonth bool
	Today   bool
	Events  []CalendarEvent
	More    int
}

// Calendar is a navigation cursor over a month, week or single day.
type Calendar struct {
	Mode   Mode
	Cursor time.Time
	Now    time.Time
}

func NewCalendar(mode Mode, cursor, now time.Time) Calendar {
	return Calendar{Mode: mode, Cursor: startOfDay(cursor), Now: now}
}

func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func endOfWeek(t time.Time) time.Time {
	return startOfWeek(t).AddDate(0, 0, 6)
}

// Bounds returns the first and last day shown.
func (c Calendar) Bounds() (time.Time, time.Time) {
	switch c.Mode {
	case ModeWeek:
		return startOfWeek(c.Cursor), endOfWeek(c.Cursor)
	case ModeDay:
		return c.Cursor, c.Cursor
	default:
		y, m, _ := c.Cursor.Date()
		first := time.Date(y, m, 1, 0, 0, 0, 0, c.Cursor.Location())
		last := first.AddDate(0, 1, -1)
		return startOfWeek(first), endOfWeek(last)
	}
}

// perCell is how many events a day cell lists before "+N件".
func (c Calendar) perCell() int {
	if c.Mode == ModeDay {
		return 20
	}
	return 3
}

func (c Calendar) Days(events []CalendarEvent) []Day {
	first, last := c.Bounds()
	limit := c.perCell()

	var days []Day
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := Day{
			Date:    d,
			InMonth: c.Mode != ModeMonth || d.Month() == c.Cursor.Month(),
			Today:   sameDay(d, c.Now),
		}
		for _, e := range events {
			if e.OnDay(d) {
				day.Events = append(day.Events, e)
			}
		}
		if len(day.Events) > limit {
			day.More = len(day.Events) - limit
			day.Events = day.Events[:limit]
		}
		days = append(days, day)
	}
	return days
}

func (c Calendar) Prev() Calendar {
	switch c.Mode {
	case ModeWeek:
		c.Cursor = c.Cursor.AddDate(0, 0, -7)
	case ModeDay:
		c.Cursor = c.Cursor.AddDate(0, 0, -1)
	default:
		y, m, _ := c.Cursor.Date()
		c.Cursor = time.Date(y, m-1, 1, 0, 0, 0, 0, c.Cursor.Location())
	}
	return c
}

func (c Calendar) Next() Calendar {
	switch c.Mode {
	case ModeWeek:
		c.Cursor = c.Cursor.AddDate(0, 0, 7)
	case ModeDay:
		c.Cursor = c.Cursor.AddDate(0, 0, 1)
	default:
		y, m, _ := c.Cursor.Date()
		c.Cursor = time.Date(y, m+1, 1, 0, 0, 0, 0, c.Cursor.Location())
	}
	return c
}

func (c Calendar) Today() Calendar {
	c.Cursor = startOfDay(c.Now)
	return c
}

func (c Calendar) Title() string {
	switch c.Mode {
	case ModeWeek:
		first, last := c.Bounds()
		return first.Format("2006年01月02日") + " - " + last.Format("01月02日")
	case ModeDay:
		return c.Cursor.Format("2006年01月02日")
	default:
		return c.Cursor.Format("2006年01月")
	}
}

// Query is the cursor encoded as a link query ("view=calendar&mode=week&date=...").
func (c Calendar) Query() template.URL {
	return template.URL(fmt.Sprintf("view=calendar&mode=%s&date=%s", c.Mode, c.Cursor.Format("2006-01-02")))
}
