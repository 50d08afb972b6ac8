package view

import (
	"math"
	"time"
)

type MonthSpan struct {
	Label    string
	Days     int
	WidthPct float64
}

type Bar struct {
	Event    CalendarEvent
	LeftPct  float64
	WidthPct float64
	Days     int
}

// ShowDays reports whether the bar is wide enough to print its day count.
func (b Bar) ShowDays() bool {
	return b.Days > 0 && b.WidthPct > 5
}

// Gantt lays events out as horizontal bars across the timeline's days.
type Gantt struct {
	Start     time.Time
	End       time.Time
	TotalDays int
	Months    []MonthSpan
	Bars      []Bar
}

func NewGantt(start, end time.Time, events []CalendarEvent) Gantt {
	g := Gantt{Start: startOfDay(start), End: endOfDay(end)}
	if g.End.Before(g.Start) {
		g.End = endOfDay(start)
	}
	g.TotalDays = daysBetween(g.End, g.Start) + 1

	for cur := g.Start; !cur.After(g.End); {
		y, m, _ := cur.Date()
		monthStart := time.Date(y, m, 1, 0, 0, 0, 0, cur.Location())
		monthEnd := endOfDay(monthStart.AddDate(0, 1, -1))

		from := maxTime(monthStart, g.Start)
		to := minTime(monthEnd, g.End)
		if days := daysBetween(to, from) + 1; days > 0 {
			g.Months = append(g.Months, MonthSpan{
				Label:    monthStart.Format("2006年01月"),
				Days:     days,
				WidthPct: pct(days, g.TotalDays),
			})
		}
		cur = monthStart.AddDate(0, 1, 0)
	}

	g.Bars = make([]Bar, 0, len(events))
	for _, e := range events {
		from := maxTime(e.Start, g.Start)
		to := minTime(e.End, g.End)
		days := max(0, daysBetween(to, from)+1)
		g.Bars = append(g.Bars, Bar{
			Event:    e,
			LeftPct:  math.Max(0, pct(daysBetween(from, g.Start), g.TotalDays)),
			WidthPct: math.Max(0, math.Min(100, pct(days, g.TotalDays))),
			Days:     days,
		})
	}
	return g
}

func pct(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
