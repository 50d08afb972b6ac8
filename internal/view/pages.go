package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
	"timetable-service/internal/timeline"
)

//go:embed templates/*.gohtml
var tplFS embed.FS

//go:embed all:static
var staticFS embed.FS

// Timelines is the read side of *timeline.Service used by the pages.
type Timelines interface {
	ListForUser(ctx context.Context, user *auth.User, g genre.Genre) ([]timeline.Timeline, error)
	Get(ctx context.Context, user *auth.User, id string, requireAuth bool) (*timeline.Detail, error)
}

type Pages struct {
	timelines Timelines
	templates map[string]*template.Template
	siteURL   string
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

var pageNames = []string{"home.gohtml", "dashboard.gohtml", "admin.gohtml", "new.gohtml", "detail.gohtml"}

func NewPages(timelines Timelines, siteURL string, loc *time.Location, logger *zap.Logger) (*Pages, error) {
	if loc == nil {
		loc = time.Local
	}
	funcs := template.FuncMap{
		"genreLabel": func(g genre.Genre) string { return g.Label() },
		"datetime":   func(s string) string { return FormatDateTime(s, loc) },
		"date":       func(t time.Time) string { return t.In(loc).Format("2006年01月02日") },
		"pct":        func(f float64) string { return fmt.Sprintf("%.4f%%", f) },
	}

	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := template.New(name).Funcs(funcs).ParseFS(tplFS, "templates/base.gohtml", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = tpl
	}

	return &Pages{
		timelines: timelines,
		templates: templates,
		siteURL:   strings.TrimRight(siteURL, "/"),
		loc:       loc,
		now:       time.Now,
		logger:    logger.Named("view"),
	}, nil
}

func (p *Pages) Routes(r chi.Router) {
	r.Get("/", p.handleHome)
	r.Get("/timelines/{id}", p.handleDetail)
	r.Get("/static/*", serveStatic)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequirePage)
		r.Get("/dashboard", p.handleDashboard)
		r.Get("/admin", p.handleAdmin)
		r.Get("/timelines/new", p.handleNew)
	})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	data["User"] = auth.UserFromContext(r.Context())
	data["Path"] = r.URL.Path

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.templates[name].ExecuteTemplate(w, "base", data); err != nil {
		p.logger.Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (p *Pages) handleHome(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "home.gohtml", map[string]any{})
}

type genreGroup struct {
	Genre     genre.Genre
	Timelines []timeline.Timeline
}

func (p *Pages) handleDashboard(w http.ResponseWriter, r *http.Request) {
	selected, _ := genre.Parse(r.URL.Query().Get("genre"))
	list, err := p.timelines.ListForUser(r.Context(), auth.UserFromContext(r.Context()), selected)
	if err != nil {
		p.logger.Error("list timelines", zap.Error(err))
		list = []timeline.Timeline{}
	}

	var groups []genreGroup
	for _, g := range genre.All() {
		var in []timeline.Timeline
		for _, t := range list {
			if t.Genre == g {
				in = append(in, t)
			}
		}
		if len(in) > 0 {
			groups = append(groups, genreGroup{Genre: g, Timelines: in})
		}
	}

	p.render(w, r, "dashboard.gohtml", map[string]any{
		"Genres":   genre.All(),
		"Selected": selected,
		"Groups":   groups,
		"Empty":    len(list) == 0,
	})
}

func (p *Pages) handleAdmin(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "admin.gohtml", map[string]any{})
}

func (p *Pages) handleNew(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "new.gohtml", map[string]any{
		"Catalog": genre.Default().Entries(),
	})
}

// handleDetail shows a timeline the visitor may see. Anything unavailable
// sends the visitor to the dashboard.
func (p *Pages) handleDetail(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	detail, err := p.timelines.Get(r.Context(), user, chi.URLParam(r, "id"), false)
	if err != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := map[string]any{
		"Timeline": detail,
		"Owner":    user != nil && user.ID == detail.CreatedBy,
		"ShareURL": p.siteURL + "/timelines/" + detail.ID,
	}

	if doc, err := metadata.Decode(detail.Genre, detail.Metadata); err == nil {
		data["Resources"] = ResourceRows(doc.Fields(), p.loc)
	} else {
		p.logger.Warn("decode metadata", zap.String("timeline_id", detail.ID), zap.Error(err))
	}

	events := CalendarEvents(detail.Events, p.loc)
	q := r.URL.Query()
	mode := q.Get("view")
	switch mode {
	case "gantt":
		start, okStart := ParseTime(detail.StartDate, p.loc)
		end, okEnd := ParseTime(detail.EndDate, p.loc)
		if okStart && okEnd && len(events) > 0 {
			g := NewGantt(start, end, events)
			data["Gantt"] = &g
		}
	case "list":
		data["List"] = events
	default:
		mode = "calendar"
		cursor, ok := ParseTime(q.Get("date"), p.loc)
		if !ok {
			if cursor, ok = ParseTime(detail.StartDate, p.loc); !ok {
				cursor = p.now().In(p.loc)
			}
		}
		cal := NewCalendar(ParseMode(q.Get("mode")), cursor, p.now().In(p.loc))
		data["Calendar"] = cal
		data["Days"] = cal.Days(events)
		data["Weekdays"] = Weekdays
	}
	data["View"] = mode
	data["HasEvents"] = len(events) > 0

	p.render(w, r, "detail.gohtml", data)
}

func serveStatic(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/static/")
	b, err := staticFS.ReadFile(path.Join("static", p))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch {
	case strings.HasSuffix(p, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(p, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(p, ".svg"):
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	_, _ = w.Write(b)
}
