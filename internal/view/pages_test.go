package view

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/field"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
	"timetable-service/internal/timeline"
)

type fakeTimelines struct {
	list      []timeline.Timeline
	detail    *timeline.Detail
	err       error
	listGenre genre.Genre
}

func (f *fakeTimelines) ListForUser(_ context.Context, _ *auth.User, g genre.Genre) ([]timeline.Timeline, error) {
	f.listGenre = g
	return f.list, f.err
}

func (f *fakeTimelines) Get(_ context.Context, _ *auth.User, id string, _ bool) (*timeline.Detail, error) {
	if f.detail == nil || f.detail.ID != id {
		return nil, timeline.ErrNotFound
	}
	return f.detail, nil
}

var viewer = &auth.User{ID: "owner-1", Email: "owner@example.com", FullName: "Owner"}

func newTestPages(t *testing.T, tl Timelines, user *auth.User) http.Handler {
	t.Helper()
	p, err := NewPages(tl, "https://timeline.example/", tokyo, zap.NewNop())
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, 8, 1, 12, 0, 0, 0, tokyo) }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(auth.WithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	})
	p.Routes(r)
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func sampleDetail(t *testing.T) *timeline.Detail {
	t.Helper()
	doc, err := metadata.Project(genre.PA, metadata.BasicInfo{
		Genre:     genre.PA,
		Title:     "夏フェス",
		StartDate: "2024-08-10T09:00",
		EndDate:   "2024-08-11T21:00",
		VenueName: "野外ステージ",
		CustomFields: []field.CustomField{
			{ID: "f1", Type: field.TypeNumber, Label: "マイク", Value: "4", Unit: "本", Status: field.StatusPending},
		},
	})
	require.NoError(t, err)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	return &timeline.Detail{
		Timeline: timeline.Timeline{
			ID: "t1", Title: "夏フェス", Genre: genre.PA,
			StartDate: "2024-08-10T09:00", EndDate: "2024-08-11T21:00",
			Metadata: raw, CreatedBy: viewer.ID,
		},
		Events: []timeline.Event{
			{ID: "e1", Title: "搬入", StartTime: "2024-08-10T09:00", EndTime: "2024-08-10T11:00"},
			{ID: "e2", Title: "本番", StartTime: "2024-08-10T18:00", EndTime: "2024-08-11T20:00"},
		},
		Items: []timeline.Item{{ID: "i1", Name: "XLRケーブル", Quantity: 10, Unit: "本", IsRequired: true}},
	}
}

func TestHomePage(t *testing.T) {
	anon := get(newTestPages(t, &fakeTimelines{}, nil), "/")
	assert.Equal(t, http.StatusOK, anon.Code)
	assert.Contains(t, anon.Body.String(), "Googleでログイン")

	signedIn := get(newTestPages(t, &fakeTimelines{}, viewer), "/")
	assert.Contains(t, signedIn.Body.String(), "ようこそ、Ownerさん")
	assert.Contains(t, signedIn.Body.String(), `href="/timelines/new"`)
}

func TestPrivatePagesRedirectAnonymous(t *testing.T) {
	h := newTestPages(t, &fakeTimelines{}, nil)
	for _, path := range []string{"/dashboard", "/admin", "/timelines/new"} {
		w := get(h, path)
		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, "/", w.Header().Get("Location"), path)
	}
}

func TestDashboardEmpty(t *testing.T) {
	w := get(newTestPages(t, &fakeTimelines{}, viewer), "/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "タイムテーブルがまだ作成されていません")
}

func TestDashboardGroupsByGenre(t *testing.T) {
	tl := &fakeTimelines{list: []timeline.Timeline{
		{ID: "t1", Title: "夏フェス", Genre: genre.PA, StartDate: "2024-08-10T09:00", EndDate: "2024-08-10T21:00"},
		{ID: "t2", Title: "定例会", Genre: genre.Meeting, StartDate: "2024-08-12T10:00", EndDate: "2024-08-12T11:00", IsPublic: true},
	}}
	w := get(newTestPages(t, tl, viewer), "/dashboard?genre=bogus")

	body := w.Body.String()
	assert.Equal(t, genre.Genre(""), tl.listGenre)
	assert.Contains(t, body, genre.PA.Label())
	assert.Contains(t, body, genre.Meeting.Label())
	assert.Contains(t, body, `href="/timelines/t1"`)
	assert.Contains(t, body, "2024年08月10日 09:00")
	assert.NotContains(t, body, "タイムテーブルがまだ作成されていません")
}

func TestDashboardFilter(t *testing.T) {
	tl := &fakeTimelines{}
	get(newTestPages(t, tl, viewer), "/dashboard?genre=travel")
	assert.Equal(t, genre.Travel, tl.listGenre)
}

func TestAdminPage(t *testing.T) {
	w := get(newTestPages(t, &fakeTimelines{}, viewer), "/admin")
	assert.Contains(t, w.Body.String(), "既存ユーザーのプロフィール作成")
}

func TestNewTimelinePage(t *testing.T) {
	w := get(newTestPages(t, &fakeTimelines{}, viewer), "/timelines/new")
	body := w.Body.String()
	assert.Contains(t, body, "/static/wizard.js")
	assert.Contains(t, body, `data-genre="pa"`)
}

func TestDetailMissingRedirects(t *testing.T) {
	w := get(newTestPages(t, &fakeTimelines{}, nil), "/timelines/missing")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestDetailCalendar(t *testing.T) {
	w := get(newTestPages(t, &fakeTimelines{detail: sampleDetail(t)}, viewer), "/timelines/t1")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "4本")
	assert.Contains(t, body, "未確認")
	assert.Contains(t, body, "https://timeline.example/timelines/t1")
	assert.Contains(t, body, "2024年08月")
	assert.Contains(t, body, "搬入")
	assert.Contains(t, body, "XLRケーブル")
	assert.Contains(t, body, `data-action="delete"`)
}

func TestDetailForVisitorHidesOwnerActions(t *testing.T) {
	d := sampleDetail(t)
	d.IsPublic = true
	w := get(newTestPages(t, &fakeTimelines{detail: d}, nil), "/timelines/t1?view=list")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotContains(t, body, `data-action="delete"`)
	assert.Contains(t, body, "2024/08/10 18:00 - 2024/08/11 20:00")
}

func TestDetailGantt(t *testing.T) {
	w := get(newTestPages(t, &fakeTimelines{detail: sampleDetail(t)}, viewer), "/timelines/t1?view=gantt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="gantt"`)
	assert.Contains(t, w.Body.String(), "2日")
}

func TestStaticAssets(t *testing.T) {
	h := newTestPages(t, &fakeTimelines{}, nil)

	js := get(h, "/static/wizard.js")
	assert.Equal(t, http.StatusOK, js.Code)
	assert.Equal(t, "application/javascript", js.Header().Get("Content-Type"))

	css := get(h, "/static/app.css")
	assert.Equal(t, "text/css", css.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, get(h, "/static/missing.js").Code)
}
