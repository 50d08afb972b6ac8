package wizard

import (
	"errors"
	"strings"
	"time"

	"timetable-service/internal/field"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
	"timetable-service/internal/timeline"
)

type Step int

const (
	StepGenre     Step = 1
	StepBasicInfo Step = 2
	StepEvents    Step = 3
)

var (
	ErrInvalidEvent = errors.New("イベントのタイトル、開始時間、終了時間は必須です")
	ErrInvalidItem  = errors.New("アイテム名は必須です")
	ErrQuantity     = errors.New("数量は1以上で入力してください")
	ErrNoGenre      = errors.New("ジャンルを選択してください")
	ErrUnknownEntry = errors.New("対象が見つかりません")
)

// Event is a step-three event as edited in the draft.
type Event struct {
	ID string `json:"id"`
	timeline.EventInput
}

func (e Event) Ident() string { return e.ID }

type Item struct {
	ID string `json:"id"`
	timeline.ItemInput
}

func (i Item) Ident() string { return i.ID }

// Draft is the in-progress state of the creation wizard. Every transition
// returns a new Draft and leaves the receiver untouched.
type Draft struct {
	ID        string              `json:"id"`
	Step      Step                `json:"step"`
	Genre     genre.Genre         `json:"genre,omitempty"`
	BasicInfo *metadata.BasicInfo `json:"basicInfo,omitempty"`
	Fields    []field.CustomField `json:"fields"`
	Events    []Event             `json:"events"`
	Items     []Item              `json:"items"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func New() Draft {
	return Draft{
		ID:     field.NewID(),
		Step:   StepGenre,
		Fields: []field.CustomField{},
		Events: []Event{},
		Items:  []Item{},
	}
}

// Progress is the completion percentage shown above the wizard.
func (d Draft) Progress() int {
	return int(d.Step-1) * 100 / 2
}

// SelectGenre records g and moves to the basic-info step. Basic info entered
// for a previous genre is kept.
func (d Draft) SelectGenre(g genre.Genre) Draft {
	d.Genre = g
	d.Step = StepBasicInfo
	return d
}

// SubmitBasicInfo validates info against the draft's genre. On success the
// info is stored and the draft moves to the events step; otherwise the draft
// is returned unchanged along with the per-field errors.
func (d Draft) SubmitBasicInfo(info metadata.BasicInfo) (Draft, ValidationErrors) {
	if d.Genre == "" {
		return d, ValidationErrors{"genre": ErrNoGenre.Error()}
	}
	info.Genre = d.Genre
	if len(info.CustomFields) == 0 {
		info.CustomFields = append([]field.CustomField(nil), d.Fields...)
	}
	if errs := ValidateBasicInfo(d.Genre, info); len(errs) > 0 {
		return d, errs
	}

	d.Fields = append([]field.CustomField{}, info.CustomFields...)
	d.BasicInfo = &info
	d.Step = StepEvents
	return d, nil
}

func (d Draft) PreviousStep() Draft {
	if d.Step > StepGenre {
		d.Step--
	}
	return d
}

func (d Draft) NextStep() Draft {
	if d.Step < StepEvents {
		d.Step++
	}
	return d
}

// GoToStep jumps to s, clamped to the wizard's three steps.
func (d Draft) GoToStep(s Step) Draft {
	switch {
	case s < StepGenre:
		s = StepGenre
	case s > StepEvents:
		s = StepEvents
	}
	d.Step = s
	return d
}

// Reset empties the draft but keeps its id.
func (d Draft) Reset() Draft {
	fresh := New()
	fresh.ID = d.ID
	return fresh
}

func validEvent(in timeline.EventInput) bool {
	return strings.TrimSpace(in.Title) != "" && in.StartTime != "" && in.EndTime != ""
}

func (d Draft) AddEvent(in timeline.EventInput) (Draft, Event, error) {
	if !validEvent(in) {
		return d, Event{}, ErrInvalidEvent
	}
	in.CustomFields = withFieldIDs(in.CustomFields)
	ev := Event{ID: field.NewID(), EventInput: in}
	events, err := field.Add(d.Events, ev)
	if err != nil {
		return d, Event{}, err
	}
	d.Events = events
	return d, ev, nil
}

// EventPatch merges into an event. Nil members are left alone; a non-nil
// CustomFields replaces the event's detail fields.
type EventPatch struct {
	Title        *string             `json:"title,omitempty"`
	Description  *string             `json:"description,omitempty"`
	StartTime    *string             `json:"start_time,omitempty"`
	EndTime      *string             `json:"end_time,omitempty"`
	Location     *string             `json:"location,omitempty"`
	CustomFields *[]field.EventField `json:"customFields,omitempty"`
}

func (p EventPatch) apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.CustomFields != nil {
		e.CustomFields = withFieldIDs(*p.CustomFields)
	}
	return e
}

func (d Draft) UpdateEvent(id string, p EventPatch) (Draft, error) {
	ev, ok := field.Find(d.Events, id)
	if !ok {
		return d, ErrUnknownEntry
	}
	if !validEvent(p.apply(ev).EventInput) {
		return d, ErrInvalidEvent
	}
	d.Events = field.Update(d.Events, id, p.apply)
	return d, nil
}

func (d Draft) RemoveEvent(id string) Draft {
	d.Events = field.Remove(d.Events, id)
	return d
}

func (d Draft) MoveEvent(fromID, toID string) Draft {
	d.Events = field.Reorder(d.Events, fromID, toID)
	return d
}

// AddEventField appends an empty text detail to the event.
func (d Draft) AddEventField(eventID string) (Draft, field.EventField, error) {
	if _, ok := field.Find(d.Events, eventID); !ok {
		return d, field.EventField{}, ErrUnknownEntry
	}
	f := field.EventField{ID: field.NewID(), Type: field.EventText}
	d.Events = field.Update(d.Events, eventID, func(e Event) Event {
		e.CustomFields, _ = field.Add(e.CustomFields, f)
		return e
	})
	return d, f, nil
}

func (d Draft) UpdateEventField(eventID, fieldID string, p field.EventPatch) (Draft, error) {
	ev, ok := field.Find(d.Events, eventID)
	if !ok || field.Index(ev.CustomFields, fieldID) < 0 {
		return d, ErrUnknownEntry
	}
	d.Events = field.Update(d.Events, eventID, func(e Event) Event {
		e.CustomFields = field.Update(e.CustomFields, fieldID, p.Apply)
		return e
	})
	return d, nil
}

func (d Draft) RemoveEventField(eventID, fieldID string) Draft {
	d.Events = field.Update(d.Events, eventID, func(e Event) Event {
		e.CustomFields = field.Remove(e.CustomFields, fieldID)
		return e
	})
	return d
}

func withFieldIDs(in []field.EventField) []field.EventField {
	out := make([]field.EventField, 0, len(in))
	for _, f := range in {
		if f.ID == "" || field.Index(out, f.ID) >= 0 {
			f.ID = field.NewID()
		}
		if f.Type == "" {
			f.Type = field.EventText
		}
		out = append(out, f)
	}
	return out
}

// AddItem appends an item. A zero quantity means one.
func (d Draft) AddItem(in timeline.ItemInput) (Draft, Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return d, Item{}, ErrInvalidItem
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return d, Item{}, ErrQuantity
	}
	it := Item{ID: field.NewID(), ItemInput: in}
	items, err := field.Add(d.Items, it)
	if err != nil {
		return d, Item{}, err
	}
	d.Items = items
	return d, it, nil
}

type ItemPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
	Unit        *string `json:"unit,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsRequired  *bool   `json:"is_required,omitempty"`
}

func (p ItemPatch) apply(it Item) Item {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		it.Unit = *p.Unit
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.IsRequired != nil {
		it.IsRequired = *p.IsRequired
	}
	return it
}

func (d Draft) UpdateItem(id string, p ItemPatch) (Draft, error) {
	it, ok := field.Find(d.Items, id)
	if !ok {
		return d, ErrUnknownEntry
	}
	next := p.apply(it)
	if strings.TrimSpace(next.Name) == "" {
		return d, ErrInvalidItem
	}
	if next.Quantity < 1 {
		return d, ErrQuantity
	}
	d.Items = field.Update(d.Items, id, p.apply)
	return d, nil
}

func (d Draft) RemoveItem(id string) Draft {
	d.Items = field.Remove(d.Items, id)
	return d
}

// AddField appends a new resource field of type t to the working list.
func (d Draft) AddField(t field.Type) (Draft, field.CustomField) {
	f := field.New(t)
	d.Fields, _ = field.Add(d.Fields, f)
	return d, f
}

// AddPresets appends the genre's presets to the working list.
func (d Draft) AddPresets() (Draft, []field.CustomField) {
	if d.Genre == "" {
		return d, nil
	}
	added := make([]field.CustomField, 0)
	for _, p := range genre.Presets(d.Genre) {
		f := field.FromPreset(p)
		next, err := field.Add(d.Fields, f)
		if err != nil {
			continue
		}
		d.Fields = next
		added = append(added, f)
	}
	return d, added
}

func (d Draft) UpdateField(id string, p field.Patch) (Draft, error) {
	if field.Index(d.Fields, id) < 0 {
		return d, ErrUnknownEntry
	}
	d.Fields = field.Update(d.Fields, id, p.Apply)
	return d, nil
}

func (d Draft) RemoveField(id string) Draft {
	d.Fields = field.Remove(d.Fields, id)
	return d
}

func (d Draft) MoveField(fromID, toID string) Draft {
	d.Fields = field.Reorder(d.Fields, fromID, toID)
	return d
}

func (d Draft) ToggleFieldStatus(id string) (Draft, error) {
	if field.Index(d.Fields, id) < 0 {
		return d, ErrUnknownEntry
	}
	d.Fields = field.Update(d.Fields, id, field.ToggleStatus)
	return d, nil
}

// CreateInput assembles the draft into the single payload handed to the
// timeline gateway on save.
func (d Draft) CreateInput() timeline.CreateInput {
	in := timeline.CreateInput{
		Genre:  d.Genre,
		Events: make([]timeline.EventInput, 0, len(d.Events)),
		Items:  make([]timeline.ItemInput, 0, len(d.Items)),
	}
	if d.BasicInfo != nil {
		in.BasicInfo = *d.BasicInfo
		in.BasicInfo.Genre = d.Genre
	}
	for _, ev := range d.Events {
		in.Events = append(in.Events, ev.EventInput)
	}
	for _, it := range d.Items {
		in.Items = append(in.Items, it.ItemInput)
	}
	return in
}
