package genre

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Genre string

const (
	PA       Genre = "pa"
	Meeting  Genre = "meeting"
	Travel   Genre = "travel"
	LifePlan Genre = "life_plan"
	Other    Genre = "other"
)

var ordered = []Genre{PA, Meeting, Travel, LifePlan, Other}

// All returns the supported genres in display order.
func All() []Genre {
	out := make([]Genre, len(ordered))
	copy(out, ordered)
	return out
}

func Parse(s string) (Genre, bool) {
	g := Genre(strings.TrimSpace(strings.ToLower(s)))
	return g, g.Valid()
}

func (g Genre) Valid() bool {
	for _, known := range ordered {
		if g == known {
			return true
		}
	}
	return false
}

func (g Genre) Label() string {
	return Lookup(g).Label
}

type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindDatetime FieldKind = "datetime"
	KindNumber   FieldKind = "number"
	KindInteger  FieldKind = "integer"
	KindEmail    FieldKind = "email"
	KindPhone    FieldKind = "phone"
	KindSelect   FieldKind = "select"
)

// FieldDef describes one basic-info input. Message is shown when a required
// value is missing or, for email fields, when the address is malformed.
type FieldDef struct {
	Key      string    `yaml:"key" json:"key"`
	Label    string    `yaml:"label" json:"label"`
	Kind     FieldKind `yaml:"kind" json:"kind"`
	Required bool      `yaml:"required" json:"required"`
	Message  string    `yaml:"message" json:"message,omitempty"`
	Options  []string  `yaml:"options" json:"options,omitempty"`
}

// Preset is a one-click resource field offered on the basic-info step.
type Preset struct {
	Label string `yaml:"label" json:"label"`
	Type  string `yaml:"type" json:"type"`
	Unit  string `yaml:"unit" json:"unit,omitempty"`
}

type Entry struct {
	Genre       Genre      `yaml:"id" json:"genre"`
	Label       string     `yaml:"label" json:"label"`
	Description string     `yaml:"description" json:"description"`
	Fields      []FieldDef `yaml:"fields" json:"fields"`
	Presets     []Preset   `yaml:"presets" json:"presets"`
}

func (e Entry) clone() Entry {
	out := e
	out.Fields = make([]FieldDef, len(e.Fields))
	for i, f := range e.Fields {
		f.Options = append([]string(nil), f.Options...)
		out.Fields[i] = f
	}
	out.Presets = append([]Preset(nil), e.Presets...)
	return out
}

type Catalog struct {
	entries map[Genre]Entry
}

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = mustLoad(catalogYAML)

// Load parses a catalog document. Every genre must be present exactly once.
func Load(data []byte) (*Catalog, error) {
	var doc struct {
		Genres []Entry `yaml:"genres"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse genre catalog: %w", err)
	}

	c := &Catalog{entries: make(map[Genre]Entry, len(doc.Genres))}
	for _, e := range doc.Genres {
		if !e.Genre.Valid() {
			return nil, fmt.Errorf("genre catalog: unknown genre %q", e.Genre)
		}
		if _, dup := c.entries[e.Genre]; dup {
			return nil, fmt.Errorf("genre catalog: duplicate genre %q", e.Genre)
		}
		c.entries[e.Genre] = e
	}
	for _, g := range ordered {
		if _, ok := c.entries[g]; !ok {
			return nil, fmt.Errorf("genre catalog: missing genre %q", g)
		}
	}
	return c, nil
}

func mustLoad(data []byte) *Catalog {
	c, err := Load(data)
	if err != nil {
		panic(err)
	}
	return c
}

func Default() *Catalog {
	return defaultCatalog
}

// Lookup returns a copy of the entry for g; unknown genres get the "other" entry.
func (c *Catalog) Lookup(g Genre) Entry {
	e, ok := c.entries[g]
	if !ok {
		e = c.entries[Other]
	}
	return e.clone()
}

func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(ordered))
	for _, g := range ordered {
		out = append(out, c.entries[g].clone())
	}
	return out
}

func Lookup(g Genre) Entry {
	return defaultCatalog.Lookup(g)
}

func Fields(g Genre) []FieldDef {
	return Lookup(g).Fields
}

func Presets(g Genre) []Preset {
	return Lookup(g).Presets
}
