// Package registry maps logical entity names onto their collection, schema and
// routing metadata. All generic CRUD and listing code resolves through it.
package registry

import (
	"sort"
	"strings"

	"ai-dms-be/internal/schema"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OwnerById      = "_id"
	OwnerByCreator = "created_by"
)

type Descriptor struct {
	Name       string        `json:"name"`
	Plural     string        `json:"plural"`
	Title      string        `json:"title"`
	Collection string        `json:"collection"`
	Schema     schema.Schema `json:"schema"`

	// OwnerField names the document key holding the owning user id.
	OwnerField string `json:"-"`

	CounterField string `json:"counter_field,omitempty"`
	CounterName  string `json:"-"`

	// GroupField is the sort key for the "grouped" list mode.
	GroupField string `json:"-"`

	// Dynamic types keep undeclared form keys in an "extra" side-table.
	Dynamic bool `json:"dynamic,omitempty"`

	New func() interface{} `json:"-"`

	DocumentURL   string `json:"document_url"`
	CollectionURL string `json:"collection_url"`
	Menu          string `json:"menu"`
}

// OwnerOf reads the owner id out of a stored document.
func (d *Descriptor) OwnerOf(doc bson.M) string {
	v := doc[d.OwnerField]
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return ""
}

type Registry struct {
	byAlias  map[string]*Descriptor
	ordered  []*Descriptor
	fallback string
}

func New(fallback string, descriptors ...*Descriptor) *Registry {
	r := &Registry{byAlias: map[string]*Descriptor{}, fallback: fallback}
	for _, d := range descriptors {
		r.Register(d)
	}
	return r
}

func (r *Registry) Register(d *Descriptor) {
	if d.OwnerField == "" {
		d.OwnerField = OwnerByCreator
	}
	if d.CollectionURL == "" {
		d.CollectionURL = "/api/documents/" + d.Plural
	}
	if d.DocumentURL == "" {
		d.DocumentURL = "/api/documents/" + d.Plural + "/:id"
	}
	if d.Menu == "" {
		d.Menu = d.Plural
	}
	r.byAlias[strings.ToLower(d.Name)] = d
	r.byAlias[strings.ToLower(d.Plural)] = d
	r.ordered = append(r.ordered, d)
}

// Resolve accepts singular or plural names, case-insensitively.
func (r *Registry) Resolve(name string) (*Descriptor, bool) {
	d, ok := r.byAlias[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// MustResolve panics on unknown names. Only for wiring code that names built-in types.
func (r *Registry) MustResolve(name string) *Descriptor {
	d, ok := r.Resolve(name)
	if !ok {
		panic("registry: unknown entity " + name)
	}
	return d
}

// FallbackURL is where callers send clients after an unknown entity name.
func (r *Registry) FallbackURL() string {
	if d, ok := r.Resolve(r.fallback); ok {
		return d.CollectionURL
	}
	return "/"
}

func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.ordered))
	copy(out, r.ordered)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
