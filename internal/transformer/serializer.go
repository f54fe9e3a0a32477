package transformer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/phrazzld/modelapi/internal/domain"
)

// Document is a JSON:API top-level document.
type Document struct {
	Data     any               `json:"data"`
	Included []*ResourceObject `json:"included,omitempty"`
	Meta     map[string]any    `json:"meta,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
}

// ResourceObject is one serialized model.
type ResourceObject struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    domain.Attributes       `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Identifier references a resource object.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relationship holds a to-one (Identifier or nil) or to-many
// ([]Identifier) linkage.
type Relationship struct {
	Data any `json:"data"`
}

// Serializer builds documents for one scope.
type Serializer struct {
	scope *Scope

	included []*ResourceObject
	seen     map[string]bool
	primary  map[string]bool
}

// NewSerializer returns a serializer for scope. A nil scope means no
// includes beyond the defaults.
func NewSerializer(scope *Scope) *Serializer {
	if scope == nil {
		scope = NewScope()
	}
	return &Serializer{scope: scope}
}

// Serialize builds the document for res.
func (s *Serializer) Serialize(ctx context.Context, res Resource) (*Document, error) {
	s.included = nil
	s.seen = map[string]bool{}
	s.primary = map[string]bool{}

	doc := &Document{}

	switch r := res.(type) {
	case Item:
		obj, err := s.object(ctx, r.Model, r.Transformer, r.Key, r.PrimaryKey, "", 0)
		if err != nil {
			return nil, err
		}
		s.primary[identity(obj.Type, obj.ID)] = true
		doc.Data = obj

	case Collection:
		objs := make([]*ResourceObject, 0, len(r.Models))
		for _, m := range r.Models {
			obj, err := s.object(ctx, m, r.Transformer, r.Key, r.PrimaryKey, "", 0)
			if err != nil {
				return nil, err
			}
			s.primary[identity(obj.Type, obj.ID)] = true
			objs = append(objs, obj)
		}
		doc.Data = objs
		if r.Paginator != nil && r.Paginator.Page != nil {
			doc.Meta = map[string]any{"pagination": paginationMeta(r.Paginator, len(r.Models))}
			doc.Links = paginationLinks(r.Paginator)
		}

	case Null, nil:
		doc.Data = nil

	default:
		return nil, fmt.Errorf("unsupported resource %T", res)
	}

	for _, obj := range s.included {
		if !s.primary[identity(obj.Type, obj.ID)] {
			doc.Included = append(doc.Included, obj)
		}
	}
	return doc, nil
}

// object serializes m and, recursively, the includes in scope below path.
func (s *Serializer) object(
	ctx context.Context,
	m domain.Model,
	t Transformer,
	key, primaryKey, path string,
	depth int,
) (*ResourceObject, error) {
	if t == nil {
		t = Base{}
	}
	if primaryKey == "" {
		primaryKey = domain.DefaultPrimaryKey
	}

	attrs, err := t.Transform(m)
	if err != nil {
		return nil, fmt.Errorf("failed to transform %s: %w", key, err)
	}

	obj := &ResourceObject{
		Type:       key,
		ID:         formatID(m.Attributes()[primaryKey]),
		Attributes: attrs,
	}
	delete(obj.Attributes, primaryKey)

	if depth >= MaxIncludeDepth {
		return obj, nil
	}

	for _, name := range s.scope.includesFor(path, t) {
		res, err := t.Include(ctx, name, m)
		if err != nil {
			return nil, fmt.Errorf("failed to include %s on %s: %w", name, key, err)
		}

		rel, err := s.relationship(ctx, res, join(path, name), depth+1)
		if err != nil {
			return nil, err
		}
		if obj.Relationships == nil {
			obj.Relationships = map[string]Relationship{}
		}
		obj.Relationships[name] = rel
	}
	return obj, nil
}

func (s *Serializer) relationship(ctx context.Context, res Resource, path string, depth int) (Relationship, error) {
	switch r := res.(type) {
	case Item:
		obj, err := s.object(ctx, r.Model, r.Transformer, r.Key, r.PrimaryKey, path, depth)
		if err != nil {
			return Relationship{}, err
		}
		s.include(obj)
		return Relationship{Data: Identifier{Type: obj.Type, ID: obj.ID}}, nil

	case Collection:
		ids := make([]Identifier, 0, len(r.Models))
		for _, m := range r.Models {
			obj, err := s.object(ctx, m, r.Transformer, r.Key, r.PrimaryKey, path, depth)
			if err != nil {
				return Relationship{}, err
			}
			s.include(obj)
			ids = append(ids, Identifier{Type: obj.Type, ID: obj.ID})
		}
		return Relationship{Data: ids}, nil

	case Null, nil:
		return Relationship{Data: nil}, nil

	default:
		return Relationship{}, fmt.Errorf("unsupported resource %T", res)
	}
}

// include records obj once per (type, id). A later copy carrying
// relationships the first lacked is merged in.
func (s *Serializer) include(obj *ResourceObject) {
	id := identity(obj.Type, obj.ID)
	if !s.seen[id] {
		s.seen[id] = true
		s.included = append(s.included, obj)
		return
	}
	for _, existing := range s.included {
		if identity(existing.Type, existing.ID) != id {
			continue
		}
		for name, rel := range obj.Relationships {
			if existing.Relationships == nil {
				existing.Relationships = map[string]Relationship{}
			}
			if _, ok := existing.Relationships[name]; !ok {
				existing.Relationships[name] = rel
			}
		}
		return
	}
}

func identity(typ, id string) string {
	return typ + ":" + id
}

func formatID(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func paginationMeta(p *Paginator, count int) map[string]any {
	return map[string]any{
		"total":        p.Page.Total,
		"count":        count,
		"per_page":     p.Page.PerPage,
		"current_page": p.Page.CurrentPage,
		"total_pages":  p.Page.LastPage(),
	}
}

func paginationLinks(p *Paginator) map[string]string {
	current := p.Page.CurrentPage
	last := p.Page.LastPage()

	links := map[string]string{
		"self":  pageURL(p.URL, current),
		"first": pageURL(p.URL, 1),
		"last":  pageURL(p.URL, last),
	}
	if current > 1 {
		links["prev"] = pageURL(p.URL, current-1)
	}
	if current < last {
		links["next"] = pageURL(p.URL, current+1)
	}
	return links
}

func pageURL(base *url.URL, page int) string {
	if base == nil {
		return "?page=" + strconv.Itoa(page)
	}
	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
