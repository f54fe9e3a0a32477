package transformer

import (
	"net/url"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/store"
)

// Resource is one of Item, Collection or Null.
type Resource interface {
	isResource()
}

// Item is a single model.
type Item struct {
	Model       domain.Model
	Transformer Transformer
	Key         string
	PrimaryKey  string
}

// Collection is a list of models of one type, optionally one page of a
// larger result.
type Collection struct {
	Models      []domain.Model
	Transformer Transformer
	Key         string
	PrimaryKey  string
	Paginator   *Paginator
}

// Null is an empty to-one relationship or an empty document.
type Null struct{}

func (Item) isResource()       {}
func (Collection) isResource() {}
func (Null) isResource()       {}

// Paginator describes the page a Collection holds and where its siblings live.
type Paginator struct {
	Page *store.Page
	// URL is the request URL; links replace its "page" query parameter.
	URL *url.URL
}

// NewItem wraps m with the transformer and key of binding.
func NewItem(m domain.Model, b *Binding) Item {
	return Item{Model: m, Transformer: b.Transformer, Key: b.Key, PrimaryKey: b.PrimaryKey}
}

// NewCollection wraps models with the transformer and key of binding.
func NewCollection(models []domain.Model, b *Binding) Collection {
	return Collection{Models: models, Transformer: b.Transformer, Key: b.Key, PrimaryKey: b.PrimaryKey}
}
