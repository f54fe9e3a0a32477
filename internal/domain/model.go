package domain

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
)

// Conventional defaults applied when a model does not declare its own configuration.
const (
	// DefaultPrimaryKey is the attribute used for lookups when a model declares none.
	DefaultPrimaryKey = "id"

	// DefaultLimit is the page size used when a model declares none.
	DefaultLimit = 15

	// DefaultRuleSet is the rule set used when the requested set is missing or empty.
	DefaultRuleSet = "default"

	// CreatedAtColumn and UpdatedAtColumn are stamped by repositories when present.
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
)

// Attributes is the column/value set of a model.
type Attributes map[string]any

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the attribute exists, regardless of its value.
func (a Attributes) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Only returns a copy holding just the named attributes that are present.
func (a Attributes) Only(names ...string) Attributes {
	out := make(Attributes, len(names))
	for _, name := range names {
		if v, ok := a[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Clone returns a shallow copy of the attributes.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Model is a persisted record handled by the generic manager, repository
// and transformer.
//
// Attributes must return every column of the model, zero values included,
// so that the set of keys doubles as the model's column list.
type Model interface {
	Attributes() Attributes
	Fill(attrs Attributes) error
}

// RuleSets maps a rule set name (e.g. "store", "update", "default") to
// field validation rules expressed as validator tags.
type RuleSets map[string]map[string]string

// ModelConfig holds the conventions a model may declare. Zero values mean
// "not declared" and are replaced by defaults when resolved by the manager.
type ModelConfig struct {
	// Table is the SQL table name. Defaults to the model key.
	Table string

	// Key is the resource type name used in documents.
	Key string

	// PrimaryKey is the attribute used by show, update and delete.
	// It must be one of the model's attributes.
	PrimaryKey string

	// Limit is the default page size.
	Limit int

	// Rules holds the validation rule sets.
	Rules RuleSets

	// Repository and Transformer name implementations registered in the
	// manager registry.
	Repository  string
	Transformer string

	// Fillable lists the attributes that may be mass-assigned from inputs.
	// When empty every attribute except the primary key, "id" and the
	// timestamps is fillable.
	Fillable []string
}

// Configurable is implemented by models that declare conventions.
type Configurable interface {
	ModelConfig() ModelConfig
}

// Initializer is implemented by models that need to set generated values
// (identifiers, defaults) before they are first stored.
type Initializer interface {
	BeforeStore(now time.Time) error
}

// Saver is implemented by models that transform attributes before every
// write, e.g. hashing a password. filled holds the inputs assigned by this
// write, so values loaded from storage are never mistaken for new ones.
type Saver interface {
	BeforeSave(filled Attributes) error
}

// ConfigOf returns the declared configuration of m, or the zero config.
func ConfigOf(m Model) ModelConfig {
	if c, ok := m.(Configurable); ok {
		return c.ModelConfig()
	}
	return ModelConfig{}
}

// FillableAttributes filters inputs down to the attributes m accepts for
// mass assignment. Unknown attributes are dropped silently.
func FillableAttributes(m Model, primaryKey string, inputs Attributes) Attributes {
	columns := m.Attributes()
	cfg := ConfigOf(m)

	if len(cfg.Fillable) > 0 {
		out := make(Attributes, len(cfg.Fillable))
		for _, name := range cfg.Fillable {
			if v, ok := inputs[name]; ok && columns.Has(name) {
				out[name] = v
			}
		}
		return out
	}

	guarded := map[string]bool{
		DefaultPrimaryKey: true,
		primaryKey:        true,
		CreatedAtColumn:   true,
		UpdatedAtColumn:   true,
	}

	out := make(Attributes, len(inputs))
	for name, v := range inputs {
		if guarded[name] || !columns.Has(name) {
			continue
		}
		out[name] = v
	}
	return out
}

// KeyOf returns the declared key of m, or the pluralised lower-cased name
// of its Go type ("User" becomes "users").
func KeyOf(m Model) string {
	if key := ConfigOf(m).Key; key != "" {
		return key
	}
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return inflection.Plural(strings.ToLower(t.Name()))
}

// TableOf returns the declared table of m, falling back to its key.
func TableOf(m Model) string {
	if table := ConfigOf(m).Table; table != "" {
		return table
	}
	return KeyOf(m)
}

// New returns a fresh zero instance of the same concrete type as m.
func New(m Model) Model {
	t := reflect.TypeOf(m)
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(Model)
	}
	return reflect.New(t).Elem().Interface().(Model)
}
