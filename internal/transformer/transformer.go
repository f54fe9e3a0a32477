package transformer

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/store"
)

// ErrUnknownInclude is returned by Include for names a transformer does not provide.
var ErrUnknownInclude = errors.New("unknown include")

// ErrNoResolver is returned when an include helper is used on a Base
// without a Resolver.
var ErrNoResolver = errors.New("transformer has no resolver")

// Transformer converts a model into its exposed attributes and resolves
// related resources by name.
type Transformer interface {
	// Transform returns the attributes exposed for m.
	Transform(m domain.Model) (domain.Attributes, error)

	// AvailableIncludes lists the includes a client may request.
	AvailableIncludes() []string

	// DefaultIncludes lists the includes added to every document.
	DefaultIncludes() []string

	// Include loads the related resource name of m.
	Include(ctx context.Context, name string, m domain.Model) (Resource, error)
}

// Binding is everything needed to serialize and load one model type.
type Binding struct {
	Key         string
	PrimaryKey  string
	Transformer Transformer
	Repository  store.ModelRepository
}

// Resolver looks up the binding configured for a model type.
type Resolver interface {
	Resolve(m domain.Model) (*Binding, error)
}

// Base exposes every attribute of a model and provides no includes.
// Transformers embed it and use its helpers to build includes.
type Base struct {
	Resolver Resolver
}

// Ensure Base implements Transformer interface
var _ Transformer = Base{}

// Transform implements Transformer.Transform
func (Base) Transform(m domain.Model) (domain.Attributes, error) {
	if m == nil {
		return nil, errors.New("cannot transform a nil model")
	}
	return m.Attributes().Clone(), nil
}

// AvailableIncludes implements Transformer.AvailableIncludes
func (Base) AvailableIncludes() []string { return nil }

// DefaultIncludes implements Transformer.DefaultIncludes
func (Base) DefaultIncludes() []string { return nil }

// Include implements Transformer.Include
func (Base) Include(_ context.Context, name string, _ domain.Model) (Resource, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnknownInclude, name)
}

// Related returns the binding of the model type proto belongs to.
func (b Base) Related(proto domain.Model) (*Binding, error) {
	if b.Resolver == nil {
		return nil, ErrNoResolver
	}
	return b.Resolver.Resolve(proto)
}

// IncludeItem wraps m as an Item using the transformer and key configured
// for its own type. A nil model yields Null.
func (b Base) IncludeItem(m domain.Model) (Resource, error) {
	if m == nil {
		return Null{}, nil
	}
	binding, err := b.Related(m)
	if err != nil {
		return nil, err
	}
	return NewItem(m, binding), nil
}

// IncludeCollection wraps models as a Collection using the transformer and
// key configured for the type of proto.
func (b Base) IncludeCollection(proto domain.Model, models []domain.Model) (Resource, error) {
	binding, err := b.Related(proto)
	if err != nil {
		return nil, err
	}
	return NewCollection(models, binding), nil
}
