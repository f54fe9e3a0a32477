package transformer

import (
	"context"
	"fmt"

	"github.com/phrazzld/modelapi/internal/domain"
)

// UserTransformer hides credentials and can include the user's memos.
type UserTransformer struct {
	Base
}

// NewUserTransformer creates a UserTransformer resolving related models through r.
func NewUserTransformer(r Resolver) *UserTransformer {
	return &UserTransformer{Base: Base{Resolver: r}}
}

// Transform implements Transformer.Transform
func (t *UserTransformer) Transform(m domain.Model) (domain.Attributes, error) {
	attrs, err := t.Base.Transform(m)
	if err != nil {
		return nil, err
	}
	delete(attrs, "password")
	return attrs, nil
}

// AvailableIncludes implements Transformer.AvailableIncludes
func (t *UserTransformer) AvailableIncludes() []string {
	return []string{"memos"}
}

// Include implements Transformer.Include
func (t *UserTransformer) Include(ctx context.Context, name string, m domain.Model) (Resource, error) {
	user, ok := m.(*domain.User)
	if !ok {
		return nil, fmt.Errorf("user transformer cannot include %s on %T", name, m)
	}

	switch name {
	case "memos":
		proto := &domain.Memo{}
		binding, err := t.Related(proto)
		if err != nil {
			return nil, err
		}
		memos, err := binding.Repository.GetByAttribute(ctx, "user_id", user.ID)
		if err != nil {
			return nil, err
		}
		return t.IncludeCollection(proto, memos)
	default:
		return t.Base.Include(ctx, name, m)
	}
}
