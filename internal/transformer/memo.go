package transformer

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/store"
)

// MemoTransformer can include the memo's author.
type MemoTransformer struct {
	Base
}

// NewMemoTransformer creates a MemoTransformer resolving related models through r.
func NewMemoTransformer(r Resolver) *MemoTransformer {
	return &MemoTransformer{Base: Base{Resolver: r}}
}

// AvailableIncludes implements Transformer.AvailableIncludes
func (t *MemoTransformer) AvailableIncludes() []string {
	return []string{"user"}
}

// Include implements Transformer.Include
// A memo whose author no longer exists includes a null user.
func (t *MemoTransformer) Include(ctx context.Context, name string, m domain.Model) (Resource, error) {
	memo, ok := m.(*domain.Memo)
	if !ok {
		return nil, fmt.Errorf("memo transformer cannot include %s on %T", name, m)
	}

	switch name {
	case "user":
		binding, err := t.Related(&domain.User{})
		if err != nil {
			return nil, err
		}
		user, err := binding.Repository.GetOneByID(ctx, memo.UserID)
		if errors.Is(err, store.ErrItemNotFound) {
			return Null{}, nil
		}
		if err != nil {
			return nil, err
		}
		return t.IncludeItem(user)
	default:
		return t.Base.Include(ctx, name, m)
	}
}
