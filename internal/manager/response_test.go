package manager_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/manager"
	"github.com/phrazzld/modelapi/internal/store"
	"github.com/phrazzld/modelapi/internal/transformer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode round-trips a response body through JSON for assertions on the wire shape.
func decode(t *testing.T, body any) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func seedUserWithMemos(t *testing.T, f *manager.Factory) *domain.User {
	t.Helper()
	ctx := context.Background()
	stored, err := f.New(&domain.User{}).Store(ctx, userInputs(1))
	require.NoError(t, err)
	user := stored.(*domain.User)
	for _, text := range []string{"first", "second"} {
		_, err := f.New(&domain.Memo{}).Store(ctx, domain.Attributes{"user_id": user.ID, "text": text})
		require.NoError(t, err)
	}
	return user
}

func TestResponseItem(t *testing.T) {
	f, _ := newFactory(t)
	user := seedUserWithMemos(t, f)
	rm := manager.NewResponseManager(f.New(&domain.User{}))

	resp, err := rm.Item(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	body := decode(t, resp.Body)
	data := body["data"].(map[string]any)
	assert.Equal(t, "users", data["type"])
	assert.Equal(t, "1", data["id"])
	attrs := data["attributes"].(map[string]any)
	assert.Equal(t, user.Email, attrs["email"])
	assert.NotContains(t, attrs, "password")
	assert.NotContains(t, body, "included")
}

func TestResponseItemWithIncludes(t *testing.T) {
	f, _ := newFactory(t)
	user := seedUserWithMemos(t, f)
	rm := manager.NewResponseManager(f.New(&domain.User{}))
	rm.ParseIncludes("memos")

	resp, err := rm.Item(context.Background(), user)
	require.NoError(t, err)

	doc := resp.Body.(*transformer.Document)
	require.Len(t, doc.Included, 2)
	for _, obj := range doc.Included {
		assert.Equal(t, "memos", obj.Type)
	}

	rm = manager.NewResponseManager(f.New(&domain.User{}))
	rm.ParseIncludes("memos")
	rm.ParseExcludes("memos")
	resp, err = rm.Item(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, resp.Body.(*transformer.Document).Included)
}

func TestResponseNullItem(t *testing.T) {
	f, _ := newFactory(t)
	rm := manager.NewResponseManager(f.New(&domain.User{}))

	resp, err := rm.Item(context.Background(), nil)
	require.NoError(t, err)
	body := decode(t, resp.Body)
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])
}

func TestResponseCollectionAndPaginate(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()
	seedUserWithMemos(t, f)
	mgr := f.New(&domain.Memo{})
	rm := manager.NewResponseManager(mgr)

	all, err := mgr.All(ctx)
	require.NoError(t, err)
	resp, err := rm.Collection(ctx, all)
	require.NoError(t, err)
	body := decode(t, resp.Body)
	assert.Len(t, body["data"], 2)
	assert.NotContains(t, body, "meta")

	one := 1
	page, err := mgr.Paginate(ctx, &one, 1)
	require.NoError(t, err)
	u, err := url.Parse("/api/memos?limit=1")
	require.NoError(t, err)

	resp, err = rm.Paginate(ctx, page, u)
	require.NoError(t, err)
	body = decode(t, resp.Body)
	pagination := body["meta"].(map[string]any)["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, float64(1), pagination["count"])
	assert.Equal(t, float64(2), pagination["total_pages"])
	links := body["links"].(map[string]any)
	assert.Equal(t, "/api/memos?limit=1&page=2", links["next"])
}

func TestResponseCurrent(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()
	mgr := f.New(&domain.User{})
	rm := manager.NewResponseManager(mgr)
	u, err := url.Parse("/api/users")
	require.NoError(t, err)

	stored, err := mgr.Store(ctx, userInputs(1))
	require.NoError(t, err)
	resp, err := rm.Current(ctx, u)
	require.NoError(t, err)
	data := decode(t, resp.Body)["data"].(map[string]any)
	assert.Equal(t, "users", data["type"])

	_, err = mgr.All(ctx)
	require.NoError(t, err)
	resp, err = rm.Current(ctx, u)
	require.NoError(t, err)
	assert.Len(t, decode(t, resp.Body)["data"], 1)

	require.NoError(t, mgr.SetCurrent(&store.Page{Items: []domain.Model{stored}, Total: 1, PerPage: 15, CurrentPage: 1}))
	resp, err = rm.Current(ctx, u)
	require.NoError(t, err)
	assert.Contains(t, decode(t, resp.Body), "meta")

	require.NoError(t, mgr.SetCurrent(nil))
	resp, err = rm.Current(ctx, u)
	require.NoError(t, err)
	assert.Nil(t, decode(t, resp.Body)["data"])
}

func TestResponseSetModelManager(t *testing.T) {
	f, _ := newFactory(t)
	user := seedUserWithMemos(t, f)
	memos, err := f.New(&domain.Memo{}).GetByAttribute(context.Background(), "user_id", user.ID)
	require.NoError(t, err)

	rm := manager.NewResponseManager(f.New(&domain.User{}))
	rm.SetModelManager(f.New(&domain.Memo{}))
	assert.Equal(t, "memos", rm.ModelManager().ModelKey())

	resp, err := rm.Item(context.Background(), memos[0])
	require.NoError(t, err)
	data := decode(t, resp.Body)["data"].(map[string]any)
	assert.Equal(t, "memos", data["type"])
	assert.Equal(t, memos[0].(*domain.Memo).UUID, data["id"])
}

func TestResponseConfigError(t *testing.T) {
	f, _ := newFactory(t)
	rm := manager.NewResponseManager(f.New(&widget{cfg: domain.ModelConfig{Transformer: "missing"}}))

	_, err := rm.Item(context.Background(), &widget{})
	requireConfigError(t, err)
}

func TestResponseErrorsAndRespond(t *testing.T) {
	f, _ := newFactory(t)
	rm := manager.NewResponseManager(f.New(&domain.User{}))

	notFound := store.NewItemNotFoundByIDError(7, nil)
	resp := rm.Errors([]*domain.StructuredError{notFound}, 0)
	assert.Equal(t, http.StatusBadRequest, resp.Status, "zero status defaults to 400")

	resp = rm.Errors([]*domain.StructuredError{notFound}, notFound.HTTPStatus())
	req := httptest.NewRequest(http.MethodGet, "/api/users/7", nil)
	w := httptest.NewRecorder()
	rm.Respond(w, req, resp)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, manager.ContentType, w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "data")
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	obj := errs[0].(map[string]any)
	assert.Equal(t, "10002", obj["code"])
	assert.Equal(t, "404", obj["status"])
	assert.Equal(t, "Item with id 7 does not exist.", obj["details"])
}
