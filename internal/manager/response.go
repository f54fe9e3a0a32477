package manager

import (
	"context"
	"net/http"
	"net/url"

	"github.com/phrazzld/modelapi/internal/api/shared"
	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/store"
	"github.com/phrazzld/modelapi/internal/transformer"
)

// ContentType is the media type of every JSON:API response.
const ContentType = "application/vnd.api+json"

// Response is a status and the body to encode.
type Response struct {
	Status int
	Body   any
}

// ErrorsBody is the body of an error response. It has no data member.
type ErrorsBody struct {
	Errors []*domain.StructuredError `json:"errors"`
}

// ResponseManager renders manager results as JSON:API documents. The
// include and exclude scope it holds belongs to one request.
type ResponseManager struct {
	manager *Manager
	scope   *transformer.Scope
}

// NewResponseManager returns a response manager rendering with m.
func NewResponseManager(m *Manager) *ResponseManager {
	return &ResponseManager{manager: m, scope: transformer.NewScope()}
}

// SetModelManager replaces the manager whose model is rendered.
func (r *ResponseManager) SetModelManager(m *Manager) {
	r.manager = m
}

// ModelManager returns the manager whose model is rendered.
func (r *ResponseManager) ModelManager() *Manager {
	return r.manager
}

// ParseIncludes requests the comma separated includes in csv.
func (r *ResponseManager) ParseIncludes(csv string) {
	r.scope.ParseIncludes(csv)
}

// ParseExcludes removes the comma separated includes in csv, defaults included.
func (r *ResponseManager) ParseExcludes(csv string) {
	r.scope.ParseExcludes(csv)
}

// Item renders a single model. A nil model renders as null data.
func (r *ResponseManager) Item(ctx context.Context, m domain.Model) (*Response, error) {
	if m == nil {
		return r.render(ctx, transformer.Null{})
	}
	binding, err := r.manager.Binding()
	if err != nil {
		return nil, err
	}
	return r.render(ctx, transformer.NewItem(m, binding))
}

// Collection renders models as an array.
func (r *ResponseManager) Collection(ctx context.Context, models []domain.Model) (*Response, error) {
	binding, err := r.manager.Binding()
	if err != nil {
		return nil, err
	}
	return r.render(ctx, transformer.NewCollection(models, binding))
}

// Paginate renders page with pagination meta and links derived from
// requestURL.
func (r *ResponseManager) Paginate(ctx context.Context, page *store.Page, requestURL *url.URL) (*Response, error) {
	binding, err := r.manager.Binding()
	if err != nil {
		return nil, err
	}
	collection := transformer.NewCollection(page.Items, binding)
	collection.Paginator = &transformer.Paginator{Page: page, URL: requestURL}
	return r.render(ctx, collection)
}

// Current renders the manager's current result with the method matching
// its type.
func (r *ResponseManager) Current(ctx context.Context, requestURL *url.URL) (*Response, error) {
	switch current := r.manager.Current().(type) {
	case nil:
		return r.Item(ctx, nil)
	case domain.Model:
		return r.Item(ctx, current)
	case []domain.Model:
		return r.Collection(ctx, current)
	case *store.Page:
		return r.Paginate(ctx, current, requestURL)
	default:
		return nil, configError(r.manager.ModelKey(), "cannot render a current result of type %T", current)
	}
}

// Errors wraps errs as an error document. A status of zero means 400.
func (r *ResponseManager) Errors(errs []*domain.StructuredError, status int) *Response {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return &Response{Status: status, Body: ErrorsBody{Errors: errs}}
}

// Respond writes resp as a JSON:API response.
func (r *ResponseManager) Respond(w http.ResponseWriter, req *http.Request, resp *Response) {
	shared.RespondWithContentType(w, req, resp.Status, ContentType, resp.Body)
}

func (r *ResponseManager) render(ctx context.Context, res transformer.Resource) (*Response, error) {
	doc, err := transformer.NewSerializer(r.scope).Serialize(ctx, res)
	if err != nil {
		return nil, err
	}
	return &Response{Status: http.StatusOK, Body: doc}, nil
}
