package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/jinzhu/inflection"
	"github.com/phrazzld/modelapi/internal/api/shared"
	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/manager"
	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/spf13/cast"
)

// APIVersion is reported in the generated document.
const APIVersion = "1.0.0"

const bearerScheme = "bearerAuth"

// BuildOpenAPI describes the routes mounted for every registered model
// under basePath. Response attributes are derived from each model's
// transformer; request bodies from its fillable attributes and store rules.
func BuildOpenAPI(ctx context.Context, factory *manager.Factory, basePath string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Model API",
			Version: APIVersion,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Error": openapi3.NewSchemaRef("", errorSchema()),
			},
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}

	base := strings.TrimRight(basePath, "/")
	for _, proto := range factory.Registry().Models() {
		mgr := factory.New(proto)
		if err := describeModel(doc, mgr, base); err != nil {
			return nil, err
		}
	}

	doc.Paths.Set(base+"/auth/token", &openapi3.PathItem{Post: tokenOperation(doc)})

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("generated openapi document is invalid: %w", err)
	}
	return doc, nil
}

// OpenAPIHandler serves the document built for factory as JSON.
func OpenAPIHandler(factory *manager.Factory, basePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := BuildOpenAPI(r.Context(), factory, basePath)
		if err != nil {
			logger.FromContext(r.Context()).Error("failed to build openapi document")
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, msgInternalError, err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, doc)
	}
}

func describeModel(doc *openapi3.T, mgr *manager.Manager, base string) error {
	key := mgr.ModelKey()
	pk, err := mgr.ModelPrimaryKey()
	if err != nil {
		return err
	}
	t, err := mgr.Transformer()
	if err != nil {
		return err
	}

	proto := domain.New(mgr.Model())
	exposed, err := t.Transform(proto)
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", key, err)
	}
	delete(exposed, pk)

	resource := openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema().WithEnum(key)).
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("attributes", attributesSchema(exposed, nil, nil))
	resource.Required = []string{"type", "id", "attributes"}

	rules := storeRules(mgr.Model())
	fillable := domain.FillableAttributes(proto, pk, proto.Attributes())
	input := attributesSchema(fillable, rules, requiredFields(rules))

	resourceName := schemaName(key)
	inputName := resourceName + "Input"
	doc.Components.Schemas[resourceName] = openapi3.NewSchemaRef("", resource)
	doc.Components.Schemas[inputName] = openapi3.NewSchemaRef("", input)

	single := openapi3.NewObjectSchema().
		WithPropertyRef("data", componentRef(doc, resourceName)).
		WithProperty("included", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()))
	items := openapi3.NewArraySchema()
	items.Items = componentRef(doc, resourceName)
	list := openapi3.NewObjectSchema().
		WithProperty("data", items).
		WithProperty("meta", openapi3.NewObjectSchema()).
		WithProperty("links", openapi3.NewObjectSchema()).
		WithProperty("included", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()))

	scopeParams := openapi3.Parameters{
		queryParam(ParamIncludes, "Comma separated includes to add"),
		queryParam(ParamExcludes, "Comma separated includes to remove"),
	}
	idParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").
		WithDescription("Value of the "+pk+" attribute").
		WithSchema(openapi3.NewStringSchema())}

	body := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.NewContentWithSchemaRef(componentRef(doc, inputName),
			[]string{shared.JSONContentType, manager.ContentType}))}

	index := operation(doc, key, "list", "List "+key, withResponse(http.StatusOK, "A page of "+key, list))
	index.Parameters = append(openapi3.Parameters{
		queryParam(ParamLimit, "Page size"),
		queryParam(ParamPage, "Page number, starting at 1"),
	}, scopeParams...)

	store := operation(doc, key, "create", "Create a "+inflectSingular(key), withResponse(http.StatusCreated, "The created item", single))
	store.RequestBody = body
	store.Parameters = scopeParams
	protect(store)

	collection := &openapi3.PathItem{Get: index, Post: store}
	doc.Paths.Set(base+"/"+key, collection)

	show := operation(doc, key, "show", "Show one item", withResponse(http.StatusOK, "The item", single))
	show.Parameters = append(openapi3.Parameters{idParam}, scopeParams...)

	update := operation(doc, key, "update", "Update one item", withResponse(http.StatusOK, "The updated item", single))
	update.Parameters = append(openapi3.Parameters{idParam}, scopeParams...)
	update.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.NewContentWithSchema(
			attributesSchema(fillable, updateRules(mgr.Model()), nil),
			[]string{shared.JSONContentType, manager.ContentType}))}
	protect(update)

	patch := *update
	patch.OperationID = key + "_patch"

	destroy := operation(doc, key, "delete", "Delete one item", withResponse(http.StatusOK, "The deleted item", single))
	destroy.Parameters = append(openapi3.Parameters{idParam}, scopeParams...)
	protect(destroy)

	doc.Paths.Set(base+"/"+key+"/{id}", &openapi3.PathItem{
		Get:    show,
		Put:    update,
		Patch:  &patch,
		Delete: destroy,
	})
	return nil
}

func tokenOperation(doc *openapi3.T) *openapi3.Operation {
	body := openapi3.NewObjectSchema().
		WithProperty("email", openapi3.NewStringSchema().WithFormat("email")).
		WithProperty("password", openapi3.NewStringSchema().WithFormat("password"))
	body.Required = []string{"email", "password"}

	token := openapi3.NewObjectSchema().
		WithProperty("access_token", openapi3.NewStringSchema()).
		WithProperty("token_type", openapi3.NewStringSchema()).
		WithProperty("subject", openapi3.NewStringSchema()).
		WithProperty("expires_at", openapi3.NewDateTimeSchema())

	op := operation(doc, "auth", "token", "Exchange credentials for an access token",
		withResponse(http.StatusOK, "An access token", token))
	op.Responses.Set("401", &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription("Invalid credentials")})
	op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchema(body)}
	return op
}

func operation(doc *openapi3.T, tag, action, summary string, responses *openapi3.Responses) *openapi3.Operation {
	errorResponse := &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription("Error document").
		WithContent(openapi3.NewContentWithSchemaRef(componentRef(doc, "Error"), []string{manager.ContentType}))}
	responses.Set("default", errorResponse)

	return &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     summary,
		OperationID: tag + "_" + action,
		Responses:   responses,
	}
}

func withResponse(status int, description string, schema *openapi3.Schema) *openapi3.Responses {
	return openapi3.NewResponses(openapi3.WithStatus(status, &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithContent(openapi3.NewContentWithSchema(schema, []string{manager.ContentType})),
	}))
}

func protect(op *openapi3.Operation) {
	reqs := openapi3.NewSecurityRequirements().
		With(openapi3.NewSecurityRequirement().Authenticate(bearerScheme))
	op.Security = reqs
	op.Responses.Set("401", &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription("Missing or invalid bearer token")})
}

func queryParam(name, description string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: openapi3.NewQueryParameter(name).
		WithDescription(description).
		WithSchema(openapi3.NewStringSchema())}
}

// componentRef references a registered component schema. The value is
// carried along so the document validates without a loader pass.
func componentRef(doc *openapi3.T, name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, doc.Components.Schemas[name].Value)
}

// attributesSchema types every attribute by its Go value. rules refine
// string formats and enums.
func attributesSchema(attrs domain.Attributes, rules map[string]string, required []string) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, name := range attrs.Keys() {
		prop := valueSchema(attrs[name])
		refineWithRule(prop, rules[name])
		schema.WithProperty(name, prop)
	}
	for _, name := range required {
		if attrs.Has(name) {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

func valueSchema(v any) *openapi3.Schema {
	switch v.(type) {
	case bool:
		return openapi3.NewBoolSchema()
	case int, int32, int64, uint, uint32, uint64:
		return openapi3.NewInt64Schema()
	case float32, float64:
		return openapi3.NewFloat64Schema()
	case time.Time, *time.Time:
		return openapi3.NewDateTimeSchema()
	case string, []byte:
		return openapi3.NewStringSchema()
	default:
		return &openapi3.Schema{}
	}
}

// refineWithRule maps validator tags onto schema keywords where they
// have a direct equivalent.
func refineWithRule(schema *openapi3.Schema, rule string) {
	for _, tag := range strings.Split(rule, ",") {
		name, param, _ := strings.Cut(tag, "=")
		switch name {
		case "email":
			schema.WithFormat("email")
		case "uuid":
			schema.WithFormat("uuid")
		case "oneof":
			values := strings.Fields(param)
			enum := make([]any, len(values))
			for i, v := range values {
				enum[i] = v
			}
			schema.Enum = enum
		}
	}
	if !schema.Type.Is(openapi3.TypeString) {
		return
	}
	for _, tag := range strings.Split(rule, ",") {
		if n, ok := strings.CutPrefix(tag, "min="); ok {
			if minLen, err := cast.ToInt64E(n); err == nil && minLen >= 0 {
				schema.WithMinLength(minLen)
			}
		}
	}
}

func storeRules(m domain.Model) map[string]string {
	return ruleSetOrDefault(m, RuleSetStore)
}

func updateRules(m domain.Model) map[string]string {
	return ruleSetOrDefault(m, RuleSetUpdate)
}

func ruleSetOrDefault(m domain.Model, set string) map[string]string {
	rules := domain.ConfigOf(m).Rules
	if r := rules[set]; len(r) > 0 {
		return r
	}
	return rules[domain.DefaultRuleSet]
}

func requiredFields(rules map[string]string) []string {
	var out []string
	for field, rule := range rules {
		if slices.Contains(strings.Split(rule, ","), "required") {
			out = append(out, field)
		}
	}
	slices.Sort(out)
	return out
}

func schemaName(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

func inflectSingular(key string) string {
	return inflection.Singular(key)
}

// MarshalOpenAPI builds the document and encodes it as indented JSON.
func MarshalOpenAPI(ctx context.Context, factory *manager.Factory, basePath string) ([]byte, error) {
	doc, err := BuildOpenAPI(ctx, factory, basePath)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

func errorSchema() *openapi3.Schema {
	item := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("details", openapi3.NewStringSchema()).
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("meta", openapi3.NewObjectSchema())
	item.Required = []string{"code", "title", "details"}
	return openapi3.NewObjectSchema().
		WithProperty("errors", openapi3.NewArraySchema().WithItems(item))
}
