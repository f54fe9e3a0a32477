package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/modelapi/internal/api/shared"
	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/manager"
	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/phrazzld/modelapi/internal/redact"
)

// Rule sets used by the write routes.
const (
	RuleSetStore  = "store"
	RuleSetUpdate = "update"
)

// ResourceHandler serves the CRUD routes of every model in the factory's
// registry.
type ResourceHandler struct {
	factory   *manager.Factory
	sanitizer *sanitizer
	logger    *slog.Logger
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(factory *manager.Factory, logger *slog.Logger) *ResourceHandler {
	if factory == nil {
		panic("factory cannot be nil") // ALLOW-PANIC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceHandler{
		factory:   factory,
		sanitizer: newSanitizer(),
		logger:    logger.With(slog.String("component", "resource_handler")),
	}
}

// Routes mounts /{key} routes for every registered model on r. When
// protect is not nil it wraps the write routes.
func (h *ResourceHandler) Routes(r chi.Router, protect func(http.Handler) http.Handler) {
	for _, m := range h.factory.Registry().Models() {
		key := domain.KeyOf(m)
		r.Route("/"+key, func(r chi.Router) {
			r.Get("/", h.index(key))
			r.Get("/{id}", h.show(key))

			r.Group(func(r chi.Router) {
				if protect != nil {
					r.Use(protect)
				}
				r.Post("/", h.store(key))
				r.Put("/{id}", h.update(key))
				r.Patch("/{id}", h.update(key))
				r.Delete("/{id}", h.destroy(key))
			})
		})
		h.logger.Debug("resource routes registered", slog.String("resource", key))
	}
}

// request is the per-request state shared by all routes.
type request struct {
	manager   *manager.Manager
	responses *manager.ResponseManager
	log       *slog.Logger
}

func (h *ResourceHandler) begin(w http.ResponseWriter, r *http.Request, key string) (*request, bool) {
	mgr, err := h.factory.ForKey(key)
	if err != nil {
		RespondWithModelError(w, r, err)
		return nil, false
	}

	rm := manager.NewResponseManager(mgr)
	q := r.URL.Query()
	rm.ParseIncludes(q.Get(ParamIncludes))
	rm.ParseExcludes(q.Get(ParamExcludes))

	return &request{
		manager:   mgr,
		responses: rm,
		log:       logger.FromContextOrDefault(r.Context(), h.logger).With(slog.String("resource", key)),
	}, true
}

func (h *ResourceHandler) index(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.begin(w, r, key)
		if !ok {
			return
		}

		limit, page, err := pageParams(r.URL.Query())
		if err != nil {
			RespondWithModelError(w, r, err)
			return
		}

		result, err := req.manager.Paginate(r.Context(), limit, page)
		if err != nil {
			RespondWithModelError(w, r, err)
			return
		}

		resp, err := req.responses.Paginate(r.Context(), result, requestPath(r))
		h.respond(w, r, req, resp, err)
	}
}

func (h *ResourceHandler) show(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.begin(w, r, key)
		if !ok {
			return
		}

		item, err := req.manager.Show(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			RespondWithModelError(w, r, err)
			return
		}

		resp, err := req.responses.Item(r.Context(), item)
		h.respond(w, r, req, resp, err)
	}
}

func (h *ResourceHandler) store(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.begin(w, r, key)
		if !ok {
			return
		}

		inputs, ok := h.inputs(w, r, req, RuleSetStore)
		if !ok {
			return
		}

		item, err := req.manager.Store(r.Context(), inputs)
		if err != nil {
			RespondWithModelError(w, r, err)
			return
		}
		req.log.Info("item stored")

		resp, err := req.responses.Item(r.Context(), item)
		if resp != nil {
			resp.Status = http.StatusCreated
		}
		h.respond(w, r, req, resp, err)
	}
}

func (h *ResourceHandler) update(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.begin(w, r, key)
		if !ok {
			return
		}

		inputs, ok := h.inputs(w, r, req, RuleSetUpdate)
		if !ok {
			return
		}

		item, err := req.manager.Update(r.Context(), chi.URLParam(r, "id"), inputs)
		if err != nil {
			RespondWithModelError(w, r, err)
			return
		}
		req.log.Info("item updated", slog.String("id", chi.URLParam(r, "id")))

		resp, err := req.responses.Item(r.Context(), item)
		h.respond(w, r, req, resp, err)
	}
}

func (h *ResourceHandler) destroy(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.begin(w, r, key)
		if !ok {
			return
		}

		item, err := req.manager.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			RespondWithModelError(w, r, err)
			return
		}
		req.log.Info("item deleted", slog.String("id", chi.URLParam(r, "id")))

		resp, err := req.responses.Item(r.Context(), item)
		h.respond(w, r, req, resp, err)
	}
}

// inputs decodes, sanitizes and validates the request body.
func (h *ResourceHandler) inputs(
	w http.ResponseWriter,
	r *http.Request,
	req *request,
	ruleSet string,
) (domain.Attributes, bool) {
	raw, err := shared.DecodeAttributes(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, msgInvalidRequest, err)
		return nil, false
	}

	inputs := h.sanitizer.attributes(raw)
	req.log.Debug("validating inputs",
		slog.String("rule_set", ruleSet),
		slog.Any("inputs", redact.Map(inputs)))

	if err := req.manager.Validate(inputs, ruleSet); err != nil {
		RespondWithModelError(w, r, err)
		return nil, false
	}
	return inputs, true
}

func (h *ResourceHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	req *request,
	resp *manager.Response,
	err error,
) {
	if err != nil {
		RespondWithModelError(w, r, err)
		return
	}
	req.responses.Respond(w, r, resp)
}
