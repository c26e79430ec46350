// Package controller wires the HTTP surface to the query engine: resource
// CRUD, relationship fetches, bulk actions, uploads, and authentication.
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lucent-admin/lucent/internal/engine"
	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
	"github.com/lucent-admin/lucent/internal/uploads"
	"github.com/lucent-admin/lucent/internal/web/cache"
	"github.com/lucent-admin/lucent/internal/web/request"
	"github.com/lucent-admin/lucent/internal/web/response"
)

// PublicStoragePrefix is the URL path uploaded files are served under.
const PublicStoragePrefix = "/storage/"

const metadataTTL = time.Minute

// Resources serves every resource-scoped endpoint.
type Resources struct {
	engine  *engine.Engine
	storage uploads.Storage
	cache   cache.Cache
	logger  *zap.Logger
}

// NewResources builds the resource controller.
func NewResources(eng *engine.Engine, storage uploads.Storage, c cache.Cache, logger *zap.Logger) *Resources {
	return &Resources{engine: eng, storage: storage, cache: c, logger: logger}
}

// currentResource resolves the {resource} URL parameter against the
// registry. A miss writes the 404 and returns nil.
func (c *Resources) currentResource(w http.ResponseWriter, r *http.Request) *resource.Resource {
	slug := chi.URLParam(r, "resource")
	res, ok := c.engine.Registry().Find(slug)
	if !ok {
		response.NotFound(w, "Resource not found.")
		return nil
	}
	return res
}

// Metadata serves the serialized resource descriptors the client boots
// from. The payload depends on the signed-in user's authorization, so it
// is cached per user.
func (c *Resources) Metadata(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	key := "metadata:" + user.ID()
	if c.cache != nil {
		if cached, err := c.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	serialized := c.engine.Registry().Serialize(user)
	body, err := json.Marshal(serialized)
	if err != nil {
		c.logger.Error("serialize metadata", zap.Error(err))
		response.InternalError(w)
		return
	}

	if c.cache != nil {
		if err := c.cache.Set(r.Context(), key, body, metadataTTL); err != nil {
			c.logger.Warn("cache metadata", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Index lists a page of records with search and filters applied.
func (c *Resources) Index(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanView(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	result, err := c.engine.FetchCollection(r.Context(), res, request.ListParams(r))
	if err != nil {
		c.internalError(w, r, "fetch collection", err)
		return
	}

	response.OK(w, result)
}

// Show serves a single record with computed fields resolved.
func (c *Resources) Show(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanView(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	record, err := c.engine.FindRecord(r.Context(), res, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Resource not found.")
		return
	}
	if err != nil {
		c.internalError(w, r, "find record", err)
		return
	}

	response.OK(w, record)
}

// HasMany serves the related records referenced by a has-many field.
func (c *Resources) HasMany(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanView(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	result, err := c.engine.FetchHasMany(r.Context(), res, chi.URLParam(r, "id"), chi.URLParam(r, "relation"), request.ListParams(r))
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Resource not found.")
		return
	}
	if err != nil {
		c.internalError(w, r, "fetch has-many", err)
		return
	}

	response.OK(w, result)
}

// HasOne serves the record referenced by a has-one field, or null.
func (c *Resources) HasOne(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanView(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	record, err := c.engine.FetchHasOne(r.Context(), res, chi.URLParam(r, "id"), chi.URLParam(r, "relation"))
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Resource not found.")
		return
	}
	if err != nil {
		c.internalError(w, r, "fetch has-one", err)
		return
	}

	response.OK(w, record)
}

// Store creates a record. Validation failures come back as a 422 whose
// body is the attribute error map.
func (c *Resources) Store(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanCreate(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	payload, err := request.Record(w, r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	stale := extractStaleFiles(payload)

	record, err := c.engine.Create(r.Context(), res, payload)
	if err != nil {
		c.writeError(w, r, "create record", err)
		return
	}

	c.removeStaleFiles(r, stale)
	response.Created(w, record)
}

// Update applies a partial update to a record.
func (c *Resources) Update(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanUpdate(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	payload, err := request.Record(w, r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	stale := extractStaleFiles(payload)

	record, err := c.engine.Update(r.Context(), res, chi.URLParam(r, "id"), payload)
	if err != nil {
		c.writeError(w, r, "update record", err)
		return
	}

	c.removeStaleFiles(r, stale)
	response.OK(w, record)
}

// Destroy deletes the records named in the request body.
func (c *Resources) Destroy(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanDelete(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	var body struct {
		Resources []string `json:"resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	deleted, err := c.engine.Delete(r.Context(), res, body.Resources)
	if err != nil {
		c.internalError(w, r, "destroy records", err)
		return
	}

	response.OK(w, map[string]int{"deleted": deleted})
}

// RunAction invokes a registered action over the selected records.
func (c *Resources) RunAction(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	if !res.CanUpdate(UserFromContext(r.Context())) {
		response.Forbidden(w, "")
		return
	}

	var body struct {
		Action    string   `json:"action"`
		Resources []string `json:"resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	if _, ok := res.ActionByID(body.Action); !ok {
		response.NotFound(w, "Action not found.")
		return
	}

	if err := c.engine.RunAction(r.Context(), res, body.Action, body.Resources); err != nil {
		c.internalError(w, r, "run action", err)
		return
	}

	response.OK(w, map[string]any{})
}

// Upload stores a multipart file and returns its public path.
func (c *Resources) Upload(w http.ResponseWriter, r *http.Request) {
	res := c.currentResource(w, r)
	if res == nil {
		return
	}
	user := UserFromContext(r.Context())
	if !res.CanCreate(user) && !res.CanUpdate(user) {
		response.Forbidden(w, "")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "missing file field")
		return
	}

	filename, err := c.storage.Save(header)
	if err != nil {
		c.internalError(w, r, "save upload", err)
		return
	}

	response.OK(w, PublicStoragePrefix+filename)
}

// writeError maps engine write failures onto the response taxonomy.
func (c *Resources) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(w, verr.Errors)
	case errors.Is(err, store.ErrNotFound):
		response.NotFound(w, "Resource not found.")
	default:
		c.internalError(w, r, op, err)
	}
}

func (c *Resources) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	c.logger.Error(op, zap.Error(err), zap.String("path", r.URL.Path))
	response.InternalError(w)
}

// extractStaleFiles pulls the staleFiles list out of a write payload. The
// list never reaches the store.
func extractStaleFiles(payload store.Record) []string {
	raw, ok := payload["staleFiles"]
	if !ok {
		return nil
	}
	delete(payload, "staleFiles")

	var files []string
	switch list := raw.(type) {
	case []string:
		files = list
	case []any:
		for _, v := range list {
			if s, ok := v.(string); ok {
				files = append(files, s)
			}
		}
	}
	return files
}

// removeStaleFiles deletes replaced uploads after a successful save. Best
// effort: a failed removal is logged, never surfaced.
func (c *Resources) removeStaleFiles(r *http.Request, files []string) {
	for _, f := range files {
		name := strings.TrimPrefix(f, PublicStoragePrefix)
		if err := c.storage.Remove(name); err != nil {
			c.logger.Warn("remove stale file", zap.String("file", f), zap.Error(err))
		}
	}
}
