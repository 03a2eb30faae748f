// Package api exposes a cache.Service over HTTP.
//
// Routes:
//
//	GET    /v1/keys/{key}            raw value, 404 when absent
//	PUT    /v1/keys/{key}            body is the value; ?ttl=30s&keepttl=true&mode=nx|xx
//	DELETE /v1/keys/{key}
//	POST   /v1/keys/{key}/expire     {"ttl_ms": 1500}
//	POST   /v1/batch                 {"items": [{"key": "...", "value": "<base64>"}]}
//	GET    /v1/hashes/{key}          {"fields": {"<field>": "<base64>"}}
//	GET    /v1/hashes/{key}/{field}  raw value, 404 when absent
//	PUT    /v1/hashes/{key}/{field}  body is the value; answers {"created": n}
//
// Failures are written with errors.WriteHTTPError, so cache signals surface
// with their own status code and source.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/cache"
	"github.com/Combine-Capital/kvcache/pkg/errors"
	"github.com/Combine-Capital/kvcache/pkg/logging"
)

// DefaultMaxBodyBytes bounds request bodies unless WithMaxBodyBytes says otherwise.
const DefaultMaxBodyBytes int64 = 1 << 20

// Handler serves the cache routes.
type Handler struct {
	cache        cache.Service
	logger       *logging.Logger
	maxBodyBytes int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) { h.maxBodyBytes = n }
}

// WithLogger sets the logger used for request-scoped diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler creates a Handler over svc.
func NewHandler(svc cache.Service, opts ...Option) *Handler {
	h := &Handler{
		cache:        svc,
		logger:       logging.Nop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithComponent("API")
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/keys/{key}", h.getKey)
	mux.HandleFunc("PUT /v1/keys/{key}", h.putKey)
	mux.HandleFunc("DELETE /v1/keys/{key}", h.deleteKey)
	mux.HandleFunc("POST /v1/keys/{key}/expire", h.expireKey)
	mux.HandleFunc("POST /v1/batch", h.batch)
	mux.HandleFunc("GET /v1/hashes/{key}", h.getHash)
	mux.HandleFunc("GET /v1/hashes/{key}/{field}", h.getHashField)
	mux.HandleFunc("PUT /v1/hashes/{key}/{field}", h.putHashField)
}

// Routes returns a mux carrying only the cache routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func (h *Handler) getKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, found, err := h.cache.Get(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		errors.WriteHTTPError(w, errors.NewNotFound("key", key))
		return
	}
	writeValue(w, value)
}

func (h *Handler) putKey(w http.ResponseWriter, r *http.Request) {
	opts, err := setOptions(r)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	value, err := h.readBody(w, r)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	if err := h.cache.Set(r.Context(), r.PathValue("key"), value, opts...); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Delete(r.Context(), r.PathValue("key")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExpireRequest is the body of POST /v1/keys/{key}/expire.
type ExpireRequest struct {
	TTLMs int64 `json:"ttl_ms"`
}

func (h *Handler) expireKey(w http.ResponseWriter, r *http.Request) {
	var req ExpireRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	ttl := time.Duration(req.TTLMs) * time.Millisecond
	if err := h.cache.PExpire(r.Context(), r.PathValue("key"), ttl); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchRequest is the body of POST /v1/batch.
type BatchRequest struct {
	Items []cache.KeyValue `json:"items"`
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	for i, kv := range req.Items {
		if kv.Key == "" {
			errors.WriteHTTPError(w, errors.NewInvalidInput(fmt.Sprintf("items[%d].key", i), "key must not be empty"))
			return
		}
	}

	if err := h.cache.SetMulti(r.Context(), req.Items); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HashResponse is the body of GET /v1/hashes/{key}.
type HashResponse struct {
	Fields map[string][]byte `json:"fields"`
}

func (h *Handler) getHash(w http.ResponseWriter, r *http.Request) {
	fields, err := h.cache.HGetAll(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{Fields: fields})
}

func (h *Handler) getHashField(w http.ResponseWriter, r *http.Request) {
	key, field := r.PathValue("key"), r.PathValue("field")
	value, found, err := h.cache.HGet(r.Context(), key, field)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		errors.WriteHTTPError(w, errors.NewNotFound("hash field", key+"/"+field))
		return
	}
	writeValue(w, value)
}

// HSetResponse is the body answered by PUT /v1/hashes/{key}/{field}.
type HSetResponse struct {
	Created int64 `json:"created"`
}

func (h *Handler) putHashField(w http.ResponseWriter, r *http.Request) {
	value, err := h.readBody(w, r)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}

	n, err := h.cache.HSet(r.Context(), r.PathValue("key"), r.PathValue("field"), value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HSetResponse{Created: n})
}

// fail writes err and logs failures that did not come from the caller.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := errors.HTTPStatusCode(err); status >= http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str(logging.RequestID, logging.GetRequestID(r.Context())).
			Str(logging.Path, r.URL.Path).
			Int(logging.StatusCode, status).
			Msg("cache operation failed")
	}
	errors.WriteHTTPError(w, err)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		return nil, errors.NewInvalidInputWithCause("body", "unreadable request body", err)
	}
	return body, nil
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewInvalidInputWithCause("body", "invalid JSON body", err)
	}
	return nil
}

// setOptions reads the write options of PUT /v1/keys/{key} from the query.
func setOptions(r *http.Request) ([]cache.SetOption, error) {
	q := r.URL.Query()
	var opts []cache.SetOption

	if raw := q.Get("ttl"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl < 0 {
			return nil, errors.NewInvalidInput("ttl", "ttl must be a non-negative duration such as 30s")
		}
		opts = append(opts, cache.WithTTL(ttl))
	}

	if raw := q.Get("keepttl"); raw != "" {
		keep, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.NewInvalidInput("keepttl", "keepttl must be a boolean")
		}
		if keep {
			opts = append(opts, cache.WithKeepTTL())
		}
	}

	switch strings.ToLower(q.Get("mode")) {
	case "":
	case "nx":
		opts = append(opts, cache.IfAbsent())
	case "xx":
		opts = append(opts, cache.IfExists())
	default:
		return nil, errors.NewInvalidInput("mode", "mode must be nx or xx")
	}

	return opts, nil
}

func writeValue(w http.ResponseWriter, value []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(value)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
