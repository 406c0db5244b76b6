package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/hostwatch/hostwatch/internal/openapi"
)

// OpenAPIHandler serves the API description. The document is generated once
// on first request.
type OpenAPIHandler struct {
	opts openapi.Options

	once sync.Once
	body []byte
	err  error
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(opts openapi.Options) *OpenAPIHandler {
	return &OpenAPIHandler{opts: opts}
}

// ServeSpec writes the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.body, h.err = json.Marshal(openapi.Generate(openapi.Routes, h.opts))
	})
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate OpenAPI document: "+h.err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(h.body)
}
