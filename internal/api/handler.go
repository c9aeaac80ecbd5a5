package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tabschema/internal/dataset"
	"tabschema/internal/middleware"
	"tabschema/internal/schema"
	"tabschema/internal/validate"
)

// TableSummary is one entry of the table listing.
type TableSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Columns     int    `json:"columns"`
}

// TableList is the response of GET /v1/tables.
type TableList struct {
	Dataset     string         `json:"dataset"`
	Description string         `json:"description,omitempty"`
	Tables      []TableSummary `json:"tables"`
}

// TypeInfo is one entry of GET /v1/types.
type TypeInfo struct {
	Name      string `json:"name"`
	ArrowType string `json:"arrow_type,omitempty"`
}

// ValidationResult is the response of POST /v1/tables/{table}/validate.
type ValidationResult struct {
	Table  string   `json:"table"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
	Rows   int64    `json:"rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"dataset": s.schema.Name,
		"tables":  len(s.schema.Tables),
	})
}

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(OpenAPIDocument)
}

func (s *Server) handleListTypes(w http.ResponseWriter, _ *http.Request) {
	prims := schema.PrimitiveTypes()
	out := make([]TypeInfo, 0, len(prims)+2)
	for _, p := range prims {
		out = append(out, TypeInfo{Name: p.Name, ArrowType: p.Type.String()})
	}
	out = append(out, TypeInfo{Name: schema.KindStruct}, TypeInfo{Name: schema.KindList})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"types":   out,
		"aliases": schema.TypeAliases(),
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, _ *http.Request) {
	out := TableList{
		Dataset:     s.schema.Name,
		Description: s.schema.Description,
		Tables:      make([]TableSummary, 0, len(s.schema.Tables)),
	}
	for _, t := range s.schema.Tables {
		out.Tables = append(out.Tables, TableSummary{
			Name:        t.Name,
			Description: t.Description,
			Columns:     len(t.Columns),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	t, err := s.schema.Select(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema.Describe(t))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	t, err := s.schema.Select(chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	strict := false
	if v := r.URL.Query().Get("strict"); v != "" {
		if strict, err = strconv.ParseBool(v); err != nil {
			writeError(w, r, &requestError{status: http.StatusBadRequest, msg: "strict must be a boolean"})
			return
		}
	}

	body := &capturingReader{r: r.Body}
	if s.cfg.MaxBodyBytes > 0 {
		body.r = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	snap, err := dataset.FromIPC(body, s.mem)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(body.err, &maxErr) {
			writeError(w, r, &requestError{status: http.StatusRequestEntityTooLarge, msg: maxErr.Error()})
			return
		}
		writeError(w, r, &requestError{status: http.StatusBadRequest, msg: err.Error()})
		return
	}

	logger := s.logger.With("request_id", middleware.RequestIDFromContext(r.Context()))
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		logger = logger.With("principal", principal)
	}
	errs := validate.Validate(snap, t, validate.WithLogger(logger))
	res := ValidationResult{
		Table:  t.Name,
		Valid:  len(errs) == 0,
		Errors: errs,
		Rows:   snap.NumRows(),
	}
	status := http.StatusOK
	if strict && !res.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// capturingReader remembers the first non-EOF error of the wrapped reader so
// body-limit failures can be told apart from malformed payloads.
type capturingReader struct {
	r   io.Reader
	err error
}

func (c *capturingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF && c.err == nil {
		c.err = err
	}
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
