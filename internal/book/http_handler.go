package book

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"bookcatalog/internal/httpx"
)

const (
	msgNoBooks        = "There are no books."
	msgDeleted        = "Book successfully deleted"
	msgConflict       = "This book already exists."
	msgNotFound       = "Book not found"
	msgNoFields       = "No fields to update"
	msgInvalidInput   = "Invalid input"
	msgInvalidBody    = "Invalid request body"
	msgInternal       = "Internal server error"
	msgSetupDisabled  = "Database setup is disabled"
	msgBodyTooLarge   = "Request body too large"
	codeValidation    = "VALIDATION_ERROR"
	codeBadRequest    = "BAD_REQUEST"
	codeConflict      = "CONFLICT"
	codeNotFound      = "NOT_FOUND"
	codeInternal      = "INTERNAL_ERROR"
	codeSetupDisabled = "SETUP_DISABLED"
	codeTooLarge      = "PAYLOAD_TOO_LARGE"
)

type HTTPHandler struct {
	service      *Service
	logger       *slog.Logger
	setupEnabled bool
}

type HandlerOption func(*HTTPHandler)

// WithSetup enables or disables POST /setup_database. It is enabled by default.
func WithSetup(enabled bool) HandlerOption {
	return func(h *HTTPHandler) {
		h.setupEnabled = enabled
	}
}

func NewHTTPHandler(service *Service, logger *slog.Logger, opts ...HandlerOption) *HTTPHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &HTTPHandler{service: service, logger: logger, setupEnabled: true}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the catalog endpoints on mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /setup_database", h.Setup)
	mux.HandleFunc("POST /books", h.Create)
	mux.HandleFunc("GET /books", h.List)
	mux.HandleFunc("GET /books/search", h.Search)
	mux.HandleFunc("PUT /books/{id}", h.Update)
	mux.HandleFunc("DELETE /books/{id}", h.Delete)
}

// @Summary Reset database
// @Description Drop and recreate the books table
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 403 {object} httpx.ErrorResponse
// @Router /setup_database [post]
func (h *HTTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	if !h.setupEnabled {
		httpx.JSONError(w, r, http.StatusForbidden, codeSetupDisabled, msgSetupDisabled, nil)
		return
	}
	if err := h.service.Setup(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// @Summary Create book
// @Tags books
// @Accept json
// @Produce json
// @Param book body CreateInput true "Book"
// @Success 200 {object} entity.Book
// @Failure 409 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r.Body, &in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, msgBodyTooLarge, nil)
			return
		}
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, codeValidation, msgInvalidBody, nil)
		return
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, created)
}

// @Summary List books
// @Description Books in insertion order, or "There are no books." when the page is empty
// @Tags books
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Rows to skip" default(0)
// @Success 200 {array} entity.Book
// @Failure 422 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var details []httpx.ErrorDetail

	params := ListParams{Limit: DefaultLimit, Offset: DefaultOffset}
	if v, ok := intParam(query, "limit", &details); ok && v != nil {
		params.Limit = *v
	}
	if v, ok := intParam(query, "offset", &details); ok && v != nil {
		params.Offset = *v
	}
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, codeValidation, msgInvalidInput, details)
		return
	}

	books, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(books) == 0 {
		httpx.JSON(w, http.StatusOK, msgNoBooks)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

// @Summary Search books
// @Description Exact, case-insensitive match on every supplied field
// @Tags books
// @Produce json
// @Param title query string false "Title"
// @Param author query string false "Author"
// @Param year query int false "Year"
// @Success 200 {array} entity.Book
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/search [get]
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var details []httpx.ErrorDetail

	params := SearchParams{
		Title:  strParam(query, "title"),
		Author: strParam(query, "author"),
	}
	params.Year, _ = intParam(query, "year", &details)
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, codeValidation, msgInvalidInput, details)
		return
	}

	books, err := h.service.Search(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

// @Summary Update book
// @Description Change only the supplied fields
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Param title query string false "Title"
// @Param author query string false "Author"
// @Param year query int false "Year"
// @Success 200 {object} entity.Book
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var details []httpx.ErrorDetail

	id, _ := idParam(r, &details)
	in := UpdateInput{
		Title:  strParam(query, "title"),
		Author: strParam(query, "author"),
	}
	in.Year, _ = intParam(query, "year", &details)
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, codeValidation, msgInvalidInput, details)
		return
	}

	updated, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// @Summary Delete book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var details []httpx.ErrorDetail
	id, ok := idParam(r, &details)
	if !ok {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, codeValidation, msgInvalidInput, details)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"success": msgDeleted})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNoFields):
		httpx.JSONError(w, r, http.StatusBadRequest, codeBadRequest, msgNoFields, nil)
	case errors.As(err, &verr):
		details := make([]httpx.ErrorDetail, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, httpx.ErrorDetail{Field: f.Field, Message: f.Message})
		}
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, codeValidation, msgInvalidInput, details)
	case errors.Is(err, ErrValidation):
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, codeValidation, msgInvalidInput, nil)
	case errors.Is(err, ErrConflict):
		httpx.JSONError(w, r, http.StatusConflict, codeConflict, msgConflict, nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, codeNotFound, msgNotFound, nil)
	default:
		h.logger.Error("catalog request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFrom(r),
			"error", err.Error(),
		)
		httpx.JSONError(w, r, http.StatusInternalServerError, codeInternal, msgInternal, nil)
	}
}

// strParam returns nil when the parameter is missing.
func strParam(q url.Values, name string) *string {
	if !q.Has(name) {
		return nil
	}
	v := q.Get(name)
	return &v
}

// intParam returns nil when the parameter is missing. A value that is not an
// integer is appended to details and reported as not ok.
func intParam(q url.Values, name string, details *[]httpx.ErrorDetail) (*int, bool) {
	if !q.Has(name) {
		return nil, true
	}
	v, err := strconv.Atoi(q.Get(name))
	if err != nil {
		*details = append(*details, httpx.ErrorDetail{Field: name, Message: name + " must be an integer"})
		return nil, false
	}
	return &v, true
}

func idParam(r *http.Request, details *[]httpx.ErrorDetail) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		*details = append(*details, httpx.ErrorDetail{Field: "id", Message: "id must be an integer"})
		return 0, false
	}
	return id, true
}
