package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"marquee/cmd/internal/auth/session"
	"marquee/cmd/internal/httpjson"

	"github.com/go-playground/validator/v10"
)

type messageResponse struct {
	Message string `json:"message"`
	Movie   *Movie `json:"movie,omitempty"`
}

// Authenticator guards a handler with the session gate.
type Authenticator interface {
	Require(next http.Handler) http.Handler
}

// Handler exposes the catalog over HTTP.
type Handler struct {
	store    Store
	auth     Authenticator
	log      *slog.Logger
	validate *validator.Validate
	maxBody  int64
}

// NewHandler builds a Handler. maxBody <= 0 means 1 MiB.
func NewHandler(store Store, auth Authenticator, log *slog.Logger, maxBody int64) (*Handler, error) {
	if store == nil || auth == nil {
		return nil, errors.New("catalog: handler requires store and authenticator")
	}
	if log == nil {
		log = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handler{
		store:    store,
		auth:     auth,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		maxBody:  maxBody,
	}, nil
}

// Register wires catalog routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	authed := func(fn http.HandlerFunc) http.Handler { return h.auth.Require(fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return h.auth.Require(session.RequireAdmin(fn)) }

	mux.Handle("GET /api/movies", authed(h.handleList))
	mux.Handle("GET /api/genres", authed(h.handleGenres))
	mux.Handle("POST /api/movies", admin(h.handleCreate))
	mux.Handle("GET /api/movies/{id}", admin(h.handleGet))
	mux.Handle("PUT /api/movies/{id}", admin(h.handleUpdate))
	mux.Handle("DELETE /api/movies/{id}", admin(h.handleDelete))
	mux.Handle("GET /api/movie_logs", admin(h.handleLogs))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	page, err := strconv.Atoi(v.Get("page"))
	if err != nil {
		page = 1
	}

	res, err := h.store.List(r.Context(), Query{
		Page:   page,
		Genre:  v.Get("genre"),
		Sort:   v.Get("sort"),
		Order:  v.Get("order"),
		Search: v.Get("search"),
	})
	if err != nil {
		h.serverError(w, "catalog.list.fail", err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.store.Genres(r.Context())
	if err != nil {
		h.serverError(w, "catalog.genres.fail", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string][]string{"genres": genres})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in MovieInput
	if err := httpjson.Decode(w, r, h.maxBody, &in); err != nil {
		httpjson.BadBody(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid movie")
		return
	}

	m, err := h.store.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid movie")
			return
		}
		h.serverError(w, "catalog.create.fail", err)
		return
	}

	h.log.Info("catalog.movie.added", "movie_id", m.ID, "user_id", actorID(r))
	httpjson.Write(w, http.StatusCreated, messageResponse{Message: "Movie added successfully!", Movie: &m})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	m, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, "catalog.get.fail", err)
		return
	}
	httpjson.Write(w, http.StatusOK, m)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	var patch MoviePatch
	if err := httpjson.Decode(w, r, h.maxBody, &patch); err != nil {
		httpjson.BadBody(w, err)
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid movie")
		return
	}

	m, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.storeError(w, "catalog.update.fail", err)
		return
	}

	h.log.Info("catalog.movie.updated", "movie_id", m.ID, "user_id", actorID(r))
	httpjson.Write(w, http.StatusOK, messageResponse{Message: "Movie updated successfully!", Movie: &m})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.storeError(w, "catalog.delete.fail", err)
		return
	}

	h.log.Info("catalog.movie.deleted", "movie_id", id, "user_id", actorID(r))
	httpjson.Write(w, http.StatusOK, messageResponse{Message: "Movie deleted successfully!"})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.store.Logs(r.Context())
	if err != nil {
		h.serverError(w, "catalog.logs.fail", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string][]LogEntry{"logs": logs})
}

func (h *Handler) storeError(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "not_found", "Movie not found")
	case errors.Is(err, ErrInvalid):
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid movie")
	default:
		h.serverError(w, event, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, event string, err error) {
	h.log.Error(event, "err", err)
	httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
}

func movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpjson.Error(w, http.StatusNotFound, "not_found", "Movie not found")
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	if u, ok := session.UserFromContext(r.Context()); ok {
		return u.ID
	}
	return 0
}
