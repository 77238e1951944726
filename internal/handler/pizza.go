package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pizza-api/internal/middleware"
	"github.com/vyrodovalexey/pizza-api/internal/model"
	"github.com/vyrodovalexey/pizza-api/internal/store"
)

// maxBodyBytes caps the size of a decoded request body.
const maxBodyBytes = 1 << 20

var (
	errNullBody     = errors.New("request body is null")
	errTrailingData = errors.New("request body has data after the pizza object")
)

// PizzaHandler handles the /pizza resource.
type PizzaHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewPizzaHandler creates a new PizzaHandler instance.
func NewPizzaHandler(s store.Store, logger *zap.Logger) *PizzaHandler {
	return &PizzaHandler{
		store:  s,
		logger: logger,
	}
}

// RegisterRoutes registers the pizza routes with the router.
func (h *PizzaHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/pizza", h.List).Methods(http.MethodGet)
	router.HandleFunc("/pizza", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/pizza/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/pizza/{id}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/pizza/{id}", h.Delete).Methods(http.MethodDelete)
}

// List handles GET /pizza requests.
func (h *PizzaHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.store.List())
}

// Get handles GET /pizza/{id} requests.
func (h *PizzaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	pizza, found := h.store.Get(id)
	if !found {
		h.notFound(w, r, id)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, pizza)
}

// Create handles POST /pizza requests.
func (h *PizzaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input model.Pizza
	if !h.decodeBody(w, r, &input) {
		return
	}

	created := h.store.Add(input)

	h.logger.Info("pizza created",
		zap.Int("id", created.ID),
		zap.String("name", created.Name),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)

	w.Header().Set("Location", fmt.Sprintf("/pizza?id=%d", created.ID))
	writeJSON(w, h.logger, http.StatusCreated, created)
}

// Update handles PUT /pizza/{id} requests. The body must carry the same
// id as the path, and the pizza must already exist.
func (h *PizzaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var input model.Pizza
	if !h.decodeBody(w, r, &input) {
		return
	}

	if input.ID != id {
		h.logger.Warn("pizza id mismatch",
			zap.Int("path_id", id),
			zap.Int("body_id", input.ID),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if _, found := h.store.Get(id); !found {
		h.notFound(w, r, id)
		return
	}

	h.store.Update(input)

	h.logger.Info("pizza updated",
		zap.Int("id", id),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /pizza/{id} requests.
func (h *PizzaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if _, found := h.store.Get(id); !found {
		h.notFound(w, r, id)
		return
	}

	h.store.Delete(id)

	h.logger.Info("pizza deleted",
		zap.Int("id", id),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route variable. On failure it writes 400 and
// returns false.
func (h *PizzaHandler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.Atoi(raw)
	if err != nil {
		h.logger.Warn("invalid pizza id",
			zap.String("id", raw),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		w.WriteHeader(http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

// decodeBody decodes exactly one JSON pizza object from the request body.
// A null body or trailing data is rejected. On failure it writes 400 and
// returns false.
func (h *PizzaHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst *model.Pizza) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := decodePizza(json.NewDecoder(r.Body), dst); err != nil {
		h.logger.Warn("invalid request body",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		w.WriteHeader(http.StatusBadRequest)
		return false
	}

	return true
}

func decodePizza(dec *json.Decoder, dst *model.Pizza) error {
	var p *model.Pizza
	if err := dec.Decode(&p); err != nil {
		return err
	}
	if p == nil {
		return errNullBody
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	*dst = *p
	return nil
}

// notFound writes an empty 404 response.
func (h *PizzaHandler) notFound(w http.ResponseWriter, r *http.Request, id int) {
	h.logger.Debug("pizza not found",
		zap.Int("id", id),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	w.WriteHeader(http.StatusNotFound)
}
