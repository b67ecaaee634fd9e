package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/order-fulfillment/internal/user"
)

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type UserHandler struct {
	svc      user.Service
	validate *validator.Validate
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Post("/users", h.CreateUser)
	router.Get("/users", h.GetUserByEmail)
	router.Get("/users/{id}", h.GetUserByID)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: req.Password,
	}

	created, err := h.svc.CreateUser(r.Context(), &u)
	if err != nil {
		log.Info().Err(err).Msg("handler: failed to create user")
		message := "failed to create user"
		if errors.Is(err, user.ErrEmailExists) {
			message = "email already exists"
		}
		respondWithError(w, mapUserErrorToStatusCode(err), message)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email query param is required")
		return
	}

	u, err := h.svc.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	u, err := h.svc.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}
