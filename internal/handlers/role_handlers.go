package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/service"
)

type RoleHandlers struct {
	roles     *service.RoleService
	resources *Resources
	logger    *logrus.Logger
	debug     bool
}

func NewRoleHandlers(roles *service.RoleService, resources *Resources, logger *logrus.Logger, debug bool) *RoleHandlers {
	return &RoleHandlers{
		roles:     roles,
		resources: resources,
		logger:    logger,
		debug:     debug,
	}
}

func (h *RoleHandlers) List(w http.ResponseWriter, r *http.Request) {
	roles, pagination, err := h.roles.List(r.Context(), pageParam(r))
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, CollectionResponse{
		Data:       h.resources.Roles(roles),
		Pagination: pagination,
	})
}

func (h *RoleHandlers) Get(w http.ResponseWriter, r *http.Request) {
	role, err := h.roles.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, h.resources.Role(role))
}

func (h *RoleHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var cmd service.RoleCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	role, err := h.roles.Create(r.Context(), actorID(r), cmd)
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusCreated, h.resources.Role(role))
}

func (h *RoleHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var cmd service.RoleCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	role, err := h.roles.Update(r.Context(), actorID(r), mux.Vars(r)["id"], cmd)
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, h.resources.Role(role))
}

func (h *RoleHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if err := h.roles.Delete(r.Context(), actorID(r), mux.Vars(r)["id"], force); err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Role deleted successfully",
	})
}

func (h *RoleHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	role, err := h.roles.Restore(r.Context(), actorID(r), mux.Vars(r)["id"])
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}
	respondWithJSON(w, http.StatusOK, h.resources.Role(role))
}
