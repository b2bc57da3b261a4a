package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/attendance-bridge/internal/controller"
	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/mq"
)

// ListControllers возвращает список всех контроллеров.
// GET /api/v1/controllers
func (h *Handler) ListControllers(w http.ResponseWriter, r *http.Request) {
	controllers, err := h.controllerRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ControllerResponse, len(controllers))
	for i, c := range controllers {
		result[i] = ControllerFromDomain(c)
	}

	List(w, result, len(result))
}

// CreateController создаёт новый контроллер в состоянии draft.
// POST /api/v1/controllers
func (h *Handler) CreateController(w http.ResponseWriter, r *http.Request) {
	var req CreateControllerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Queue == "" {
		BadRequest(w, "queue is required")
		return
	}

	c, err := h.manager.Create(r.Context(), req.Name, req.Queue, req.Exchange, domain.ExchangeType(req.ExchangeType))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	Created(w, ControllerFromDomain(*c))
}

// GetController возвращает контроллер по ID.
// GET /api/v1/controllers/{id}
func (h *Handler) GetController(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid controller id")
		return
	}

	c, err := h.controllerRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "controller not found") {
		return
	}

	Success(w, ControllerFromDomain(*c))
}

// StartController запускает consumer контроллера.
// POST /api/v1/controllers/{id}/start
//
// Повторный start уже работающей очереди — не ошибка:
// возвращается текущий контроллер с пояснением "already running".
func (h *Handler) StartController(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid controller id")
		return
	}

	c, err := h.manager.Start(r.Context(), id)
	if errors.Is(err, mq.ErrAlreadyRunning) {
		SuccessMessage(w, ControllerFromDomain(*c), "already running")
		return
	}
	if HandleRepoError(w, h.logger, err, "controller not found") {
		return
	}

	Success(w, ControllerFromDomain(*c))
}

// StopController останавливает consumer контроллера.
// POST /api/v1/controllers/{id}/stop
func (h *Handler) StopController(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid controller id")
		return
	}

	c, err := h.manager.Stop(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "controller not found") {
		return
	}

	Success(w, ControllerFromDomain(*c))
}

// DeleteController удаляет контроллер. Работающий контроллер
// удалить нельзя — сначала stop.
// DELETE /api/v1/controllers/{id}
func (h *Handler) DeleteController(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid controller id")
		return
	}

	c, err := h.manager.Delete(r.Context(), id)
	if errors.Is(err, controller.ErrRunning) {
		InvalidState(w, "controller is running, stop it first")
		return
	}
	if HandleRepoError(w, h.logger, err, "controller not found") {
		return
	}

	Success(w, ControllerFromDomain(*c))
}
