package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"riskengine/internal/api/middleware"
	"riskengine/internal/risk"
	"riskengine/internal/service"
)

// KillSwitchHandler отвечает за экстренную ликвидацию
//
// Endpoints:
// - POST /api/v1/risk/kill-switch - запуск kill switch
// - GET /api/v1/risk/kill-switch - состояние и история
type KillSwitchHandler struct {
	killSwitchService service.KillSwitchServiceInterface
}

// NewKillSwitchHandler создает новый KillSwitchHandler
func NewKillSwitchHandler(killSwitchService service.KillSwitchServiceInterface) *KillSwitchHandler {
	return &KillSwitchHandler{killSwitchService: killSwitchService}
}

// KillSwitchRequest представляет запрос запуска kill switch
type KillSwitchRequest struct {
	Reason  string `json:"reason"`
	Confirm bool   `json:"confirm"`
}

// Execute запускает kill switch
//
// POST /api/v1/risk/kill-switch
//
// Тело запроса:
//
//	{"reason": "volatility spike", "confirm": true}
//
// Двухшаговое подтверждение: confirm обязан быть true, отдельно
// от reason, чтобы исключить случайный запуск из UI или скрипта.
//
// Вызов синхронный: ответ приходит после завершения ликвидации
// и содержит терминальный итог (SUCCESS / PARTIAL / FAILED).
//
// HTTP коды:
// - 200 OK: ликвидация завершена (см. outcome в ответе)
// - 400 Bad Request: нет confirm или пустой reason
// - 401 Unauthorized: нет аутентификации
// - 403 Forbidden: роль не ADMIN
// - 409 Conflict: уже выполняется конкурентный вызов
// - 500 Internal Server Error: ошибка сервера
func (h *KillSwitchHandler) Execute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req KillSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if !req.Confirm {
		respondWithError(w, http.StatusBadRequest, "Kill switch requires explicit confirmation (confirm: true)")
		return
	}

	result, err := h.killSwitchService.Execute(r.Context(), user.Username, user.Role, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, risk.ErrInvalidRequest):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, risk.ErrUnauthorized):
			respondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, risk.ErrAlreadyInProgress):
			respondWithError(w, http.StatusConflict, "Kill switch invocation already in progress")
		default:
			respondWithError(w, http.StatusInternalServerError, "Kill switch failed: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetStatus возвращает состояние kill switch и последние события
//
// GET /api/v1/risk/kill-switch
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка сервера
func (h *KillSwitchHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.killSwitchService.GetStatus()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get kill switch status: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
