package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"riskengine/internal/api/middleware"
	"riskengine/internal/service"
)

// AlertHandler отвечает за оповещения и их подтверждение
//
// Endpoints:
// - GET /api/v1/risk/alerts - список оповещений
// - GET /api/v1/risk/alerts?active=true - только неподтвержденные
// - POST /api/v1/risk/alerts/{id}/acknowledge - подтверждение
type AlertHandler struct {
	alertService service.AlertServiceInterface
}

// NewAlertHandler создает новый AlertHandler с внедрением зависимости
func NewAlertHandler(alertService service.AlertServiceInterface) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlertsResponse представляет ответ списка оповещений
type GetAlertsResponse struct {
	Alerts interface{} `json:"alerts"`
	Total  int         `json:"total"`
}

// GetAlerts возвращает список оповещений
//
// GET /api/v1/risk/alerts
//
// Query параметры:
// - active (bool): только неподтвержденные и невытесненные
// - limit (int): количество записей истории (по умолчанию 50)
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка сервера
func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	alerts, err := h.alertService.GetAlerts(activeOnly, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get alerts: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetAlertsResponse{
		Alerts: alerts,
		Total:  len(alerts),
	})
}

// Acknowledge подтверждает оповещение от имени текущего пользователя
//
// POST /api/v1/risk/alerts/{id}/acknowledge
//
// Подтверждение НЕ идемпотентно: повторный запрос по уже
// подтвержденному оповещению возвращает 409 Conflict.
//
// HTTP коды:
// - 200 OK: подтверждено, возвращает оповещение
// - 401 Unauthorized: нет аутентификации
// - 404 Not Found: оповещение не существует
// - 409 Conflict: уже подтверждено
// - 500 Internal Server Error: ошибка сервера
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	alert, err := h.alertService.Acknowledge(id, user.Username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlertNotFound):
			respondWithError(w, http.StatusNotFound, "Alert not found: "+id)
		case errors.Is(err, service.ErrAlertAcknowledged):
			respondWithError(w, http.StatusConflict, "Alert already acknowledged")
		case errors.Is(err, service.ErrAlertIDEmpty):
			respondWithError(w, http.StatusBadRequest, "Alert id is required")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to acknowledge alert: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, alert)
}
