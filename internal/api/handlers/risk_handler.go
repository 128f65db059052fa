package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"riskengine/internal/api/middleware"
	"riskengine/internal/service"
)

// RiskHandler отвечает за обзор риска и управление мандатами
//
// Endpoints:
// - GET /api/v1/risk/snapshot - агрегированный обзор риска
// - GET /api/v1/risk/mandates - список всех мандатов
// - GET /api/v1/risk/mandates/{code} - один мандат по коду
// - PATCH /api/v1/risk/mandates/{code}/limits - правка лимитов
// - PATCH /api/v1/risk/mandates/{code}/active - включение/выключение
type RiskHandler struct {
	riskService service.RiskServiceInterface
}

// NewRiskHandler создает новый RiskHandler с внедрением зависимости
func NewRiskHandler(riskService service.RiskServiceInterface) *RiskHandler {
	return &RiskHandler{riskService: riskService}
}

// GetSnapshot возвращает агрегированный обзор риска
//
// GET /api/v1/risk/snapshot
//
// Ответ содержит последний снапшот метрик, распределение мандатов
// по статусам, количество неподтвержденных оповещений и состояние
// kill switch флага.
//
// HTTP коды:
// - 200 OK: успешно (snapshot может быть null при холодном старте)
// - 500 Internal Server Error: ошибка сервера
func (h *RiskHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	overview, err := h.riskService.GetOverview()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get risk overview: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, overview)
}

// GetMandatesResponse представляет ответ списка мандатов
type GetMandatesResponse struct {
	Mandates interface{} `json:"mandates"`
	Total    int         `json:"total"`
}

// GetMandates возвращает список всех мандатов с текущими статусами
//
// GET /api/v1/risk/mandates
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив мандатов
// - 500 Internal Server Error: ошибка сервера
func (h *RiskHandler) GetMandates(w http.ResponseWriter, r *http.Request) {
	mandates, err := h.riskService.GetMandates()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get mandates: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetMandatesResponse{
		Mandates: mandates,
		Total:    len(mandates),
	})
}

// GetMandate возвращает один мандат по коду
//
// GET /api/v1/risk/mandates/{code}
//
// HTTP коды:
// - 200 OK: успешно
// - 404 Not Found: мандат с таким кодом не существует
// - 500 Internal Server Error: ошибка сервера
func (h *RiskHandler) GetMandate(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	mandate, err := h.riskService.GetMandate(code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMandateNotFound):
			respondWithError(w, http.StatusNotFound, "Mandate not found: "+code)
		case errors.Is(err, service.ErrMandateCodeEmpty):
			respondWithError(w, http.StatusBadRequest, "Mandate code is required")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to get mandate: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, mandate)
}

// UpdateLimitsRequest представляет запрос на правку лимитов мандата
type UpdateLimitsRequest struct {
	SoftLimit float64 `json:"soft_limit"`
	HardLimit float64 `json:"hard_limit"`
}

// UpdateLimits изменяет мягкий и жесткий лимиты мандата
//
// PATCH /api/v1/risk/mandates/{code}/limits
//
// Тело запроса:
//
//	{"soft_limit": -0.020, "hard_limit": -0.028}
//
// Лимиты должны быть одного знака, жесткий не мягче мягкого.
// Новые лимиты применяются со следующего цикла оценки.
// Правка аудируется от имени аутентифицированного пользователя.
//
// HTTP коды:
// - 200 OK: лимиты обновлены, возвращает мандат
// - 400 Bad Request: невалидное тело или несогласованные лимиты
// - 401 Unauthorized: нет аутентифицированного пользователя
// - 404 Not Found: мандат не существует
// - 500 Internal Server Error: ошибка сервера
func (h *RiskHandler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	mandate, err := h.riskService.UpdateMandateLimits(code, user.Username, req.SoftLimit, req.HardLimit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMandateNotFound):
			respondWithError(w, http.StatusNotFound, "Mandate not found: "+code)
		case errors.Is(err, service.ErrInvalidLimits), errors.Is(err, service.ErrMandateCodeEmpty):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update limits: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, mandate)
}

// SetActiveRequest представляет запрос на включение/выключение мандата
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive включает или выключает мандат.
// Выключенный мандат пропускается циклом оценки.
//
// PATCH /api/v1/risk/mandates/{code}/active
//
// HTTP коды:
// - 200 OK: успешно, возвращает мандат
// - 400 Bad Request: невалидное тело
// - 404 Not Found: мандат не существует
// - 500 Internal Server Error: ошибка сервера
func (h *RiskHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	mandate, err := h.riskService.SetMandateActive(code, req.Active)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMandateNotFound):
			respondWithError(w, http.StatusNotFound, "Mandate not found: "+code)
		case errors.Is(err, service.ErrMandateCodeEmpty):
			respondWithError(w, http.StatusBadRequest, "Mandate code is required")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update mandate: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, mandate)
}
