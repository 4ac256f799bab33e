package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"CaseTracker/internal/model"
	"CaseTracker/internal/workflow"
)

// SessionHeader: заголовок с идентификатором сессии
const SessionHeader = "X-Session-ID"

// urgentDays: срок, начиная с которого кейс помечается срочным
const urgentDays = 7

// Sessions задаёт реестр сессий, используемый хендлером
type Sessions interface {
	Open(passcode string) (string, error)
	Get(id string) (*workflow.Controller, error)
	Close(id string)
}

// Pinger проверяет доступность зависимости для /readyz
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler содержит зависимости и реализует HTTP-эндпоинты трекера кейсов
type Handler struct {
	sessions Sessions
	checks   map[string]Pinger
	now      func() time.Time
}

// NewHandler создаёт новый HTTP Handler. checks опрашиваются в /readyz.
func NewHandler(sessions Sessions, checks map[string]Pinger) *Handler {
	return &Handler{sessions: sessions, checks: checks, now: time.Now}
}

// RegisterRoutes регистрирует маршруты API
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Эндпоинты для проверки здоровья и готовности сервиса
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/session", h.OpenSession).Methods("POST")

	auth := func(f http.HandlerFunc) http.Handler { return h.RequireSession(f) }
	r.Handle("/session", auth(h.CloseSession)).Methods("DELETE")
	r.Handle("/cases", auth(h.ListCases)).Methods("GET")
	r.Handle("/cases", auth(h.CreateCase)).Methods("POST")
	r.Handle("/cases/{id}", auth(h.GetCase)).Methods("GET")
	r.Handle("/cases/{id}", auth(h.DeleteCase)).Methods("DELETE")
	r.Handle("/cases/{id}/payment-status", auth(h.SetPaymentStatus)).Methods("PATCH")
	r.Handle("/cases/{id}/project-status", auth(h.SetProjectStatus)).Methods("PATCH")
	r.Handle("/cases/{id}/publish", auth(h.ConfirmPublish)).Methods("POST")
	r.Handle("/cases/{id}/publish", auth(h.CancelPublish)).Methods("DELETE")
}

// ErrorResponse модель ошибки API
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

// коды ErrorResponse.Code
const (
	codeBadRequest   = 1
	codeUnauthorized = 2
	codeNotFound     = 3
	codeUnavailable  = 4
)

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError переводит типизированную ошибку в HTTP-статус:
// валидация 400, отсутствие кейса 404, недоступность хранилища 503
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ErrorResponse{codeBadRequest, "errors.common.validation",
			map[string]interface{}{"field": ve.Field, "reason": ve.Reason}})
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, ErrorResponse{codeBadRequest, err.Error(), map[string]interface{}{}})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{codeNotFound, "errors.common.notFound", map[string]interface{}{}})
	case errors.Is(err, model.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrorResponse{codeUnavailable, "errors.common.storeUnavailable", map[string]interface{}{}})
	default:
		writeError(w, http.StatusInternalServerError, ErrorResponse{codeBadRequest, err.Error(), map[string]interface{}{}})
	}
}

// caseResponse: кейс с производными полями для отображения
type caseResponse struct {
	model.Case
	PriorityLabel        string               `json:"priority_label"`
	PaymentStatusLabel   string               `json:"payment_status_label"`
	ProjectStatusLabel   string               `json:"project_status_label"`
	DaysRemaining        *int                 `json:"days_remaining"`
	Deadline             string               `json:"deadline,omitempty"`
	Urgent               bool                 `json:"urgent"`
	PendingPaymentStatus *model.PaymentStatus `json:"pending_payment_status,omitempty"`
	PendingProjectStatus *model.ProjectStatus `json:"pending_project_status,omitempty"`
	AwaitingLink         bool                 `json:"awaiting_link"`
}

func (h *Handler) present(it workflow.Item) caseResponse {
	resp := caseResponse{
		Case:                 it.Case,
		PriorityLabel:        it.Priority.Label(),
		PaymentStatusLabel:   it.PaymentStatus.Label(),
		ProjectStatusLabel:   it.ProjectStatus.Label(),
		PendingPaymentStatus: it.PendingPaymentStatus,
		PendingProjectStatus: it.PendingProjectStatus,
		AwaitingLink:         it.AwaitingLink,
	}
	if days := it.DaysRemaining(h.now()); days != nil {
		resp.DaysRemaining = days
		resp.Deadline = model.DeadlineLabel(*days)
		resp.Urgent = *days <= urgentDays
	}
	return resp
}

// OpenSession обрабатывает POST /session
// 1. Декодирует тело с полем passcode
// 2. При верном коде возвращает 201 и идентификатор новой сессии
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{codeBadRequest, "invalid request body", map[string]interface{}{}})
		return
	}
	id, err := h.sessions.Open(req.Passcode)
	if err != nil {
		writeError(w, http.StatusUnauthorized, ErrorResponse{codeUnauthorized, "errors.session.invalidPasscode", map[string]interface{}{}})
		return
	}
	w.Header().Set(SessionHeader, id)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// CloseSession обрабатывает DELETE /session
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Close(r.Header.Get(SessionHeader))
	w.WriteHeader(http.StatusNoContent)
}

// ListCases обрабатывает GET /cases?q=
// перечитывает список и возвращает его отфильтрованным и отсортированным по приоритету
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	items, err := workflowFrom(r).ListCases(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]caseResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, h.present(it))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cases": resp})
}

// CreateCase обрабатывает POST /cases
// пустые поля заполняются умолчаниями формы, в ответе созданный кейс
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var in model.CaseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{codeBadRequest, "invalid request body", map[string]interface{}{}})
		return
	}
	created, err := workflowFrom(r).CreateCase(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present(workflow.Item{Case: *created}))
}

// GetCase обрабатывает GET /cases/{id}; кейс вне снимка ищется после перечитывания списка
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	it, err := workflowFrom(r).Find(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(it))
}

// SetPaymentStatus обрабатывает PATCH /cases/{id}/payment-status
func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.PaymentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{codeBadRequest, "invalid request body", map[string]interface{}{}})
		return
	}
	it, err := workflowFrom(r).SetPaymentStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(it))
}

// SetProjectStatus обрабатывает PATCH /cases/{id}/project-status.
// Если для published нужна ссылка, отвечает 202 и ждёт POST /cases/{id}/publish.
func (h *Handler) SetProjectStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.ProjectStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{codeBadRequest, "invalid request body", map[string]interface{}{}})
		return
	}
	out, err := workflowFrom(r).SetProjectStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if out.AwaitingLink {
		status = http.StatusAccepted
	}
	writeJSON(w, status, h.present(out.Item))
}

// ConfirmPublish обрабатывает POST /cases/{id}/publish с телом {"link"}
func (h *Handler) ConfirmPublish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{codeBadRequest, "invalid request body", map[string]interface{}{}})
		return
	}
	it, err := workflowFrom(r).ConfirmPublish(r.Context(), mux.Vars(r)["id"], req.Link)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(it))
}

// CancelPublish обрабатывает DELETE /cases/{id}/publish
func (h *Handler) CancelPublish(w http.ResponseWriter, r *http.Request) {
	it, err := workflowFrom(r).CancelPublish(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(it))
}

// DeleteCase обрабатывает DELETE /cases/{id}
func (h *Handler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := workflowFrom(r).DeleteCase(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "removed": true})
}

// Healthz возвращает статус работы сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz опрашивает зависимости и возвращает 503, если хоть одна недоступна
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	failed := make(map[string]interface{})
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeError(w, http.StatusServiceUnavailable, ErrorResponse{codeUnavailable, "errors.common.notReady", failed})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
