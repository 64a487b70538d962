package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/schedule"
	"github.com/FonTain1991/aidkit/internal/store"
	"github.com/FonTain1991/aidkit/internal/websocket"
)

type ReminderHandler struct {
	service       *schedule.Service
	reminderStore *store.ReminderStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewReminderHandler(svc *schedule.Service, rs *store.ReminderStore, hub *websocket.Hub, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{service: svc, reminderStore: rs, hub: hub, logger: logger}
}

func (h *ReminderHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

var validFrequencies = map[string]bool{
	model.FreqOnce:   true,
	model.FreqDaily:  true,
	model.FreqWeekly: true,
}

type reminderRequest struct {
	Title            string   `json:"title"`
	MedicineIDs      []int64  `json:"medicine_ids"`
	FamilyMemberID   *int64   `json:"family_member_id"`
	Frequency        string   `json:"frequency"`
	AnchorTimes      []string `json:"anchor_times"`
	IntakesPerPeriod int      `json:"intakes_per_period"`
}

func (r reminderRequest) validate() string {
	if strings.TrimSpace(r.Title) == "" {
		return "title is required"
	}
	if !validFrequencies[r.Frequency] {
		return "frequency must be once, daily, or weekly"
	}
	if len(r.AnchorTimes) == 0 {
		return "at least one anchor time is required"
	}
	if r.IntakesPerPeriod < 1 {
		return "intakes per period must be at least 1"
	}
	return ""
}

// reminderResponse pairs the stored definition with the scheduling outcome,
// so the client can surface partially failed schedules.
type reminderResponse struct {
	Reminder *model.Reminder  `json:"reminder"`
	Report   *schedule.Report `json:"report,omitempty"`
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rem := &model.Reminder{
		Title:            strings.TrimSpace(req.Title),
		MedicineIDs:      req.MedicineIDs,
		FamilyMemberID:   req.FamilyMemberID,
		Frequency:        req.Frequency,
		AnchorTimes:      req.AnchorTimes,
		IntakesPerPeriod: req.IntakesPerPeriod,
		IsActive:         true,
	}

	created, report, err := h.service.ScheduleReminder(r.Context(), rem)
	if err != nil {
		if created == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("schedule reminder", "id", created.ID, "error", err)
	}

	h.broadcast(websocket.NewMessage("reminder", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, reminderResponse{Reminder: created, Report: report})
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rem := &model.Reminder{
		ID:               id,
		Title:            strings.TrimSpace(req.Title),
		MedicineIDs:      req.MedicineIDs,
		FamilyMemberID:   req.FamilyMemberID,
		Frequency:        req.Frequency,
		AnchorTimes:      req.AnchorTimes,
		IntakesPerPeriod: req.IntakesPerPeriod,
		IsActive:         true,
	}

	updated, report, err := h.service.UpdateReminder(r.Context(), rem)
	if err != nil {
		if updated == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("reschedule reminder", "id", updated.ID, "error", err)
	}

	h.broadcast(websocket.NewMessage("reminder", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, reminderResponse{Reminder: updated, Report: report})
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.reminderStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reminder"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reminder not found"})
		return
	}

	if err := h.service.CancelReminder(r.Context(), id); err != nil {
		h.logger.Error("cancel reminder", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to cancel reminder"})
		return
	}

	h.broadcast(websocket.NewMessage("reminder", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// ListActive handles GET /api/reminders
func (h *ReminderHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ActiveReminders(r.Context())
	if err != nil {
		h.logger.Error("list active reminders", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list reminders"})
		return
	}
	if views == nil {
		views = []schedule.ReminderOverview{}
	}
	writeJSON(w, http.StatusOK, views)
}

// TodayIntakes handles GET /api/intakes/today
func (h *ReminderHandler) TodayIntakes(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.TodayIntakes(r.Context())
	if err != nil {
		h.logger.Error("list today intakes", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list intakes"})
		return
	}
	if views == nil {
		views = []schedule.TodayIntake{}
	}
	writeJSON(w, http.StatusOK, views)
}

// MarkTaken handles POST /api/intakes/{notificationID}/taken
func (h *ReminderHandler) MarkTaken(w http.ResponseWriter, r *http.Request) {
	notificationID := r.PathValue("notificationID")
	if notificationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "notification id is required"})
		return
	}

	var req struct {
		FamilyMemberID *int64 `json:"family_member_id"`
	}
	if r.Body != nil {
		// Body is optional; a bare POST marks the intake without attribution.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	record, err := h.service.MarkTaken(r.Context(), notificationID, req.FamilyMemberID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	h.broadcast(websocket.NewMessage("intake", "taken", record.ReminderID, map[string]any{"notification_id": notificationID}))
	writeJSON(w, http.StatusOK, record)
}
