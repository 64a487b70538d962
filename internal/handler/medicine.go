package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/schedule"
	"github.com/FonTain1991/aidkit/internal/store"
	"github.com/FonTain1991/aidkit/internal/websocket"
)

type MedicineHandler struct {
	medicineStore *store.MedicineStore
	kitStore      *store.KitStore
	service       *schedule.Service
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewMedicineHandler(ms *store.MedicineStore, ks *store.KitStore, svc *schedule.Service, hub *websocket.Hub, logger *slog.Logger) *MedicineHandler {
	return &MedicineHandler{medicineStore: ms, kitStore: ks, service: svc, hub: hub, logger: logger}
}

func (h *MedicineHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type medicineRequest struct {
	KitID int64  `json:"kit_id"`
	Name  string `json:"name"`
	Form  string `json:"form"`
	Dose  string `json:"dose"`
	Notes string `json:"notes"`
}

func (h *MedicineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	kit, err := h.kitStore.GetByID(req.KitID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check kit"})
		return
	}
	if kit == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kit not found"})
		return
	}

	med, err := h.medicineStore.Create(req.KitID, req.Name, req.Form, req.Dose, req.Notes)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create medicine"})
		return
	}

	h.broadcast(websocket.NewMessage("medicine", "created", med.ID, nil))
	writeJSON(w, http.StatusCreated, med)
}

func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.medicineStore.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list medicines"})
		return
	}
	if medicines == nil {
		medicines = []model.Medicine{}
	}
	writeJSON(w, http.StatusOK, medicines)
}

func (h *MedicineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	med, err := h.medicineStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get medicine"})
		return
	}
	if med == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
		return
	}
	writeJSON(w, http.StatusOK, med)
}

func (h *MedicineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.medicineStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get medicine"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
		return
	}

	var req medicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.KitID == 0 {
		req.KitID = existing.KitID
	}

	med, err := h.medicineStore.Update(id, req.KitID, req.Name, req.Form, req.Dose, req.Notes)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update medicine"})
		return
	}

	h.broadcast(websocket.NewMessage("medicine", "updated", med.ID, nil))
	writeJSON(w, http.StatusOK, med)
}

// Delete removes the medicine, its stock entries, and every notification
// that references it.
func (h *MedicineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.medicineStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get medicine"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
		return
	}

	if err := h.service.CancelAllForMedicine(r.Context(), id); err != nil {
		h.logger.Error("cancel medicine notifications", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to cancel notifications"})
		return
	}

	if err := h.medicineStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete medicine"})
		return
	}

	h.broadcast(websocket.NewMessage("medicine", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type stockRequest struct {
	Quantity   float64    `json:"quantity"`
	Unit       string     `json:"unit"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

// CreateStock handles POST /api/medicines/{id}/stocks. A stock entry with
// an expiry date gets its warning series scheduled immediately.
func (h *MedicineHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	medicineID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	med, err := h.medicineStore.GetByID(medicineID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get medicine"})
		return
	}
	if med == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must not be negative"})
		return
	}

	stock, err := h.medicineStore.CreateStock(medicineID, req.Quantity, req.Unit, req.ExpiryDate)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create stock"})
		return
	}

	if stock.ExpiryDate != nil {
		if _, err := h.service.ScheduleMedicineExpiry(r.Context(), medicineID, stock.ID); err != nil {
			h.logger.Error("schedule expiry warnings", "medicine_id", medicineID, "stock_id", stock.ID, "error", err)
		}
	}

	h.broadcast(websocket.NewMessage("stock", "created", stock.ID, map[string]any{"medicine_id": medicineID}))
	writeJSON(w, http.StatusCreated, stock)
}

// ListStocks handles GET /api/medicines/{id}/stocks
func (h *MedicineHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	medicineID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	stocks, err := h.medicineStore.ListStocks(medicineID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list stocks"})
		return
	}
	if stocks == nil {
		stocks = []model.MedicineStock{}
	}
	writeJSON(w, http.StatusOK, stocks)
}

// UpdateStock handles PUT /api/medicines/{id}/stocks/{stockID}. Changing or
// clearing the expiry date rebuilds the warning series.
func (h *MedicineHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	medicineID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	stockID, err := parsePathInt64(r, "stockID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock id"})
		return
	}

	existing, err := h.medicineStore.GetStock(stockID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stock"})
		return
	}
	if existing == nil || existing.MedicineID != medicineID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock not found"})
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must not be negative"})
		return
	}

	stock, err := h.medicineStore.UpdateStock(stockID, req.Quantity, req.Unit, req.ExpiryDate)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update stock"})
		return
	}

	if stock.ExpiryDate != nil {
		if _, err := h.service.ScheduleMedicineExpiry(r.Context(), medicineID, stock.ID); err != nil {
			h.logger.Error("reschedule expiry warnings", "medicine_id", medicineID, "stock_id", stock.ID, "error", err)
		}
	} else if err := h.service.CancelMedicineNotifications(r.Context(), medicineID, stock.ID); err != nil {
		h.logger.Error("cancel expiry warnings", "medicine_id", medicineID, "stock_id", stock.ID, "error", err)
	}

	h.broadcast(websocket.NewMessage("stock", "updated", stock.ID, map[string]any{"medicine_id": medicineID}))
	writeJSON(w, http.StatusOK, stock)
}

// DeleteStock handles DELETE /api/medicines/{id}/stocks/{stockID}
func (h *MedicineHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	medicineID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	stockID, err := parsePathInt64(r, "stockID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock id"})
		return
	}

	existing, err := h.medicineStore.GetStock(stockID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stock"})
		return
	}
	if existing == nil || existing.MedicineID != medicineID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock not found"})
		return
	}

	if err := h.service.CancelMedicineNotifications(r.Context(), medicineID, stockID); err != nil {
		h.logger.Error("cancel expiry warnings", "medicine_id", medicineID, "stock_id", stockID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to cancel notifications"})
		return
	}

	if err := h.medicineStore.DeleteStock(stockID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete stock"})
		return
	}

	h.broadcast(websocket.NewMessage("stock", "deleted", stockID, map[string]any{"medicine_id": medicineID}))
	w.WriteHeader(http.StatusNoContent)
}
