package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/store"
	"github.com/FonTain1991/aidkit/internal/websocket"
)

type KitHandler struct {
	kitStore      *store.KitStore
	medicineStore *store.MedicineStore
	hub           *websocket.Hub
}

func NewKitHandler(ks *store.KitStore, ms *store.MedicineStore, hub *websocket.Hub) *KitHandler {
	return &KitHandler{kitStore: ks, medicineStore: ms, hub: hub}
}

func (h *KitHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type kitRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (h *KitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req kitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	kit, err := h.kitStore.Create(req.Name, req.Location)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create kit"})
		return
	}

	h.broadcast(websocket.NewMessage("kit", "created", kit.ID, nil))
	writeJSON(w, http.StatusCreated, kit)
}

func (h *KitHandler) List(w http.ResponseWriter, r *http.Request) {
	kits, err := h.kitStore.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list kits"})
		return
	}
	if kits == nil {
		kits = []model.Kit{}
	}
	writeJSON(w, http.StatusOK, kits)
}

func (h *KitHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	kit, err := h.kitStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get kit"})
		return
	}
	if kit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "kit not found"})
		return
	}
	writeJSON(w, http.StatusOK, kit)
}

// ListMedicines handles GET /api/kits/{id}/medicines
func (h *KitHandler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	medicines, err := h.medicineStore.ListByKit(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list medicines"})
		return
	}
	if medicines == nil {
		medicines = []model.Medicine{}
	}
	writeJSON(w, http.StatusOK, medicines)
}

func (h *KitHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.kitStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get kit"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "kit not found"})
		return
	}

	var req kitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	kit, err := h.kitStore.Update(id, req.Name, req.Location)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update kit"})
		return
	}

	h.broadcast(websocket.NewMessage("kit", "updated", kit.ID, nil))
	writeJSON(w, http.StatusOK, kit)
}

func (h *KitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	medicines, err := h.medicineStore.ListByKit(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check kit contents"})
		return
	}
	if len(medicines) > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "kit still contains medicines"})
		return
	}

	if err := h.kitStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete kit"})
		return
	}

	h.broadcast(websocket.NewMessage("kit", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
