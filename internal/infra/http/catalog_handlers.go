package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Spok95/asset-subs/internal/domain/schedule"
	"github.com/Spok95/asset-subs/internal/workflow"
)

func (h *handlers) createService(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code       string `json:"code"`
		Name       string `json:"name"`
		Recurrence string `json:"recurrence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	if in.Recurrence != "" {
		if _, err := schedule.Parse(in.Recurrence); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "bad_recurrence", "detail": err.Error(),
			})
			return
		}
	}
	svc, err := h.deps.Catalog.Create(r.Context(), in.Code, in.Name, in.Recurrence)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (h *handlers) listServices(w http.ResponseWriter, r *http.Request) {
	svcs, err := h.deps.Catalog.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svcs)
}

func (h *handlers) addServiceLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	var in struct {
		LotID int64 `json:"lot_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	lot, err := h.deps.Lots.GetByID(r.Context(), in.LotID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if lot == nil {
		writeErr(w, workflow.ErrNotFound)
		return
	}
	if err := h.deps.Catalog.AddLot(r.Context(), id, in.LotID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) removeServiceLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	lotID, err := strconv.ParseInt(r.PathValue("lot"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_lot_id"})
		return
	}
	if err := h.deps.Catalog.RemoveLot(r.Context(), id, lotID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listServiceLots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	ls, err := h.deps.Lots.ListByService(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

func (h *handlers) createLot(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code    string `json:"code"`
		Product string `json:"product"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	lot, err := h.deps.Lots.Create(r.Context(), in.Code, in.Product)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lot)
}
