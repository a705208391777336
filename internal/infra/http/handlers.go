package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/asset-subs/internal/domain/subscriptions"
	"github.com/Spok95/asset-subs/internal/report"
	"github.com/Spok95/asset-subs/internal/workflow"
)

const dateLayout = "2006-01-02"

type handlers struct {
	deps Deps
}

type subscriptionDTO struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	Party     string  `json:"party"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
	State     string  `json:"state"`
}

type lineDTO struct {
	ID                  int64           `json:"id"`
	SubscriptionID      int64           `json:"subscription_id"`
	ServiceID           int64           `json:"service_id"`
	AssetLotID          *int64          `json:"asset_lot_id"`
	StartDate           string          `json:"start_date"`
	EndDate             *string         `json:"end_date"`
	Recurrence          string          `json:"recurrence,omitempty"`
	NextConsumptionDate *string         `json:"next_consumption_date"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
}

func fmtDate(t time.Time) string { return t.Format(dateLayout) }

func fmtDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func subDTO(s *subscriptions.Subscription) subscriptionDTO {
	return subscriptionDTO{
		ID: s.ID, Code: s.Code, Party: s.Party,
		StartDate: fmtDate(s.StartDate), EndDate: fmtDatePtr(s.EndDate),
		State: string(s.State),
	}
}

func toLineDTO(l *subscriptions.Line) lineDTO {
	return lineDTO{
		ID: l.ID, SubscriptionID: l.SubscriptionID, ServiceID: l.ServiceID,
		AssetLotID: l.AssetLotID,
		StartDate:  fmtDate(l.StartDate), EndDate: fmtDatePtr(l.EndDate),
		Recurrence:          l.Recurrence,
		NextConsumptionDate: fmtDatePtr(l.NextConsumptionDate),
		Quantity:            l.Quantity, UnitPrice: l.UnitPrice,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	var overlap *subscriptions.OverlapError
	var dateErr *workflow.DateError
	switch {
	case errors.As(err, &overlap):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "overlap_conflict", "line1": overlap.Line1, "line2": overlap.Line2,
		})
	case errors.As(err, &dateErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "date_constraint", "detail": dateErr.Error(),
		})
	case errors.Is(err, workflow.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, workflow.ErrNotDraft),
		errors.Is(err, workflow.ErrNotRunning),
		errors.Is(err, workflow.ErrAlreadyCanceled),
		errors.Is(err, workflow.ErrAssetLotRequired),
		errors.Is(err, workflow.ErrLotNotInPool):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *handlers) createSubscription(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code      string  `json:"code"`
		Party     string  `json:"party"`
		StartDate string  `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_start_date"})
		return
	}
	end, err := parseDatePtr(in.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_end_date"})
		return
	}
	sub, err := h.deps.Subs.Create(r.Context(), in.Code, in.Party, start, end)
	if err != nil {
		h.deps.Log.Error("create subscription", "err", err)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subDTO(sub))
}

func (h *handlers) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.deps.Subs.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]subscriptionDTO, 0, len(subs))
	for i := range subs {
		out = append(out, subDTO(&subs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	sub, err := h.deps.Subs.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if sub == nil {
		writeErr(w, workflow.ErrNotFound)
		return
	}
	lines, err := h.deps.Subs.LinesBySubscription(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	lineDTOs := make([]lineDTO, 0, len(lines))
	for i := range lines {
		lineDTOs = append(lineDTOs, toLineDTO(&lines[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscription": subDTO(sub),
		"lines":        lineDTOs,
	})
}

func (h *handlers) runSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	if err := h.deps.Flow.Run(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "running"})
}

func (h *handlers) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	if err := h.deps.Flow.Cancel(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "canceled"})
}

func (h *handlers) consumeSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	var in struct {
		AsOf string `json:"as_of"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	asOf, err := time.Parse(dateLayout, in.AsOf)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_as_of"})
		return
	}
	n, err := h.deps.Flow.Consume(r.Context(), id, asOf)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"consumed": n})
}

func (h *handlers) createLine(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SubscriptionID int64           `json:"subscription_id"`
		ServiceID      int64           `json:"service_id"`
		AssetLotID     *int64          `json:"asset_lot_id"`
		StartDate      *string         `json:"start_date"`
		EndDate        *string         `json:"end_date"`
		Recurrence     string          `json:"recurrence"`
		Quantity       decimal.Decimal `json:"quantity"`
		UnitPrice      decimal.Decimal `json:"unit_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	start, err := parseDatePtr(in.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_start_date"})
		return
	}
	end, err := parseDatePtr(in.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_end_date"})
		return
	}
	input := workflow.LineInput{
		SubscriptionID: in.SubscriptionID,
		ServiceID:      in.ServiceID,
		AssetLotID:     in.AssetLotID,
		EndDate:        end,
		Recurrence:     in.Recurrence,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
	}
	if start != nil {
		input.StartDate = *start
	}
	l, err := h.deps.Flow.CreateLine(r.Context(), input)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineDTO(l))
}

func (h *handlers) getLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	l, err := h.deps.Subs.GetLine(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if l == nil {
		writeErr(w, workflow.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(l))
}

func (h *handlers) updateLineDates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	var in struct {
		StartDate string  `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_start_date"})
		return
	}
	end, err := parseDatePtr(in.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_end_date"})
		return
	}
	l, err := h.deps.Flow.UpdateLineDates(r.Context(), id, start, end)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(l))
}

func (h *handlers) setLineLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	var in struct {
		AssetLotID *int64 `json:"asset_lot_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	l, err := h.deps.Flow.SetLineAssetLot(r.Context(), id, in.AssetLotID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(l))
}

func (h *handlers) listLineConsumptions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	recs, err := h.deps.Cons.ListByLine(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	type recDTO struct {
		ID       int64           `json:"id"`
		Date     string          `json:"date"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	out := make([]recDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recDTO{ID: rec.ID, Date: fmtDate(rec.Date), Quantity: rec.Quantity})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) availableLots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	ids, err := h.deps.Catalog.AvailableLotIDs(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(ids))
	for _, lotID := range ids {
		lot, err := h.deps.Lots.GetByID(r.Context(), lotID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if lot == nil {
			continue
		}
		out = append(out, map[string]any{"id": lot.ID, "code": lot.Code, "product": lot.Product})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) reservationsReport(w http.ResponseWriter, r *http.Request) {
	lines, err := h.deps.Subs.ListLinesWithLots(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	rows := make([]report.ReservationRow, 0, len(lines))
	for i := range lines {
		l := &lines[i]
		row := report.ReservationRow{
			LineID:          l.ID,
			StartDate:       l.StartDate,
			EndDate:         l.EndDate,
			NextConsumption: l.NextConsumptionDate,
		}
		if sub, err := h.deps.Subs.Get(r.Context(), l.SubscriptionID); err == nil && sub != nil {
			row.Subscription = sub.Code
		}
		if svc, err := h.deps.Catalog.GetByID(r.Context(), l.ServiceID); err == nil && svc != nil {
			row.Service = svc.Code
		}
		if l.AssetLotID != nil {
			if lot, err := h.deps.Lots.GetByID(r.Context(), *l.AssetLotID); err == nil && lot != nil {
				row.Lot = lot.Code
			}
		}
		rows = append(rows, row)
	}

	buf, err := report.Reservations(rows)
	if err != nil {
		h.deps.Log.Error("reservations report", "err", err)
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
