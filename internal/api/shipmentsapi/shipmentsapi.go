package shipmentsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BearBump/PostiBox/internal/models"
	"github.com/go-chi/chi/v5"
)

type Service interface {
	GetCurrent(ctx context.Context, account string) (*models.Snapshot, error)
}

type HistoryLister interface {
	ListHistory(ctx context.Context, account string, limit, offset int) ([]*models.HistoryEntry, error)
}

type ShipmentsAPI struct {
	svc     Service
	history HistoryLister
}

func New(svc Service, history HistoryLister) *ShipmentsAPI {
	return &ShipmentsAPI{svc: svc, history: history}
}

func (a *ShipmentsAPI) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/accounts/{account}/shipments", a.getShipments)
	r.Get("/v1/accounts/{account}/snapshot", a.getSnapshot)
	r.Get("/v1/accounts/{account}/history", a.getHistory)
	return r
}

func (a *ShipmentsAPI) getShipments(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	snap, err := a.svc.GetCurrent(r.Context(), account)
	if err != nil {
		slog.Error("get shipments", "account", account, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for account"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":   snap.Account,
		"freshness": snap.Freshness,
		"packages":  snap.Packages,
	})
}

func (a *ShipmentsAPI) getSnapshot(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	snap, err := a.svc.GetCurrent(r.Context(), account)
	if err != nil {
		slog.Error("get snapshot", "account", account, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for account"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":           snap.Account,
		"freshness":         snap.Freshness,
		"undelivered_count": snap.UndeliveredCount,
		"delivered_count":   snap.DeliveredCount,
		"fetched_at":        snap.FetchedAt,
	})
}

func (a *ShipmentsAPI) getHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history not available"})
		return
	}
	account := chi.URLParam(r, "account")
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	entries, err := a.history.ListHistory(r.Context(), account, limit, offset)
	if err != nil {
		slog.Error("list history", "account", account, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"history": entries,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
