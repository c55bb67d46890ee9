package shipmentsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/PostiBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	snap *models.Snapshot
	err  error
}

func (s *fakeService) GetCurrent(ctx context.Context, account string) (*models.Snapshot, error) {
	return s.snap, s.err
}

type fakeHistory struct {
	entries []*models.HistoryEntry
	err     error

	account string
	limit   int
	offset  int
}

func (h *fakeHistory) ListHistory(ctx context.Context, account string, limit, offset int) ([]*models.HistoryEntry, error) {
	h.account, h.limit, h.offset = account, limit, offset
	return h.entries, h.err
}

func doGet(t *testing.T, api *ShipmentsAPI, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestShipmentsAPI_Healthz(t *testing.T) {
	api := New(&fakeService{}, nil)
	rec, body := doGet(t, api, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}

func TestShipmentsAPI_GetShipments(t *testing.T) {
	fresh := "2026-08-26T10:00:00Z"
	svc := &fakeService{snap: &models.Snapshot{
		Account:   "matti",
		Freshness: &fresh,
		Packages: []models.Package{
			{ShipmentNumber: "JJFI1", Status: models.StatusInTransport, RawStatus: "IN_TRANSPORT"},
		},
		UndeliveredCount: 1,
		FetchedAt:        time.Now().UTC(),
	}}
	api := New(svc, nil)

	rec, body := doGet(t, api, "/v1/accounts/matti/shipments")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "matti", body["account"])
	require.Equal(t, fresh, body["freshness"])
	require.Len(t, body["packages"], 1)
}

func TestShipmentsAPI_GetShipments_NotFound(t *testing.T) {
	api := New(&fakeService{}, nil)
	rec, body := doGet(t, api, "/v1/accounts/nobody/shipments")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, body["error"], "no snapshot")
}

func TestShipmentsAPI_GetShipments_ServiceError(t *testing.T) {
	api := New(&fakeService{err: errors.New("pg down")}, nil)
	rec, body := doGet(t, api, "/v1/accounts/matti/shipments")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal error", body["error"])
}

func TestShipmentsAPI_GetSnapshot(t *testing.T) {
	svc := &fakeService{snap: &models.Snapshot{
		Account:          "matti",
		UndeliveredCount: 2,
		DeliveredCount:   1,
		FetchedAt:        time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
	}}
	api := New(svc, nil)

	rec, body := doGet(t, api, "/v1/accounts/matti/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), body["undelivered_count"])
	require.Equal(t, float64(1), body["delivered_count"])
	require.Nil(t, body["freshness"])
}

func TestShipmentsAPI_GetHistory(t *testing.T) {
	h := &fakeHistory{entries: []*models.HistoryEntry{
		{ID: 1, Account: "matti", ShipmentNumber: "JJFI1", StatusRaw: "DELIVERED"},
	}}
	api := New(&fakeService{}, h)

	rec, body := doGet(t, api, "/v1/accounts/matti/history?limit=10&offset=5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "matti", h.account)
	require.Equal(t, 10, h.limit)
	require.Equal(t, 5, h.offset)
	require.Len(t, body["history"], 1)
}

func TestShipmentsAPI_GetHistory_DefaultsAndEmpty(t *testing.T) {
	h := &fakeHistory{}
	api := New(&fakeService{}, h)

	rec, body := doGet(t, api, "/v1/accounts/matti/history?limit=bogus")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 100, h.limit)
	require.Zero(t, h.offset)
	// nil slice is rendered as an empty list, not null.
	require.NotNil(t, body["history"])
	require.Len(t, body["history"], 0)
}

func TestShipmentsAPI_GetHistory_Unavailable(t *testing.T) {
	api := New(&fakeService{}, nil)
	rec, _ := doGet(t, api, "/v1/accounts/matti/history")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
