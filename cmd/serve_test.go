package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealscout-cli/internal/model"
	"github.com/sells-group/dealscout-cli/internal/store"
	"github.com/sells-group/dealscout-cli/internal/zoning"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedRun(t *testing.T, st store.Store) string {
	t.Helper()
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "listings.csv", "zoning.geojson")
	require.NoError(t, err)

	deals := []model.EnrichedParcel{
		{
			ParcelID: "p1", Address: "2622 S Cochran Ave", Price: 400000, LotSqft: 5000,
			RawZone: "R1-1", BaseZone: "R1", Tier: zoning.TierExact,
			SqftPerUnit: 5000, MaxUnits: 4, OverrideApplied: true, PricePerUnit: 100000,
		},
		{
			ParcelID: "p2", Address: "123 Main St", Price: 900000, LotSqft: 6000,
			RawZone: "C2-1", BaseZone: "C2", Tier: zoning.TierExact,
			SqftPerUnit: 400, MaxUnits: 15, PricePerUnit: 60000,
		},
	}
	require.NoError(t, st.InsertDeals(ctx, run.ID, deals))
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.NewBatchSummary()))
	return run.ID
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newTestStore(t))

	rec := doRequest(t, router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServeListRuns(t *testing.T) {
	st := newTestStore(t)
	runID := seedRun(t, st)
	router := newRouter(st)

	rec := doRequest(t, router, http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, store.RunStatusComplete, runs[0].Status)
}

func TestServeListRunsEmpty(t *testing.T) {
	router := newRouter(newTestStore(t))

	rec := doRequest(t, router, http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestServeGetRun(t *testing.T) {
	st := newTestStore(t)
	runID := seedRun(t, st)
	router := newRouter(st)

	rec := doRequest(t, router, http.MethodGet, "/runs/"+runID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "listings.csv")

	rec = doRequest(t, router, http.MethodGet, "/runs/missing-id")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeRunDeals(t *testing.T) {
	st := newTestStore(t)
	runID := seedRun(t, st)
	router := newRouter(st)

	rec := doRequest(t, router, http.MethodGet, "/runs/"+runID+"/deals")
	require.Equal(t, http.StatusOK, rec.Code)

	var deals []model.EnrichedParcel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deals))
	require.Len(t, deals, 2)
	// Cheapest per unit first.
	assert.Equal(t, "p2", deals[0].ParcelID)
}

func TestServeRunDealsFilters(t *testing.T) {
	st := newTestStore(t)
	runID := seedRun(t, st)
	router := newRouter(st)

	rec := doRequest(t, router, http.MethodGet, "/runs/"+runID+"/deals?max_ppu=60000")
	require.Equal(t, http.StatusOK, rec.Code)

	var deals []model.EnrichedParcel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deals))
	require.Len(t, deals, 1)
	assert.Equal(t, "p2", deals[0].ParcelID)

	rec = doRequest(t, router, http.MethodGet, "/runs/"+runID+"/deals?zones=R1")
	require.Equal(t, http.StatusOK, rec.Code)
	deals = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deals))
	require.Len(t, deals, 1)
	assert.Equal(t, "p1", deals[0].ParcelID)

	rec = doRequest(t, router, http.MethodGet, "/runs/"+runID+"/deals?max_ppu=not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
