package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcnich/App-UAT-Tool/internal/config"
	"github.com/jcnich/App-UAT-Tool/internal/database"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg, err := config.Load("does-not-exist.yaml")
	require.NoError(t, err)

	s, err := New(cfg, db)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func seedServerCatalog(t *testing.T, s *Server) (sectionID int64, itemIDs []int64) {
	t.Helper()
	sections, err := s.db.ListSections()
	require.NoError(t, err)
	sectionID = sections[0].ID
	for _, text := range []string{"app installs", "uses https"} {
		item, err := s.db.AddItem(sectionID, text)
		require.NoError(t, err)
		itemIDs = append(itemIDs, item.ID)
	}
	return sectionID, itemIDs
}

func TestChecklistEndpoint(t *testing.T) {
	s := newTestServer(t)
	seedServerCatalog(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/checklist", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]json.RawMessage](t, rec)
	var sections []struct {
		Name  string `json:"name"`
		Items []struct {
			Text string `json:"text"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body["sections"], &sections))
	require.Len(t, sections, 1)
	assert.Len(t, sections[0].Items, 2)
}

func TestCreateReviewEndpoint(t *testing.T) {
	s := newTestServer(t)
	sectionID, _ := seedServerCatalog(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/reviews", map[string]any{
		"app_name":    "Acme",
		"app_id":      "acme-1",
		"date":        "2025-03-14",
		"section_ids": []int64{sectionID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	review := decode[database.Review](t, rec)
	assert.Equal(t, database.StatusInProgress, review.Status)

	// Missing metadata maps to 400.
	rec = doJSON(t, s, http.MethodPost, "/api/reviews", map[string]any{
		"app_id":      "acme-1",
		"section_ids": []int64{sectionID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordResultEndpoint(t *testing.T) {
	s := newTestServer(t)
	sectionID, itemIDs := seedServerCatalog(t, s)
	review, err := s.db.CreateReview(database.ReviewMeta{AppName: "Acme", AppID: "a-1", Date: "2025-01-01"}, []int64{sectionID})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/reviews/%d/results", review.ID), map[string]any{
		"checklist_id": itemIDs[0],
		"result":       "Pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "1/2 (50%)", body["progress"])

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/reviews/%d/results", review.ID), map[string]any{
		"checklist_id": itemIDs[0],
		"result":       "Sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewDetailEndpoint(t *testing.T) {
	s := newTestServer(t)
	sectionID, _ := seedServerCatalog(t, s)
	review, err := s.db.CreateReview(database.ReviewMeta{AppName: "Acme", AppID: "a-1", Date: "2025-01-01"}, []int64{sectionID})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/reviews/%d", review.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]json.RawMessage](t, rec)
	assert.JSONEq(t, `"In Review"`, string(body["status_display"]))

	rec = doJSON(t, s, http.MethodGet, "/api/reviews/99999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t)
	sectionID, _ := seedServerCatalog(t, s)
	review, err := s.db.CreateReview(database.ReviewMeta{AppName: "Acme", AppID: "a-1", Date: "2025-01-01"}, []int64{sectionID})
	require.NoError(t, err)

	for _, step := range []struct {
		sub    string
		status string
	}{
		{"finish", database.StatusCompleted},
		{"approve", database.StatusApproved},
		{"approve", database.StatusApproved}, // idempotent
		{"reject", database.StatusRejected},
	} {
		rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/reviews/%d/%s", review.ID, step.sub), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[database.Review](t, rec)
		assert.Equal(t, step.status, got.Status)
	}

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/reviews/%d/archive", review.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[database.Review](t, rec)
	assert.True(t, got.Archived)
	assert.Equal(t, database.StatusRejected, got.Status)
}

func TestBulkDeleteEndpointGuardsActive(t *testing.T) {
	s := newTestServer(t)
	sectionID, _ := seedServerCatalog(t, s)
	meta := database.ReviewMeta{AppName: "Acme", AppID: "a-1", Date: "2025-01-01"}
	a, err := s.db.CreateReview(meta, []int64{sectionID})
	require.NoError(t, err)
	b, err := s.db.CreateReview(meta, []int64{sectionID})
	require.NoError(t, err)
	require.NoError(t, s.db.SetArchived(a.ID, true))

	rec := doJSON(t, s, http.MethodPost, "/api/reviews/bulk-delete", map[string]any{
		"ids": []int64{a.ID, b.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]int](t, rec)
	assert.Equal(t, 1, body["deleted"])

	_, err = s.db.GetReview(b.ID)
	assert.NoError(t, err)
}

func TestDeleteLastSectionConflict(t *testing.T) {
	s := newTestServer(t)
	sections, err := s.db.ListSections()
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/sections/%d", sections[0].ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRereviewEndpoint(t *testing.T) {
	s := newTestServer(t)
	sectionID, itemIDs := seedServerCatalog(t, s)
	src, err := s.db.CreateReview(database.ReviewMeta{AppName: "Acme", AppID: "a-1", Date: "2025-01-01"}, []int64{sectionID})
	require.NoError(t, err)
	pass := database.ResultPass
	require.NoError(t, s.db.RecordResult(src.ID, itemIDs[0], &pass, nil))

	rec := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/reviews/%d/rereview", src.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prefill := decode[database.RereviewPrefill](t, rec)
	assert.Equal(t, "Acme", prefill.Meta.AppName)

	rec = doJSON(t, s, http.MethodPost, "/api/reviews", map[string]any{
		"app_name":    prefill.Meta.AppName,
		"app_id":      prefill.Meta.AppID,
		"date":        "2025-06-01",
		"section_ids": prefill.SectionIDs,
		"from_id":     src.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	next := decode[database.Review](t, rec)

	sections, err := s.db.ResolveReview(next.ID)
	require.NoError(t, err)
	require.NotNil(t, sections[0].Items[0].Result)
	assert.Equal(t, database.ResultPass, *sections[0].Items[0].Result)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	seedServerCatalog(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]int](t, rec)
	assert.Equal(t, 1, body["section_count"])
	assert.Equal(t, 2, body["item_count"])

	rec = doJSON(t, s, http.MethodPost, "/api/stats", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestImportEndpointRejectsBadHeader(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodPost, "/api/checklist/import", &buf)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
