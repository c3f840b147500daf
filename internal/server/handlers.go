package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jcnich/App-UAT-Tool/internal/database"
	"github.com/jcnich/App-UAT-Tool/internal/importer"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDBError maps the database error taxonomy onto HTTP statuses.
func writeDBError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrConstraint):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Checklist catalog ---

type sectionWithItems struct {
	database.Section
	Items []database.Item `json:"items"`
}

// handleAPIChecklist returns the whole catalog grouped for the editor.
func (s *Server) handleAPIChecklist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sections, err := s.db.ListSections()
	if err != nil {
		writeDBError(w, err)
		return
	}
	items, err := s.db.ListItems()
	if err != nil {
		writeDBError(w, err)
		return
	}

	grouped := make([]sectionWithItems, 0, len(sections))
	for _, sec := range sections {
		g := sectionWithItems{Section: sec, Items: []database.Item{}}
		for _, it := range items {
			if it.SectionID == sec.ID {
				g.Items = append(g.Items, it)
			}
		}
		grouped = append(grouped, g)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": grouped})
}

func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB limit
		writeError(w, http.StatusBadRequest, "file too large or invalid form data")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	rows, err := importer.ParseCSV(file)
	if err != nil {
		writeDBError(w, err)
		return
	}
	result, err := s.db.ImportItems(rows)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAPISections handles /api/sections (collection)
func (s *Server) handleAPISections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sec, err := s.db.AddSection(req.Name)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

// handleAPISection handles /api/sections/{id} and its sub-routes.
func (s *Server) handleAPISection(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/sections/")
	if idStr == "" {
		writeError(w, http.StatusBadRequest, "missing section id")
		return
	}
	parts := strings.SplitN(idStr, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid section id")
		return
	}

	if len(parts) > 1 {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch parts[1] {
		case "move":
			s.handleSectionMove(w, r, id)
		case "items":
			s.handleSectionAddItem(w, r, id)
		case "paste":
			s.handleSectionPaste(w, r, id)
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		sec, err := s.db.GetSection(id)
		if err != nil {
			writeDBError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)

	case http.MethodPut:
		var req struct {
			Name      *string `json:"name"`
			IsDefault *bool   `json:"is_default"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.Name != nil {
			if err := s.db.RenameSection(id, *req.Name); err != nil {
				writeDBError(w, err)
				return
			}
		}
		if req.IsDefault != nil {
			if err := s.db.SetSectionDefault(id, *req.IsDefault); err != nil {
				writeDBError(w, err)
				return
			}
		}
		sec, err := s.db.GetSection(id)
		if err != nil {
			writeDBError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)

	case http.MethodDelete:
		if err := s.db.DeleteSection(id); err != nil {
			writeDBError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSectionMove(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.db.MoveSection(id, req.Direction); err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

func (s *Server) handleSectionAddItem(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	item, err := s.db.AddItem(id, req.Text)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleSectionPaste(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	added, err := s.db.PasteItems(id, req.Text)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// --- Items ---

func (s *Server) handleAPIItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/items/")
	parts := strings.SplitN(idStr, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if len(parts) > 1 && parts[1] == "move" && r.Method == http.MethodPost {
		var req struct {
			Direction string `json:"direction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if err := s.db.MoveItem(id, req.Direction); err != nil {
			writeDBError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
		return
	}

	http.NotFound(w, r)
}

func (s *Server) handleAPIItemsReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.db.ReorderItems(req.IDs); err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

func (s *Server) handleAPIItemsDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	removed, err := s.db.RemoveItems(req.IDs)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// --- Reviews ---

type createReviewRequest struct {
	database.ReviewMeta
	SectionIDs []int64 `json:"section_ids"`
	FromID     int64   `json:"from_id,omitempty"`
}

// handleAPIReviews handles /api/reviews (collection)
func (s *Server) handleAPIReviews(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		archived := r.URL.Query().Get("archived") == "1"
		reviews, err := s.db.ListReviews(archived)
		if err != nil {
			writeDBError(w, err)
			return
		}
		if reviews == nil {
			reviews = []database.ReviewSummary{}
		}
		writeJSON(w, http.StatusOK, reviews)

	case http.MethodPost:
		var req createReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}

		var review *database.Review
		var err error
		if req.FromID > 0 {
			review, err = s.db.CreateFrom(req.FromID, req.ReviewMeta, req.SectionIDs)
		} else {
			review, err = s.db.CreateReview(req.ReviewMeta, req.SectionIDs)
		}
		if err != nil {
			writeDBError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, review)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAPIReview handles /api/reviews/{id} and its sub-routes.
func (s *Server) handleAPIReview(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
	if idStr == "" {
		writeError(w, http.StatusBadRequest, "missing review id")
		return
	}
	parts := strings.SplitN(idStr, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	if len(parts) > 1 {
		s.handleReviewSubroute(w, r, id, parts[1])
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleReviewDetail(w, r, id)
}

func (s *Server) handleReviewDetail(w http.ResponseWriter, r *http.Request, id int64) {
	review, err := s.db.GetReview(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	sections, err := s.db.ResolveReview(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	if sections == nil {
		sections = []database.ResolvedSection{}
	}
	scope, err := s.db.GetSectionScope(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	filled, total, err := s.db.ResultProgress(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"review":         review,
		"status_display": database.StatusDisplay(review.Status),
		"scope":          scope,
		"sections":       sections,
		"filled":         filled,
		"total":          total,
		"progress":       database.FormatProgress(filled, total),
	})
}

func (s *Server) handleReviewSubroute(w http.ResponseWriter, r *http.Request, id int64, sub string) {
	switch sub {
	case "pdf":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		data, filename, err := s.reportGen.BuildPDF(id)
		if err != nil {
			writeDBError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Write(data)

	case "rereview":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		prefill, err := s.db.StartRereview(id)
		if err != nil {
			writeDBError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prefill)

	case "results":
		s.handleRecordResult(w, r, id)

	case "finish":
		s.handleStatusChange(w, r, id, s.db.Finish)
	case "approve":
		s.handleStatusChange(w, r, id, s.db.Approve)
	case "reject":
		s.handleStatusChange(w, r, id, s.db.Reject)
	case "archive":
		s.handleArchiveChange(w, r, id, true)
	case "unarchive":
		s.handleArchiveChange(w, r, id, false)

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ChecklistID int64   `json:"checklist_id"`
		Result      *string `json:"result"`
		Attachment  *string `json:"attachment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ChecklistID == 0 {
		writeError(w, http.StatusBadRequest, "checklist_id is required")
		return
	}

	if err := s.db.RecordResult(id, req.ChecklistID, req.Result, req.Attachment); err != nil {
		writeDBError(w, err)
		return
	}

	filled, total, err := s.db.ResultProgress(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	s.hub.Broadcast(id, ProgressEvent{
		ReviewID:    id,
		ChecklistID: req.ChecklistID,
		Result:      req.Result,
		Filled:      filled,
		Total:       total,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"filled":   filled,
		"total":    total,
		"progress": database.FormatProgress(filled, total),
	})
}

func (s *Server) handleStatusChange(w http.ResponseWriter, r *http.Request, id int64, change func(int64) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := change(id); err != nil {
		writeDBError(w, err)
		return
	}
	review, err := s.db.GetReview(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleArchiveChange(w http.ResponseWriter, r *http.Request, id int64, archived bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.db.SetArchived(id, archived); err != nil {
		writeDBError(w, err)
		return
	}
	review, err := s.db.GetReview(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// --- Bulk operations ---

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request, op func([]int64) (int, error), key string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	n, err := op(req.IDs)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{key: n})
}

func (s *Server) handleAPIBulkArchive(w http.ResponseWriter, r *http.Request) {
	s.handleBulk(w, r, s.db.BulkArchive, "archived")
}

func (s *Server) handleAPIBulkUnarchive(w http.ResponseWriter, r *http.Request) {
	s.handleBulk(w, r, s.db.BulkUnarchive, "unarchived")
}

func (s *Server) handleAPIBulkDelete(w http.ResponseWriter, r *http.Request) {
	s.handleBulk(w, r, s.db.BulkDelete, "deleted")
}

// --- Stats ---

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
