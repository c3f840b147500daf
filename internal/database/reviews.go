package database

import (
	"database/sql"
	"fmt"
	"strings"
)

func validateMeta(meta ReviewMeta) error {
	if strings.TrimSpace(meta.AppName) == "" ||
		strings.TrimSpace(meta.AppID) == "" ||
		strings.TrimSpace(meta.Date) == "" {
		return fmt.Errorf("%w: app name, app id, and date are required", ErrValidation)
	}
	return nil
}

// CreateReview starts a review pinned to the given sections. One null
// result row is created per item currently visible under that selection;
// later catalog edits to other sections never change this review's row set.
func (db *DB) CreateReview(meta ReviewMeta, sectionIDs []int64) (*Review, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	r, err := createReviewTx(tx, meta, sectionIDs)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

func createReviewTx(tx *sql.Tx, meta ReviewMeta, sectionIDs []int64) (*Review, error) {
	if err := validateMeta(meta); err != nil {
		return nil, err
	}
	if len(sectionIDs) == 0 {
		return nil, fmt.Errorf("%w: select at least one section", ErrValidation)
	}
	seen := make(map[int64]struct{}, len(sectionIDs))
	deduped := make([]int64, 0, len(sectionIDs))
	for _, sid := range sectionIDs {
		if _, ok := seen[sid]; ok {
			continue
		}
		seen[sid] = struct{}{}
		deduped = append(deduped, sid)
	}
	sectionIDs = deduped

	r := &Review{
		AppName:       strings.TrimSpace(meta.AppName),
		AppID:         strings.TrimSpace(meta.AppID),
		Date:          strings.TrimSpace(meta.Date),
		AppOwnerEmail: strings.TrimSpace(meta.AppOwnerEmail),
		OverallNotes:  strings.TrimSpace(meta.OverallNotes),
		Status:        StatusInProgress,
	}
	res, err := tx.Exec(
		`INSERT INTO reviews (app_name, app_id, review_date, app_owner_email, overall_notes, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.AppName, r.AppID, r.Date, r.AppOwnerEmail, r.OverallNotes, r.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	r.ID, _ = res.LastInsertId()

	selStmt, err := tx.Prepare(`INSERT INTO review_sections (review_id, section_id) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	defer selStmt.Close()
	for _, sid := range sectionIDs {
		if _, err := selStmt.Exec(r.ID, sid); err != nil {
			return nil, fmt.Errorf("%w: section %d", ErrNotFound, sid)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sectionIDs)), ",")
	args := make([]any, len(sectionIDs))
	for i, sid := range sectionIDs {
		args[i] = sid
	}
	rows, err := tx.Query(
		`SELECT id FROM checklist_items WHERE section_id IN (`+placeholders+`) ORDER BY sort_order, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve visible items: %w", err)
	}
	var itemIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		itemIDs = append(itemIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resStmt, err := tx.Prepare(`INSERT OR IGNORE INTO review_results (review_id, checklist_id) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	defer resStmt.Close()
	for _, itemID := range itemIDs {
		if _, err := resStmt.Exec(r.ID, itemID); err != nil {
			return nil, fmt.Errorf("insert result slot: %w", err)
		}
	}
	return r, nil
}

func (db *DB) GetReview(id int64) (*Review, error) {
	r := &Review{}
	err := db.QueryRow(
		`SELECT id, app_name, app_id, review_date, app_owner_email, overall_notes, status, archived, created_at
		 FROM reviews WHERE id = ?`, id,
	).Scan(&r.ID, &r.AppName, &r.AppID, &r.Date, &r.AppOwnerEmail, &r.OverallNotes, &r.Status, &r.Archived, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: review %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

// FormatProgress renders the filled/total fraction the worklist shows.
func FormatProgress(filled, total int) string {
	if total == 0 {
		return "—"
	}
	return fmt.Sprintf("%d/%d (%d%%)", filled, total, 100*filled/total)
}

// ListReviews returns the worklist for one archive tab, newest first.
// Total counts the review's own result rows, not the global catalog.
func (db *DB) ListReviews(archived bool) ([]ReviewSummary, error) {
	rows, err := db.Query(
		`SELECT r.id, r.app_name, r.app_id, r.review_date, r.status, r.archived, r.created_at,
		        (SELECT COUNT(*) FROM review_results rr WHERE rr.review_id = r.id AND rr.result IS NOT NULL) AS filled,
		        (SELECT COUNT(*) FROM review_results rr WHERE rr.review_id = r.id) AS total
		 FROM reviews r
		 WHERE r.archived = ?
		 ORDER BY r.created_at DESC, r.id DESC`, archived,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []ReviewSummary
	for rows.Next() {
		var rs ReviewSummary
		if err := rows.Scan(&rs.ID, &rs.AppName, &rs.AppID, &rs.Date, &rs.Status, &rs.Archived, &rs.CreatedAt, &rs.Filled, &rs.Total); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rs.StatusDisplay = StatusDisplay(rs.Status)
		rs.Progress = FormatProgress(rs.Filled, rs.Total)
		reviews = append(reviews, rs)
	}
	return reviews, rows.Err()
}

// RecordResult upserts one result slot. Result and attachment are
// independently settable: a nil field leaves the stored value alone, so an
// attachment-only write never clobbers an existing verdict and vice versa.
func (db *DB) RecordResult(reviewID, checklistID int64, result, attachment *string) error {
	if result == nil && attachment == nil {
		return nil
	}
	if result != nil && !ValidResult(*result) {
		return fmt.Errorf("%w: result must be one of Pass, Fail, Partial, NA", ErrValidation)
	}
	if _, err := db.GetReview(reviewID); err != nil {
		return err
	}
	var exists int
	if err := db.QueryRow(`SELECT 1 FROM checklist_items WHERE id = ?`, checklistID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: checklist item %d", ErrNotFound, checklistID)
		}
		return fmt.Errorf("check item: %w", err)
	}

	// A blank attachment clears the stored value (NULL), a nil one leaves it.
	var attVal any
	if attachment != nil {
		if trimmed := strings.TrimSpace(*attachment); trimmed != "" {
			attVal = trimmed
		}
	}

	var err error
	switch {
	case result != nil && attachment != nil:
		_, err = db.Exec(
			`INSERT INTO review_results (review_id, checklist_id, result, attachment) VALUES (?, ?, ?, ?)
			 ON CONFLICT(review_id, checklist_id) DO UPDATE SET result = excluded.result, attachment = excluded.attachment`,
			reviewID, checklistID, *result, attVal,
		)
	case result != nil:
		_, err = db.Exec(
			`INSERT INTO review_results (review_id, checklist_id, result) VALUES (?, ?, ?)
			 ON CONFLICT(review_id, checklist_id) DO UPDATE SET result = excluded.result`,
			reviewID, checklistID, *result,
		)
	default:
		_, err = db.Exec(
			`INSERT INTO review_results (review_id, checklist_id, attachment) VALUES (?, ?, ?)
			 ON CONFLICT(review_id, checklist_id) DO UPDATE SET attachment = excluded.attachment`,
			reviewID, checklistID, attVal,
		)
	}
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// ResultProgress returns the filled/total counts for one review.
func (db *DB) ResultProgress(reviewID int64) (filled, total int, err error) {
	err = db.QueryRow(
		`SELECT COUNT(*), COUNT(result) FROM review_results WHERE review_id = ?`, reviewID,
	).Scan(&total, &filled)
	if err != nil {
		return 0, 0, fmt.Errorf("result progress: %w", err)
	}
	return filled, total, nil
}

func (db *DB) setStatus(reviewID int64, status string) error {
	res, err := db.Exec(`UPDATE reviews SET status = ? WHERE id = ?`, status, reviewID)
	if err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
	}
	return nil
}

// Finish marks a review completed. There is deliberately no completeness
// check: a review can be finished with unfilled items.
func (db *DB) Finish(reviewID int64) error { return db.setStatus(reviewID, StatusCompleted) }

// Approve is accepted from any status and is idempotent.
func (db *DB) Approve(reviewID int64) error { return db.setStatus(reviewID, StatusApproved) }

// Reject is accepted from any status and is idempotent.
func (db *DB) Reject(reviewID int64) error { return db.setStatus(reviewID, StatusRejected) }

// SetArchived flips the archive flag, independent of status.
func (db *DB) SetArchived(reviewID int64, archived bool) error {
	res, err := db.Exec(`UPDATE reviews SET archived = ? WHERE id = ?`, archived, reviewID)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
	}
	return nil
}

func (db *DB) bulkSetArchived(ids []int64, archived bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, archived)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := db.Exec(`UPDATE reviews SET archived = ? WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk archive: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// BulkArchive archives all given reviews; unknown ids are skipped silently.
func (db *DB) BulkArchive(ids []int64) (int, error) { return db.bulkSetArchived(ids, true) }

// BulkUnarchive restores all given reviews to the active worklist.
func (db *DB) BulkUnarchive(ids []int64) (int, error) { return db.bulkSetArchived(ids, false) }

// BulkDelete permanently removes reviews, cascading their result and
// selection rows. Only archived reviews qualify: active ids are skipped,
// not errors. Returns the count actually deleted.
func (db *DB) BulkDelete(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := db.Exec(`DELETE FROM reviews WHERE id IN (`+placeholders+`) AND archived = 1`, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DashboardStats summarizes the catalog and worklist for the landing page.
type DashboardStats struct {
	SectionCount  int `json:"section_count"`
	ItemCount     int `json:"item_count"`
	ActiveCount   int `json:"active_count"`
	ArchivedCount int `json:"archived_count"`
}

func (db *DB) GetStats() (*DashboardStats, error) {
	stats := &DashboardStats{}
	if err := db.QueryRow(`SELECT COUNT(*) FROM checklist_sections`).Scan(&stats.SectionCount); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM checklist_items`).Scan(&stats.ItemCount); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM reviews WHERE archived = 0`).Scan(&stats.ActiveCount); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM reviews WHERE archived = 1`).Scan(&stats.ArchivedCount); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}
