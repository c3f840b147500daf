package database

import (
	"fmt"
)

// RereviewPrefill seeds the new-review form from a prior review: its
// metadata plus the section selection to pre-check. Status and archive
// state are deliberately not carried.
type RereviewPrefill struct {
	SourceID   int64      `json:"source_id"`
	Meta       ReviewMeta `json:"meta"`
	SectionIDs []int64    `json:"section_ids"`
}

// StartRereview reads the source review for pre-population. A legacy
// all-sections source falls back to the catalog's default selection.
func (db *DB) StartRereview(sourceID int64) (*RereviewPrefill, error) {
	r, err := db.GetReview(sourceID)
	if err != nil {
		return nil, err
	}

	scope, err := db.GetSectionScope(sourceID)
	if err != nil {
		return nil, err
	}
	sectionIDs := scope.SectionIDs
	if scope.All {
		sectionIDs, err = db.DefaultSelection()
		if err != nil {
			return nil, err
		}
	}

	return &RereviewPrefill{
		SourceID: sourceID,
		Meta: ReviewMeta{
			AppName:       r.AppName,
			AppID:         r.AppID,
			Date:          r.Date,
			AppOwnerEmail: r.AppOwnerEmail,
			OverallNotes:  r.OverallNotes,
		},
		SectionIDs: sectionIDs,
	}, nil
}

// CreateFrom creates a new review with the given metadata and section
// selection, then carries forward the source's results for every checklist
// item visible in both reviews. Items unique to the new selection stay
// null; results for items dropped from the selection stay on the source.
// The copy is a point-in-time snapshot, not a live link.
func (db *DB) CreateFrom(sourceID int64, meta ReviewMeta, sectionIDs []int64) (*Review, error) {
	if _, err := db.GetReview(sourceID); err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	r, err := createReviewTx(tx, meta, sectionIDs)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(
		`SELECT checklist_id, result, attachment FROM review_results WHERE review_id = ?`, sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("read source results: %w", err)
	}
	type carried struct {
		checklistID int64
		result      *string
		attachment  *string
	}
	var src []carried
	for rows.Next() {
		var c carried
		if err := rows.Scan(&c.checklistID, &c.result, &c.attachment); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan source result: %w", err)
		}
		src = append(src, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Update-only: rows exist solely for items visible under the new
	// selection, so results for dropped items are simply not copied.
	stmt, err := tx.Prepare(
		`UPDATE review_results SET result = ?, attachment = ? WHERE review_id = ? AND checklist_id = ?`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()
	for _, c := range src {
		if _, err := stmt.Exec(c.result, c.attachment, r.ID, c.checklistID); err != nil {
			return nil, fmt.Errorf("carry forward result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}
