package database

import (
	"fmt"
	"strings"
)

// SectionScope says which catalog sections a review sees. All=true is the
// legacy mode with no pinned selection: every section, including ones
// created after the review. A subset is pinned permanently at creation;
// items later added inside a selected section still become visible, items
// in new sections do not.
type SectionScope struct {
	All        bool    `json:"all"`
	SectionIDs []int64 `json:"section_ids,omitempty"`
}

func (s SectionScope) contains(sectionID int64) bool {
	if s.All {
		return true
	}
	for _, id := range s.SectionIDs {
		if id == sectionID {
			return true
		}
	}
	return false
}

// GetSectionScope reads a review's pinned selection. No rows means All.
func (db *DB) GetSectionScope(reviewID int64) (SectionScope, error) {
	rows, err := db.Query(`SELECT section_id FROM review_sections WHERE review_id = ?`, reviewID)
	if err != nil {
		return SectionScope{}, fmt.Errorf("get section scope: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return SectionScope{}, fmt.Errorf("scan section id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return SectionScope{}, err
	}
	if len(ids) == 0 {
		return SectionScope{All: true}, nil
	}
	return SectionScope{SectionIDs: ids}, nil
}

// DefaultSelection returns the section ids flagged as default. A catalog
// with no defaults behaves as select-all.
func (db *DB) DefaultSelection() ([]int64, error) {
	sections, err := db.ListSections()
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, s := range sections {
		if s.IsDefault {
			ids = append(ids, s.ID)
		}
	}
	if len(ids) == 0 {
		for _, s := range sections {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// ResolvedItem is one gradable criterion in a review's resolved view.
// Index is 1-based and global across all sections.
type ResolvedItem struct {
	Index       int     `json:"index"`
	ChecklistID int64   `json:"checklist_id"`
	Text        string  `json:"text"`
	Result      *string `json:"result"`
	Attachment  string  `json:"attachment"`
}

// ResolvedSection groups resolved items under their section, in catalog order.
type ResolvedSection struct {
	SectionID int64          `json:"section_id"`
	Name      string         `json:"name"`
	Items     []ResolvedItem `json:"items"`
}

// ResolveReview assembles the ordered, section-grouped item+result view
// for a review. The run screen, the detail screen, and the PDF export all
// consume this one function so they can never diverge.
func (db *DB) ResolveReview(reviewID int64) ([]ResolvedSection, error) {
	scope, err := db.GetSectionScope(reviewID)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT c.id, c.text, c.section_id, s.name
		 FROM checklist_items c
		 JOIN checklist_sections s ON c.section_id = s.id
		 ORDER BY s.sort_order, s.id, c.sort_order, c.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}
	defer rows.Close()

	type flatItem struct {
		id          int64
		text        string
		sectionID   int64
		sectionName string
	}
	var flat []flatItem
	for rows.Next() {
		var fi flatItem
		if err := rows.Scan(&fi.id, &fi.text, &fi.sectionID, &fi.sectionName); err != nil {
			return nil, fmt.Errorf("scan resolved item: %w", err)
		}
		if scope.contains(fi.sectionID) {
			flat = append(flat, fi)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resultMap := make(map[int64]*string)
	attachmentMap := make(map[int64]string)
	resRows, err := db.Query(
		`SELECT checklist_id, result, attachment FROM review_results WHERE review_id = ?`, reviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer resRows.Close()
	for resRows.Next() {
		var checklistID int64
		var result, attachment *string
		if err := resRows.Scan(&checklistID, &result, &attachment); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		resultMap[checklistID] = result
		if attachment != nil {
			attachmentMap[checklistID] = strings.TrimSpace(*attachment)
		}
	}
	if err := resRows.Err(); err != nil {
		return nil, err
	}

	var sections []ResolvedSection
	index := 0
	for _, fi := range flat {
		if len(sections) == 0 || sections[len(sections)-1].SectionID != fi.sectionID {
			sections = append(sections, ResolvedSection{SectionID: fi.sectionID, Name: fi.sectionName})
		}
		index++
		cur := &sections[len(sections)-1]
		cur.Items = append(cur.Items, ResolvedItem{
			Index:       index,
			ChecklistID: fi.id,
			Text:        fi.text,
			Result:      resultMap[fi.id],
			Attachment:  attachmentMap[fi.id],
		})
	}
	return sections, nil
}
