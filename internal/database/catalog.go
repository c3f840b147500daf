package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// MoveUp / MoveDown are the two directions swap-based reordering accepts.
const (
	MoveUp   = "up"
	MoveDown = "down"
)

func (db *DB) ListSections() ([]Section, error) {
	rows, err := db.Query(`SELECT id, sort_order, name, is_default FROM checklist_sections ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.SortOrder, &s.Name, &s.IsDefault); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (db *DB) GetSection(id int64) (*Section, error) {
	s := &Section{}
	err := db.QueryRow(
		`SELECT id, sort_order, name, is_default FROM checklist_sections WHERE id = ?`, id,
	).Scan(&s.ID, &s.SortOrder, &s.Name, &s.IsDefault)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: section %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get section: %w", err)
	}
	return s, nil
}

// AddSection appends a section after the current highest sort_order.
// A blank name falls back to "Section".
func (db *DB) AddSection(name string) (*Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Section"
	}
	s := &Section{Name: name, IsDefault: true}
	err := db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM checklist_sections`).Scan(&s.SortOrder)
	if err != nil {
		return nil, fmt.Errorf("next section order: %w", err)
	}
	res, err := db.Exec(
		`INSERT INTO checklist_sections (sort_order, name) VALUES (?, ?)`,
		s.SortOrder, s.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert section: %w", err)
	}
	s.ID, _ = res.LastInsertId()
	return s, nil
}

func (db *DB) RenameSection(id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: section name is required", ErrValidation)
	}
	res, err := db.Exec(`UPDATE checklist_sections SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: section %d", ErrNotFound, id)
	}
	return nil
}

func (db *DB) SetSectionDefault(id int64, isDefault bool) error {
	res, err := db.Exec(`UPDATE checklist_sections SET is_default = ? WHERE id = ?`, isDefault, id)
	if err != nil {
		return fmt.Errorf("set section default: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: section %d", ErrNotFound, id)
	}
	return nil
}

// DeleteSection removes a section after moving its items to the
// lowest-ordered surviving section. Deleting the last section is refused:
// items must never be orphaned.
func (db *DB) DeleteSection(id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM checklist_sections WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: section %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("get section: %w", err)
	}

	var targetID int64
	err = tx.QueryRow(
		`SELECT id FROM checklist_sections WHERE id != ? ORDER BY sort_order, id LIMIT 1`, id,
	).Scan(&targetID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: cannot delete the last remaining section", ErrConstraint)
	}
	if err != nil {
		return fmt.Errorf("find target section: %w", err)
	}

	if _, err := tx.Exec(`UPDATE checklist_items SET section_id = ? WHERE section_id = ?`, targetID, id); err != nil {
		return fmt.Errorf("reassign items: %w", err)
	}
	// Selections follow the items to the target so a pinned review can
	// never fall back to the legacy all-sections scope. Reviews that
	// already selected the target just drop the stale row.
	if _, err := tx.Exec(`UPDATE OR IGNORE review_sections SET section_id = ? WHERE section_id = ?`, targetID, id); err != nil {
		return fmt.Errorf("remap section selections: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM review_sections WHERE section_id = ?`, id); err != nil {
		return fmt.Errorf("drop section selections: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM checklist_sections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return tx.Commit()
}

// MoveSection swaps sort_order with the adjacent section in the given
// direction. Moving past either end is a no-op.
func (db *DB) MoveSection(id int64, direction string) error {
	if direction != MoveUp && direction != MoveDown {
		return fmt.Errorf("%w: direction must be %q or %q", ErrValidation, MoveUp, MoveDown)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var order int
	err = tx.QueryRow(`SELECT sort_order FROM checklist_sections WHERE id = ?`, id).Scan(&order)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: section %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("get section: %w", err)
	}

	var q string
	if direction == MoveUp {
		q = `SELECT id, sort_order FROM checklist_sections WHERE sort_order < ? ORDER BY sort_order DESC, id DESC LIMIT 1`
	} else {
		q = `SELECT id, sort_order FROM checklist_sections WHERE sort_order > ? ORDER BY sort_order ASC, id ASC LIMIT 1`
	}

	var neighbourID int64
	var neighbourOrder int
	err = tx.QueryRow(q, order).Scan(&neighbourID, &neighbourOrder)
	if err == sql.ErrNoRows {
		return nil // already at the edge
	}
	if err != nil {
		return fmt.Errorf("find neighbour: %w", err)
	}

	if _, err := tx.Exec(`UPDATE checklist_sections SET sort_order = ? WHERE id = ?`, neighbourOrder, id); err != nil {
		return fmt.Errorf("swap section order: %w", err)
	}
	if _, err := tx.Exec(`UPDATE checklist_sections SET sort_order = ? WHERE id = ?`, order, neighbourID); err != nil {
		return fmt.Errorf("swap section order: %w", err)
	}
	return tx.Commit()
}

// --- Items ---

func (db *DB) ListItems() ([]Item, error) {
	rows, err := db.Query(`SELECT id, section_id, sort_order, text FROM checklist_items ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (db *DB) ListItemsBySection(sectionID int64) ([]Item, error) {
	rows, err := db.Query(
		`SELECT id, section_id, sort_order, text FROM checklist_items WHERE section_id = ? ORDER BY sort_order, id`,
		sectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items by section: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SectionID, &it.SortOrder, &it.Text); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (db *DB) AddItem(sectionID int64, text string) (*Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: item text is required", ErrValidation)
	}
	if _, err := db.GetSection(sectionID); err != nil {
		return nil, err
	}

	it := &Item{SectionID: sectionID, Text: text}
	err := db.QueryRow(
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM checklist_items WHERE section_id = ?`, sectionID,
	).Scan(&it.SortOrder)
	if err != nil {
		return nil, fmt.Errorf("next item order: %w", err)
	}
	res, err := db.Exec(
		`INSERT INTO checklist_items (section_id, sort_order, text) VALUES (?, ?, ?)`,
		it.SectionID, it.SortOrder, it.Text,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	it.ID, _ = res.LastInsertId()
	return it, nil
}

// RemoveItems deletes the given items and returns how many rows went away.
// Unknown ids are skipped. Result rows referencing the items cascade.
func (db *DB) RemoveItems(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := db.Exec(`DELETE FROM checklist_items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("remove items: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MoveItem swaps sort_order with the adjacent item in the same section,
// breaking sort_order ties by id. Edges are a no-op.
func (db *DB) MoveItem(id int64, direction string) error {
	if direction != MoveUp && direction != MoveDown {
		return fmt.Errorf("%w: direction must be %q or %q", ErrValidation, MoveUp, MoveDown)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var sectionID int64
	var order int
	err = tx.QueryRow(`SELECT section_id, sort_order FROM checklist_items WHERE id = ?`, id).Scan(&sectionID, &order)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}

	var q string
	if direction == MoveUp {
		q = `SELECT id, sort_order FROM checklist_items
		     WHERE section_id = ? AND (sort_order < ? OR (sort_order = ? AND id < ?))
		     ORDER BY sort_order DESC, id DESC LIMIT 1`
	} else {
		q = `SELECT id, sort_order FROM checklist_items
		     WHERE section_id = ? AND (sort_order > ? OR (sort_order = ? AND id > ?))
		     ORDER BY sort_order ASC, id ASC LIMIT 1`
	}

	var neighbourID int64
	var neighbourOrder int
	err = tx.QueryRow(q, sectionID, order, order, id).Scan(&neighbourID, &neighbourOrder)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find neighbour: %w", err)
	}

	if _, err := tx.Exec(`UPDATE checklist_items SET sort_order = ? WHERE id = ?`, neighbourOrder, id); err != nil {
		return fmt.Errorf("swap item order: %w", err)
	}
	if _, err := tx.Exec(`UPDATE checklist_items SET sort_order = ? WHERE id = ?`, order, neighbourID); err != nil {
		return fmt.Errorf("swap item order: %w", err)
	}
	return tx.Commit()
}

// ReorderItems rewrites sort_order to the position of each id in the
// given list. Ids not in the list keep their old order values.
func (db *DB) ReorderItems(orderedIDs []int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE checklist_items SET sort_order = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, id := range orderedIDs {
		if _, err := stmt.Exec(i, id); err != nil {
			return fmt.Errorf("reorder item %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// PasteItems appends one item per non-blank line of raw text to the
// section, after its current highest sort_order.
func (db *DB) PasteItems(sectionID int64, rawText string) (int, error) {
	if _, err := db.GetSection(sectionID); err != nil {
		return 0, err
	}

	var lines []string
	for _, line := range strings.Split(rawText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxOrder int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(sort_order), -1) FROM checklist_items WHERE section_id = ?`, sectionID,
	).Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("max item order: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO checklist_items (section_id, sort_order, text) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, line := range lines {
		if _, err := stmt.Exec(sectionID, maxOrder+1+i, line); err != nil {
			return 0, fmt.Errorf("insert pasted item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// --- Tabular import ---

// ImportRow is one validated row of a tabular import.
type ImportRow struct {
	SectionName string
	Criteria    string
}

// ImportResult reports what a tabular import actually did.
type ImportResult struct {
	Added       int `json:"added"`
	Skipped     int `json:"skipped"`
	NewSections int `json:"new_sections"`
}

// ImportItems applies validated rows to the catalog. Unknown section names
// create a new section appended at the end; a criterion whose exact text
// already exists in the same section is counted as skipped, not an error.
func (db *DB) ImportItems(importRows []ImportRow) (*ImportResult, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sectionsByName := make(map[string]int64)
	rows, err := tx.Query(`SELECT id, name FROM checklist_sections`)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sectionsByName[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var maxSectionOrder int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) FROM checklist_sections`).Scan(&maxSectionOrder); err != nil {
		return nil, fmt.Errorf("max section order: %w", err)
	}

	result := &ImportResult{}
	for _, row := range importRows {
		name := strings.TrimSpace(row.SectionName)
		text := strings.TrimSpace(row.Criteria)
		if name == "" || text == "" {
			continue
		}

		sectionID, ok := sectionsByName[name]
		if !ok {
			maxSectionOrder++
			res, err := tx.Exec(
				`INSERT INTO checklist_sections (sort_order, name) VALUES (?, ?)`,
				maxSectionOrder, name,
			)
			if err != nil {
				return nil, fmt.Errorf("insert section %q: %w", name, err)
			}
			sectionID, _ = res.LastInsertId()
			sectionsByName[name] = sectionID
			result.NewSections++
		}

		var exists int
		err := tx.QueryRow(
			`SELECT 1 FROM checklist_items WHERE section_id = ? AND text = ?`, sectionID, text,
		).Scan(&exists)
		if err == nil {
			result.Skipped++
			continue
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}

		var maxOrder int
		if err := tx.QueryRow(
			`SELECT COALESCE(MAX(sort_order), -1) FROM checklist_items WHERE section_id = ?`, sectionID,
		).Scan(&maxOrder); err != nil {
			return nil, fmt.Errorf("max item order: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO checklist_items (section_id, sort_order, text) VALUES (?, ?, ?)`,
			sectionID, maxOrder+1, text,
		); err != nil {
			return nil, fmt.Errorf("insert imported item: %w", err)
		}
		result.Added++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}
