package database

const schema = `
CREATE TABLE IF NOT EXISTS checklist_sections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    name TEXT NOT NULL DEFAULT 'Section',
    is_default INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS checklist_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    section_id INTEGER NOT NULL REFERENCES checklist_sections(id),
    sort_order INTEGER NOT NULL DEFAULT 0,
    text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    app_name TEXT NOT NULL,
    app_id TEXT NOT NULL,
    review_date TEXT NOT NULL,
    app_owner_email TEXT NOT NULL DEFAULT '',
    overall_notes TEXT DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'in_progress', 'completed', 'approved', 'rejected')),
    archived INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS review_sections (
    review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
    section_id INTEGER NOT NULL REFERENCES checklist_sections(id) ON DELETE CASCADE,
    PRIMARY KEY (review_id, section_id)
);

CREATE TABLE IF NOT EXISTS review_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
    checklist_id INTEGER NOT NULL REFERENCES checklist_items(id) ON DELETE CASCADE,
    result TEXT CHECK (result IN ('Pass', 'Fail', 'Partial', 'NA')),
    attachment TEXT,
    UNIQUE (review_id, checklist_id)
);

CREATE INDEX IF NOT EXISTS idx_items_section ON checklist_items(section_id);
CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status);
CREATE INDEX IF NOT EXISTS idx_reviews_archived ON reviews(archived);
CREATE INDEX IF NOT EXISTS idx_reviews_created ON reviews(created_at);
CREATE INDEX IF NOT EXISTS idx_results_review ON review_results(review_id);
CREATE INDEX IF NOT EXISTS idx_results_checklist ON review_results(checklist_id);
CREATE INDEX IF NOT EXISTS idx_review_sections_review ON review_sections(review_id);
`
