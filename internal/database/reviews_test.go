package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func testMeta() ReviewMeta {
	return ReviewMeta{
		AppName:       "Acme Shipping",
		AppID:         "acme-42",
		Date:          "2025-03-14",
		AppOwnerEmail: "owner@example.com",
	}
}

// seedCatalog builds two sections with two items each and returns them.
func seedCatalog(t *testing.T, db *DB) (secA, secB *Section, itemsA, itemsB []Item) {
	t.Helper()
	sections, err := db.ListSections()
	require.NoError(t, err)
	require.NoError(t, db.RenameSection(sections[0].ID, "Functional"))
	secA = &sections[0]
	secA.Name = "Functional"

	secB, err = db.AddSection("Security")
	require.NoError(t, err)

	for _, text := range []string{"app installs", "app uninstalls"} {
		_, err := db.AddItem(secA.ID, text)
		require.NoError(t, err)
	}
	for _, text := range []string{"uses https", "no secrets in logs"} {
		_, err := db.AddItem(secB.ID, text)
		require.NoError(t, err)
	}

	itemsA, err = db.ListItemsBySection(secA.ID)
	require.NoError(t, err)
	itemsB, err = db.ListItemsBySection(secB.ID)
	require.NoError(t, err)
	return secA, secB, itemsA, itemsB
}

func TestCreateReviewValidation(t *testing.T) {
	db := newTestDB(t)
	secA, _, _, _ := seedCatalog(t, db)

	_, err := db.CreateReview(ReviewMeta{AppID: "x", Date: "2025-01-01"}, []int64{secA.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = db.CreateReview(testMeta(), nil)
	assert.ErrorIs(t, err, ErrValidation)

	// Failed creation leaves nothing behind.
	reviews, err := db.ListReviews(false)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestCreateReviewPrepopulatesResultSlots(t *testing.T) {
	db := newTestDB(t)
	secA, secB, _, _ := seedCatalog(t, db)

	r, err := db.CreateReview(testMeta(), []int64{secA.ID, secB.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, r.Status)

	filled, total, err := db.ResultProgress(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, filled)
	assert.Equal(t, 4, total)
}

func TestCreateReviewDedupesSectionSelection(t *testing.T) {
	db := newTestDB(t)
	secA, _, _, _ := seedCatalog(t, db)

	r, err := db.CreateReview(testMeta(), []int64{secA.ID, secA.ID})
	require.NoError(t, err)

	scope, err := db.GetSectionScope(r.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{secA.ID}, scope.SectionIDs)

	_, total, err := db.ResultProgress(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestResultSlotsFixedAtCreation(t *testing.T) {
	db := newTestDB(t)
	secA, secB, _, _ := seedCatalog(t, db)

	r, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)

	_, total0, err := db.ResultProgress(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, total0)

	// Edits to other sections never change an existing review's row set.
	_, err = db.AddItem(secB.ID, "unrelated new criterion")
	require.NoError(t, err)
	newSec, err := db.AddSection("Brand New")
	require.NoError(t, err)
	_, err = db.AddItem(newSec.ID, "also unrelated")
	require.NoError(t, err)

	_, total1, err := db.ResultProgress(r.ID)
	require.NoError(t, err)
	assert.Equal(t, total0, total1)
}

func TestRecordResultIndependentFields(t *testing.T) {
	db := newTestDB(t)
	secA, _, itemsA, _ := seedCatalog(t, db)
	r, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)
	cid := itemsA[0].ID

	require.NoError(t, db.RecordResult(r.ID, cid, str(ResultPass), nil))

	// Attachment-only write must not clobber the verdict.
	require.NoError(t, db.RecordResult(r.ID, cid, nil, str("JIRA-101")))
	sections, err := db.ResolveReview(r.ID)
	require.NoError(t, err)
	item := sections[0].Items[0]
	require.NotNil(t, item.Result)
	assert.Equal(t, ResultPass, *item.Result)
	assert.Equal(t, "JIRA-101", item.Attachment)

	// Result-only write must not clobber the attachment.
	require.NoError(t, db.RecordResult(r.ID, cid, str(ResultFail), nil))
	sections, err = db.ResolveReview(r.ID)
	require.NoError(t, err)
	item = sections[0].Items[0]
	require.NotNil(t, item.Result)
	assert.Equal(t, ResultFail, *item.Result)
	assert.Equal(t, "JIRA-101", item.Attachment)

	// Blank attachment clears the stored value.
	require.NoError(t, db.RecordResult(r.ID, cid, nil, str("  ")))
	sections, err = db.ResolveReview(r.ID)
	require.NoError(t, err)
	assert.Empty(t, sections[0].Items[0].Attachment)
}

func TestRecordResultValidation(t *testing.T) {
	db := newTestDB(t)
	secA, _, itemsA, _ := seedCatalog(t, db)
	r, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)

	err = db.RecordResult(r.ID, itemsA[0].ID, str("Maybe"), nil)
	assert.ErrorIs(t, err, ErrValidation)

	err = db.RecordResult(99999, itemsA[0].ID, str(ResultPass), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	err = db.RecordResult(r.ID, 99999, str(ResultPass), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	// No-op when neither field is supplied.
	require.NoError(t, db.RecordResult(r.ID, itemsA[0].ID, nil, nil))
	filled, _, err := db.ResultProgress(r.ID)
	require.NoError(t, err)
	assert.Zero(t, filled)
}

func TestLifecycleTransitions(t *testing.T) {
	db := newTestDB(t)
	secA, _, _, _ := seedCatalog(t, db)
	r, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)

	// Finish has no completeness check.
	require.NoError(t, db.Finish(r.ID))
	got, err := db.GetReview(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	// Approve is idempotent.
	require.NoError(t, db.Approve(r.ID))
	require.NoError(t, db.Approve(r.ID))
	got, err = db.GetReview(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	// Reject is reachable from approved.
	require.NoError(t, db.Reject(r.ID))
	got, err = db.GetReview(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)

	assert.ErrorIs(t, db.Finish(99999), ErrNotFound)
}

func TestArchiveIndependentOfStatus(t *testing.T) {
	db := newTestDB(t)
	secA, _, _, _ := seedCatalog(t, db)
	r, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)

	require.NoError(t, db.Approve(r.ID))
	require.NoError(t, db.SetArchived(r.ID, true))
	got, err := db.GetReview(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.True(t, got.Archived)

	require.NoError(t, db.SetArchived(r.ID, false))
	got, err = db.GetReview(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.False(t, got.Archived)
}

func TestBulkArchiveSkipsUnknownIDs(t *testing.T) {
	db := newTestDB(t)
	secA, _, _, _ := seedCatalog(t, db)
	a, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)
	b, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)

	n, err := db.BulkArchive([]int64{a.ID, b.ID, 99999})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.BulkUnarchive([]int64{b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	archived, err := db.ListReviews(true)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, a.ID, archived[0].ID)
}

func TestBulkDeleteOnlyArchived(t *testing.T) {
	db := newTestDB(t)
	secA, _, _, _ := seedCatalog(t, db)
	a, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)
	b, err := db.CreateReview(testMeta(), []int64{secA.ID})
	require.NoError(t, err)

	require.NoError(t, db.SetArchived(a.ID, true))

	deleted, err := db.BulkDelete([]int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = db.GetReview(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	still, err := db.GetReview(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, still.ID)

	// Result rows cascade with the review.
	_, total, err := db.ResultProgress(a.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListReviewsProgress(t *testing.T) {
	db := newTestDB(t)
	secA, secB, itemsA, itemsB := seedCatalog(t, db)
	_, err := db.AddItem(secA.ID, "fifth criterion")
	require.NoError(t, err)

	r, err := db.CreateReview(testMeta(), []int64{secA.ID, secB.ID})
	require.NoError(t, err)

	require.NoError(t, db.RecordResult(r.ID, itemsA[0].ID, str(ResultPass), nil))
	require.NoError(t, db.RecordResult(r.ID, itemsA[1].ID, str(ResultFail), nil))
	require.NoError(t, db.RecordResult(r.ID, itemsB[0].ID, str(ResultNA), nil))

	reviews, err := db.ListReviews(false)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 3, reviews[0].Filled)
	assert.Equal(t, 5, reviews[0].Total)
	assert.Equal(t, "3/5 (60%)", reviews[0].Progress)
	assert.Equal(t, "In Review", reviews[0].StatusDisplay)
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "—", FormatProgress(0, 0))
	assert.Equal(t, "0/4 (0%)", FormatProgress(0, 4))
	assert.Equal(t, "2/3 (66%)", FormatProgress(2, 3))
	assert.Equal(t, "5/5 (100%)", FormatProgress(5, 5))
}
