package store

import (
	"errors"
	"testing"
	"time"

	"picshare/internal/models"
)

func seedUser(t *testing.T, st *Store, email string) int64 {
	t.Helper()
	u, err := st.CreateUser(t.Context(), "User "+email, email, "hash", true)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u.ID
}

func seedImage(t *testing.T, st *Store, ownerID int64, title string) models.Image {
	t.Helper()
	img, err := st.CreateImage(t.Context(), ownerID, title, "", title+".jpg", true)
	if err != nil {
		t.Fatalf("seed image %s: %v", title, err)
	}
	return img
}

func TestCreateImageStartsPending(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	img := seedImage(t, st, owner, "sunset")
	if img.Status != models.ImagePending {
		t.Fatalf("expected pending, got %s", img.Status)
	}
	if img.ReviewedBy != nil || img.RejectionReason != nil {
		t.Fatalf("expected no review fields on a fresh upload, got %+v", img)
	}
}

func TestDecideImageOnlyOnce(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")
	img := seedImage(t, st, owner, "sunset")

	if err := st.DecideImage(t.Context(), img.ID, models.ImageApproved, mod, nil); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	got, err := st.GetImageByID(t.Context(), img.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.ImageApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if got.ReviewedBy == nil || *got.ReviewedBy != mod {
		t.Fatalf("expected reviewed_by=%d, got %v", mod, got.ReviewedBy)
	}

	reason := "changed my mind"
	err = st.DecideImage(t.Context(), img.ID, models.ImageRejected, mod, &reason)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second decision, got %v", err)
	}
	got, err = st.GetImageByID(t.Context(), img.ID)
	if err != nil {
		t.Fatalf("get after conflict: %v", err)
	}
	if got.Status != models.ImageApproved || got.RejectionReason != nil {
		t.Fatalf("second decision must not mutate the row, got %+v", got)
	}
}

func TestDecideImageMissingRowIsNotFound(t *testing.T) {
	st := newTestStore(t)
	mod := seedUser(t, st, "mod@example.com")
	err := st.DecideImage(t.Context(), 9999, models.ImageApproved, mod, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetImageVisibilityKeepsUpdatedAt(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")
	img := seedImage(t, st, owner, "sunset")
	if err := st.DecideImage(t.Context(), img.ID, models.ImageApproved, mod, nil); err != nil {
		t.Fatalf("decide: %v", err)
	}
	before, err := st.GetImageByID(t.Context(), img.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := st.SetImageVisibility(t.Context(), img.ID, false); err != nil {
		t.Fatalf("toggle visibility: %v", err)
	}
	after, err := st.GetImageByID(t.Context(), img.ID)
	if err != nil {
		t.Fatalf("get after toggle: %v", err)
	}
	if after.IsPublic {
		t.Fatalf("expected image private after toggle")
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("visibility toggle must not move updated_at: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestListPublicApprovedFiltersPrivateAndPending(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")

	visible := seedImage(t, st, owner, "visible")
	if err := st.DecideImage(t.Context(), visible.ID, models.ImageApproved, mod, nil); err != nil {
		t.Fatalf("decide visible: %v", err)
	}
	private := seedImage(t, st, owner, "private")
	if err := st.DecideImage(t.Context(), private.ID, models.ImageApproved, mod, nil); err != nil {
		t.Fatalf("decide private: %v", err)
	}
	if err := st.SetImageVisibility(t.Context(), private.ID, false); err != nil {
		t.Fatalf("hide private: %v", err)
	}
	seedImage(t, st, owner, "still-pending")
	rejected := seedImage(t, st, owner, "rejected")
	reason := "blurry"
	if err := st.DecideImage(t.Context(), rejected.ID, models.ImageRejected, mod, &reason); err != nil {
		t.Fatalf("decide rejected: %v", err)
	}

	images, err := st.ListPublicApproved(t.Context(), 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(images) != 1 || images[0].ID != visible.ID {
		t.Fatalf("expected only the public approved image, got %d rows", len(images))
	}
}

func TestListPendingImagesOldestFirst(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	first := seedImage(t, st, owner, "first")
	second := seedImage(t, st, owner, "second")

	images, err := st.ListPendingImages(t.Context(), 50, 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 pending images, got %d", len(images))
	}
	if images[0].ID != first.ID || images[1].ID != second.ID {
		t.Fatalf("expected oldest first, got [%d %d]", images[0].ID, images[1].ID)
	}
}

func TestModerationStatsCountsDecisionsSinceDayStart(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")

	seedImage(t, st, owner, "pending-one")
	seedImage(t, st, owner, "pending-two")

	approvedToday := seedImage(t, st, owner, "approved-today")
	if err := st.DecideImage(t.Context(), approvedToday.ID, models.ImageApproved, mod, nil); err != nil {
		t.Fatalf("decide approved: %v", err)
	}

	rejectedOld := seedImage(t, st, owner, "rejected-yesterday")
	reason := "off topic"
	if err := st.DecideImage(t.Context(), rejectedOld.ID, models.ImageRejected, mod, &reason); err != nil {
		t.Fatalf("decide rejected: %v", err)
	}
	// Backdate the rejection so it falls before today's window.
	if _, err := st.db.ExecContext(t.Context(),
		`UPDATE images SET updated_at=? WHERE id=?`,
		time.Now().UTC().Add(-48*time.Hour), rejectedOld.ID,
	); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	dayStart := time.Now().UTC().Add(-time.Hour)
	stats, err := st.ModerationStats(t.Context(), dayStart)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.Pending)
	}
	if stats.ApprovedToday != 1 {
		t.Fatalf("expected 1 approved today, got %d", stats.ApprovedToday)
	}
	if stats.RejectedToday != 0 {
		t.Fatalf("expected 0 rejected today, got %d", stats.RejectedToday)
	}
}

func TestDeleteImageCleansMembershipsAndCovers(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")

	imgA := seedImage(t, st, owner, "a")
	imgB := seedImage(t, st, owner, "b")
	for _, id := range []int64{imgA.ID, imgB.ID} {
		if err := st.DecideImage(t.Context(), id, models.ImageApproved, mod, nil); err != nil {
			t.Fatalf("decide %d: %v", id, err)
		}
	}
	album, err := st.CreateAlbum(t.Context(), owner, "holiday", "", true)
	if err != nil {
		t.Fatalf("create album: %v", err)
	}
	for _, id := range []int64{imgA.ID, imgB.ID} {
		if _, err := st.AddAlbumImage(t.Context(), album.ID, id); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}

	// imgA became the cover on first add; deleting it must hand the
	// cover to the remaining member.
	if err := st.DeleteImage(t.Context(), imgA.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetImageByID(t.Context(), imgA.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected image gone, got %v", err)
	}
	got, err := st.GetAlbumByID(t.Context(), album.ID)
	if err != nil {
		t.Fatalf("get album: %v", err)
	}
	if got.CoverImageID == nil || *got.CoverImageID != imgB.ID {
		t.Fatalf("expected cover reassigned to %d, got %v", imgB.ID, got.CoverImageID)
	}
	members, err := st.ListAlbumImages(t.Context(), album.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].ID != imgB.ID {
		t.Fatalf("expected single remaining member, got %d", len(members))
	}
}
