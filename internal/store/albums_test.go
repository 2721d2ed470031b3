package store

import (
	"errors"
	"testing"

	"picshare/internal/models"
)

func seedApprovedImage(t *testing.T, st *Store, ownerID, modID int64, title string) models.Image {
	t.Helper()
	img := seedImage(t, st, ownerID, title)
	if err := st.DecideImage(t.Context(), img.ID, models.ImageApproved, modID, nil); err != nil {
		t.Fatalf("approve %s: %v", title, err)
	}
	return img
}

func TestAddAlbumImageIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")
	img := seedApprovedImage(t, st, owner, mod, "one")
	album, err := st.CreateAlbum(t.Context(), owner, "trip", "", true)
	if err != nil {
		t.Fatalf("create album: %v", err)
	}

	added, err := st.AddAlbumImage(t.Context(), album.ID, img.ID)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if !added {
		t.Fatalf("expected first add to insert")
	}
	added, err = st.AddAlbumImage(t.Context(), album.ID, img.ID)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if added {
		t.Fatalf("expected second add to be a no-op")
	}
	n, err := st.CountAlbumImages(t.Context(), album.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 membership row, got %d", n)
	}
}

func TestAlbumCoverLifecycle(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")
	first := seedApprovedImage(t, st, owner, mod, "first")
	second := seedApprovedImage(t, st, owner, mod, "second")
	album, err := st.CreateAlbum(t.Context(), owner, "trip", "", true)
	if err != nil {
		t.Fatalf("create album: %v", err)
	}

	if _, err := st.AddAlbumImage(t.Context(), album.ID, first.ID); err != nil {
		t.Fatalf("add first: %v", err)
	}
	got, err := st.GetAlbumByID(t.Context(), album.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CoverImageID == nil || *got.CoverImageID != first.ID {
		t.Fatalf("expected first image to become cover, got %v", got.CoverImageID)
	}

	// A second add keeps the existing cover.
	if _, err := st.AddAlbumImage(t.Context(), album.ID, second.ID); err != nil {
		t.Fatalf("add second: %v", err)
	}
	got, err = st.GetAlbumByID(t.Context(), album.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CoverImageID == nil || *got.CoverImageID != first.ID {
		t.Fatalf("expected cover unchanged, got %v", got.CoverImageID)
	}

	// Removing the cover hands it to the most recently added member.
	if err := st.RemoveAlbumImage(t.Context(), album.ID, first.ID); err != nil {
		t.Fatalf("remove cover: %v", err)
	}
	got, err = st.GetAlbumByID(t.Context(), album.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CoverImageID == nil || *got.CoverImageID != second.ID {
		t.Fatalf("expected cover reassigned to %d, got %v", second.ID, got.CoverImageID)
	}

	// Removing the last member leaves the album coverless.
	if err := st.RemoveAlbumImage(t.Context(), album.ID, second.ID); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	got, err = st.GetAlbumByID(t.Context(), album.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CoverImageID != nil {
		t.Fatalf("expected no cover on empty album, got %v", got.CoverImageID)
	}
}

func TestRemoveAlbumImageMissingMembership(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")
	img := seedApprovedImage(t, st, owner, mod, "one")
	album, err := st.CreateAlbum(t.Context(), owner, "trip", "", true)
	if err != nil {
		t.Fatalf("create album: %v", err)
	}
	if err := st.RemoveAlbumImage(t.Context(), album.ID, img.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAlbumKeepsImages(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	mod := seedUser(t, st, "mod@example.com")
	img := seedApprovedImage(t, st, owner, mod, "kept")
	album, err := st.CreateAlbum(t.Context(), owner, "doomed", "", true)
	if err != nil {
		t.Fatalf("create album: %v", err)
	}
	if _, err := st.AddAlbumImage(t.Context(), album.ID, img.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := st.DeleteAlbum(t.Context(), album.ID); err != nil {
		t.Fatalf("delete album: %v", err)
	}
	if _, err := st.GetAlbumByID(t.Context(), album.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected album gone, got %v", err)
	}
	if _, err := st.GetImageByID(t.Context(), img.ID); err != nil {
		t.Fatalf("expected image to survive album deletion: %v", err)
	}
}

func TestListAlbumsByOwner(t *testing.T) {
	st := newTestStore(t)
	owner := seedUser(t, st, "owner@example.com")
	other := seedUser(t, st, "other@example.com")
	if _, err := st.CreateAlbum(t.Context(), owner, "mine", "", true); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreateAlbum(t.Context(), other, "theirs", "", true); err != nil {
		t.Fatalf("create: %v", err)
	}

	albums, err := st.ListAlbumsByOwner(t.Context(), owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(albums) != 1 || albums[0].Title != "mine" {
		t.Fatalf("expected only the owner's album, got %d", len(albums))
	}
}
