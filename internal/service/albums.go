package service

import (
	"context"
	"fmt"
	"strings"

	"picshare/internal/models"
	"picshare/internal/policy"
)

func (s *Service) CreateAlbum(ctx context.Context, actor models.User, title, description string, isPublic bool) (models.Album, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Album{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	return s.st.CreateAlbum(ctx, actor.ID, title, strings.TrimSpace(description), isPublic)
}

// GetAlbum returns the album and its member images under the view
// policy. The cover reference has already been re-validated by the
// store.
func (s *Service) GetAlbum(ctx context.Context, actor *models.User, albumID int64) (models.Album, []models.Image, error) {
	a, err := s.st.GetAlbumByID(ctx, albumID)
	if err != nil {
		return models.Album{}, nil, err
	}
	if !policy.CanView(actor, a.OwnerID, a.IsPublic) {
		if actor == nil {
			return models.Album{}, nil, ErrUnauthenticated
		}
		return models.Album{}, nil, ErrForbidden
	}
	images, err := s.st.ListAlbumImages(ctx, albumID)
	if err != nil {
		return models.Album{}, nil, err
	}
	return a, images, nil
}

func (s *Service) UpdateAlbum(ctx context.Context, actor models.User, albumID int64, title, description string, isPublic bool) (models.Album, error) {
	a, err := s.st.GetAlbumByID(ctx, albumID)
	if err != nil {
		return models.Album{}, err
	}
	if !policy.CanEditResource(actor, a.OwnerID) {
		return models.Album{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Album{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := s.st.UpdateAlbum(ctx, albumID, title, strings.TrimSpace(description), isPublic); err != nil {
		return models.Album{}, err
	}
	return s.st.GetAlbumByID(ctx, albumID)
}

func (s *Service) DeleteAlbum(ctx context.Context, actor models.User, albumID int64) error {
	a, err := s.st.GetAlbumByID(ctx, albumID)
	if err != nil {
		return err
	}
	if !policy.CanEditResource(actor, a.OwnerID) {
		return ErrForbidden
	}
	return s.st.DeleteAlbum(ctx, albumID)
}

// AddImageToAlbum links an approved, viewable image into the actor's
// album. Re-adding an existing member is a no-op, reported as
// added=false.
func (s *Service) AddImageToAlbum(ctx context.Context, actor models.User, albumID, imageID int64) (bool, error) {
	a, err := s.st.GetAlbumByID(ctx, albumID)
	if err != nil {
		return false, err
	}
	if !policy.CanEditResource(actor, a.OwnerID) {
		return false, ErrForbidden
	}
	img, err := s.st.GetImageByID(ctx, imageID)
	if err != nil {
		return false, err
	}
	if !policy.CanView(&actor, img.OwnerID, img.IsPublic) {
		return false, ErrForbidden
	}
	if img.Status != models.ImageApproved {
		return false, ErrNotApproved
	}
	return s.st.AddAlbumImage(ctx, albumID, imageID)
}

// RemoveImageFromAlbum unlinks a member image; the store reassigns or
// clears the cover when the cover image is removed.
func (s *Service) RemoveImageFromAlbum(ctx context.Context, actor models.User, albumID, imageID int64) error {
	a, err := s.st.GetAlbumByID(ctx, albumID)
	if err != nil {
		return err
	}
	if !policy.CanEditResource(actor, a.OwnerID) {
		return ErrForbidden
	}
	return s.st.RemoveAlbumImage(ctx, albumID, imageID)
}

func (s *Service) ListOwnAlbums(ctx context.Context, actor models.User) ([]models.Album, error) {
	return s.st.ListAlbumsByOwner(ctx, actor.ID)
}
