package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"picshare/internal/models"
	"picshare/internal/policy"
	"picshare/internal/store"
)

// SubmitImage stores the upload and creates a pending submission.
// Moderators are notified after the row is committed; a notification
// failure never fails the submission.
func (s *Service) SubmitImage(ctx context.Context, owner models.User, title, description, contentType string, r io.Reader) (models.Image, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Image{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	filename, err := s.files.Save(contentType, r)
	if err != nil {
		return models.Image{}, err
	}
	img, err := s.st.CreateImage(ctx, owner.ID, title, strings.TrimSpace(description), filename, true)
	if err != nil {
		_ = s.files.Remove(filename)
		return models.Image{}, err
	}

	emails, err := s.st.ModeratorEmails(ctx)
	if err != nil {
		log.Printf("list moderator emails err=%v", err)
		return img, nil
	}
	subject := fmt.Sprintf("New image awaiting review: %s", img.Title)
	body := fmt.Sprintf("%s uploaded %q. It is waiting in the moderation queue.\r\n", owner.Name, img.Title)
	for _, to := range emails {
		s.notifyAsync(to, subject, body, "")
	}
	return img, nil
}

// DecideImage moves a pending image to approved or rejected. Only the
// pending state can be decided; a second decision fails with
// ErrNotPending. The owner is notified best-effort.
func (s *Service) DecideImage(ctx context.Context, actor models.User, imageID int64, outcome models.ImageStatus, reason string) (models.Image, error) {
	if outcome != models.ImageApproved && outcome != models.ImageRejected {
		return models.Image{}, fmt.Errorf("%w: outcome must be approved or rejected", ErrValidation)
	}
	if !policy.CanModerate(actor) {
		return models.Image{}, ErrForbidden
	}
	var reasonPtr *string
	if outcome == models.ImageRejected {
		if r := strings.TrimSpace(reason); r != "" {
			reasonPtr = &r
		}
	}
	if err := s.st.DecideImage(ctx, imageID, outcome, actor.ID, reasonPtr); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Image{}, ErrNotPending
		}
		return models.Image{}, err
	}
	img, err := s.st.GetImageByID(ctx, imageID)
	if err != nil {
		return models.Image{}, err
	}

	if owner, err := s.st.GetUserByID(ctx, img.OwnerID); err == nil && owner.Email != "" {
		subject := fmt.Sprintf("Your image %q was %s", img.Title, outcome)
		body := fmt.Sprintf("Your upload %q has been %s.\r\n", img.Title, outcome)
		if img.RejectionReason != nil {
			body = fmt.Sprintf("Your upload %q has been rejected: %s\r\n", img.Title, *img.RejectionReason)
		}
		s.notifyAsync(owner.Email, subject, body, "")
	}
	return img, nil
}

// SetImageVisibility toggles public/private. Owner-only, independent of
// moderation status.
func (s *Service) SetImageVisibility(ctx context.Context, actor models.User, imageID int64, isPublic bool) (models.Image, error) {
	img, err := s.st.GetImageByID(ctx, imageID)
	if err != nil {
		return models.Image{}, err
	}
	if !policy.CanEditResource(actor, img.OwnerID) {
		return models.Image{}, ErrForbidden
	}
	if err := s.st.SetImageVisibility(ctx, imageID, isPublic); err != nil {
		return models.Image{}, err
	}
	img.IsPublic = isPublic
	return img, nil
}

// DeleteImage removes the row, its album links and, best-effort, the
// stored blob.
func (s *Service) DeleteImage(ctx context.Context, actor models.User, imageID int64) error {
	img, err := s.st.GetImageByID(ctx, imageID)
	if err != nil {
		return err
	}
	if !policy.CanEditResource(actor, img.OwnerID) {
		return ErrForbidden
	}
	if err := s.st.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	if err := s.files.Remove(img.Filename); err != nil {
		log.Printf("remove stored file filename=%s err=%v", img.Filename, err)
	}
	return nil
}

// GetImage applies the view policy: public images need no actor,
// private ones only their owner. The three failure modes stay
// distinguishable for the HTTP layer.
func (s *Service) GetImage(ctx context.Context, actor *models.User, imageID int64) (models.Image, error) {
	img, err := s.st.GetImageByID(ctx, imageID)
	if err != nil {
		return models.Image{}, err
	}
	if !policy.CanView(actor, img.OwnerID, img.IsPublic) {
		if actor == nil {
			return models.Image{}, ErrUnauthenticated
		}
		return models.Image{}, ErrForbidden
	}
	return img, nil
}

func (s *Service) ListGallery(ctx context.Context, limit, offset int) ([]models.Image, error) {
	return s.st.ListPublicApproved(ctx, limit, offset)
}

func (s *Service) ListOwnImages(ctx context.Context, actor models.User) ([]models.Image, error) {
	return s.st.ListImagesByOwner(ctx, actor.ID)
}

// ModerationQueue lists pending images, oldest first.
func (s *Service) ModerationQueue(ctx context.Context, actor models.User, limit, offset int) ([]models.Image, error) {
	if !policy.CanModerate(actor) {
		return nil, ErrForbidden
	}
	return s.st.ListPendingImages(ctx, limit, offset)
}

// ModerationStats counts the queue plus today's decisions, with "today"
// starting at local midnight.
func (s *Service) ModerationStats(ctx context.Context, actor models.User) (models.ModerationStats, error) {
	if !policy.CanModerate(actor) {
		return models.ModerationStats{}, ErrForbidden
	}
	now := time.Now().Local()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.st.ModerationStats(ctx, midnight.UTC())
}
