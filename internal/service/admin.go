package service

import (
	"context"
	"strings"
	"time"

	"picshare/internal/models"
	"picshare/internal/policy"
)

func (s *Service) ListUsers(ctx context.Context, actor models.User, limit, offset int) ([]models.User, error) {
	if !policy.CanAdminister(actor) {
		return nil, ErrForbidden
	}
	users, err := s.st.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = Redact(users[i])
	}
	return users, nil
}

// SetUserRoles updates the moderator/admin flags. Admin-only; an admin
// can never edit their own roles.
func (s *Service) SetUserRoles(ctx context.Context, actor models.User, targetID int64, isModerator, isAdmin bool) (models.User, error) {
	if !policy.CanChangeRoles(actor, targetID) {
		return models.User{}, ErrForbidden
	}
	if err := s.st.SetUserRoles(ctx, targetID, isModerator, isAdmin); err != nil {
		return models.User{}, err
	}
	u, err := s.st.GetUserByID(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	return Redact(u), nil
}

// BanUser records the reason, the acting admin and the timestamp, and
// drops the target's live sessions. Self-ban is denied by policy.
func (s *Service) BanUser(ctx context.Context, actor models.User, targetID int64, reason string) (models.User, error) {
	if !policy.CanBan(actor, targetID) {
		return models.User{}, ErrForbidden
	}
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}
	now := time.Now().UTC()
	actorID := actor.ID
	if err := s.st.SetUserBan(ctx, targetID, true, reasonPtr, &actorID, &now); err != nil {
		return models.User{}, err
	}
	s.sessions.RevokeUser(targetID)
	u, err := s.st.GetUserByID(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	return Redact(u), nil
}

// UnbanUser clears the ban state entirely.
func (s *Service) UnbanUser(ctx context.Context, actor models.User, targetID int64) (models.User, error) {
	if !policy.CanBan(actor, targetID) {
		return models.User{}, ErrForbidden
	}
	if err := s.st.SetUserBan(ctx, targetID, false, nil, nil, nil); err != nil {
		return models.User{}, err
	}
	u, err := s.st.GetUserByID(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	return Redact(u), nil
}
