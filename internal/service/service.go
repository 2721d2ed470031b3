package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	netmail "net/mail"
	"strings"
	"time"

	"picshare/internal/auth"
	"picshare/internal/config"
	"picshare/internal/filestore"
	"picshare/internal/models"
	"picshare/internal/notify"
	"picshare/internal/policy"
	"picshare/internal/session"
	"picshare/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("invalid input")
	ErrNotPending         = errors.New("image has already been decided")
	ErrNotApproved        = errors.New("image is not approved")
	ErrInvalidToken       = errors.New("invalid verification token")
)

// BannedError rejects a login while surfacing the recorded ban reason.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string {
	if e.Reason != "" {
		return "account is banned: " + e.Reason
	}
	return "account is banned"
}

type Service struct {
	cfg      config.Config
	st       *store.Store
	sessions *session.Store
	files    filestore.Store
	sender   notify.Sender
}

func New(cfg config.Config, st *store.Store, sessions *session.Store, files filestore.Store, sender notify.Sender) *Service {
	if sender == nil {
		sender = notify.LogSender{}
	}
	return &Service{cfg: cfg, st: st, sessions: sessions, files: files, sender: sender}
}

func (s *Service) Store() *store.Store    { return s.st }
func (s *Service) Files() filestore.Store { return s.files }

// Redact strips the password hash and verification token before a user
// record leaves the service layer.
func Redact(u models.User) models.User {
	u.PasswordHash = ""
	u.VerificationToken = nil
	return u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return models.User{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := netmail.ParseAddress(email); err != nil {
		return models.User{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if err := s.validatePassword(password); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.st.CreateUser(ctx, name, email, hash, s.cfg.AutoVerifyUsers)
	if err != nil {
		return models.User{}, err
	}
	if !u.Verified {
		if _, err := s.IssueVerificationToken(ctx, u.ID); err != nil {
			log.Printf("issue verification token user_id=%d err=%v", u.ID, err)
		}
	}
	return Redact(u), nil
}

// Login validates credentials and binds a new session to the user. The
// returned user carries no secret material.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.User, error) {
	u, err := s.st.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}
	if u.Banned {
		reason := ""
		if u.BanReason != nil {
			reason = *u.BanReason
		}
		return "", models.User{}, &BannedError{Reason: reason}
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return "", models.User{}, ErrInvalidCredentials
	}
	token, err := s.sessions.Create(u.ID)
	if err != nil {
		return "", models.User{}, err
	}
	return token, Redact(u), nil
}

// ValidateSession resolves a raw session token to a fresh user record.
// The session itself only stores the user id, so role and ban edits are
// picked up on the next request. A binding whose user no longer exists
// resolves to anonymous rather than an error.
func (s *Service) ValidateSession(ctx context.Context, rawToken string) (models.User, error) {
	userID, ok := s.sessions.Resolve(rawToken)
	if !ok {
		return models.User{}, ErrUnauthenticated
	}
	u, err := s.st.GetUserByID(ctx, userID)
	if err != nil {
		s.sessions.Revoke(rawToken)
		return models.User{}, ErrUnauthenticated
	}
	if u.Banned {
		s.sessions.Revoke(rawToken)
		return models.User{}, ErrUnauthenticated
	}
	return u, nil
}

// Logout destroys the session binding; unknown tokens are a no-op.
func (s *Service) Logout(rawToken string) {
	s.sessions.Revoke(rawToken)
}

func (s *Service) UpdateProfile(ctx context.Context, actor models.User, targetID int64, p models.ProfileUpdate) (models.User, error) {
	if !policy.CanEditResource(actor, targetID) {
		return models.User{}, ErrForbidden
	}
	if strings.TrimSpace(p.Name) == "" {
		return models.User{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := s.st.UpdateProfile(ctx, targetID, p); err != nil {
		return models.User{}, err
	}
	u, err := s.st.GetUserByID(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	return Redact(u), nil
}

// IssueVerificationToken generates and stores a fresh single-use token,
// replacing any earlier one, and mails it to the user.
func (s *Service) IssueVerificationToken(ctx context.Context, userID int64) (string, error) {
	u, err := s.st.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	token, _, err := auth.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.st.SetVerificationToken(ctx, userID, token); err != nil {
		return "", err
	}
	if u.Email != "" {
		link := strings.TrimRight(s.cfg.BaseURL, "/") + "/#/verify?token=" + token
		s.notifyAsync(u.Email, "Verify your email address",
			"Use this link to verify your account:\r\n"+link+"\r\n",
			fmt.Sprintf(`<p>Use <a href=%q>this link</a> to verify your account.</p>`, link),
		)
	}
	return token, nil
}

// ConsumeVerificationToken marks the owning user verified. The token is
// cleared on first use; a second attempt fails with ErrInvalidToken.
func (s *Service) ConsumeVerificationToken(ctx context.Context, token string) (models.User, error) {
	if strings.TrimSpace(token) == "" {
		return models.User{}, ErrInvalidToken
	}
	u, err := s.st.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return Redact(u), nil
}

func (s *Service) validatePassword(pw string) error {
	if len(pw) < s.cfg.PasswordMinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, s.cfg.PasswordMinLength)
	}
	if len(pw) > s.cfg.PasswordMaxLength {
		return fmt.Errorf("%w: password must be at most %d characters", ErrValidation, s.cfg.PasswordMaxLength)
	}
	return nil
}

// notifyAsync fires the notification after the calling operation has
// already committed; delivery failure is logged and swallowed.
func (s *Service) notifyAsync(to, subject, textBody, htmlBody string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.sender.Send(ctx, to, subject, textBody, htmlBody); err != nil {
			log.Printf("notification failed to=%s subject=%q err=%v", to, subject, err)
		}
	}()
}
