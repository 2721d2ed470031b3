package store

import (
	"context"
	"database/sql"
	"time"

	"picshare/internal/models"
)

const userColumns = `id,name,email,password_hash,verified,verification_token,is_moderator,is_admin,banned,ban_reason,banned_by,banned_at,bio,picture,website,twitter,instagram,theme,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (models.User, error) {
	var u models.User
	var verified, isModerator, isAdmin, banned int
	var verificationToken, banReason sql.NullString
	var bannedBy sql.NullInt64
	var bannedAt sql.NullTime
	err := r.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &verified, &verificationToken,
		&isModerator, &isAdmin, &banned, &banReason, &bannedBy, &bannedAt,
		&u.Bio, &u.Picture, &u.Website, &u.Twitter, &u.Instagram, &u.Theme,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	u.Verified = verified == 1
	u.IsModerator = isModerator == 1
	u.IsAdmin = isAdmin == 1
	u.Banned = banned == 1
	u.VerificationToken = nullStringPtr(verificationToken)
	u.BanReason = nullStringPtr(banReason)
	u.BannedBy = nullInt64Ptr(bannedBy)
	u.BannedAt = nullTimePtr(bannedAt)
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string, verified bool) (models.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(name,email,password_hash,verified,created_at,updated_at) VALUES(?,?,?,?,?,?)`,
		name, email, passwordHash, boolToInt(verified), now, now,
	)
	if isUniqueViolation(err) {
		return models.User{}, ErrConflict
	}
	if err != nil {
		return models.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row)
}

// GetUserByEmail matches the address case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower(?)`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProfile(ctx context.Context, userID int64, p models.ProfileUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name=?, bio=?, picture=?, website=?, twitter=?, instagram=?, theme=?, updated_at=? WHERE id=?`,
		p.Name, p.Bio, p.Picture, p.Website, p.Twitter, p.Instagram, p.Theme, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerificationToken overwrites any previously issued token.
func (s *Store) SetVerificationToken(ctx context.Context, userID int64, token string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET verification_token=? WHERE id=?`, token, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeVerificationToken marks the matching user verified and clears
// the token in one statement, so a token can only be spent once.
func (s *Store) ConsumeVerificationToken(ctx context.Context, token string) (models.User, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE verification_token=?`, token).Scan(&id)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET verified=1, verification_token=NULL, updated_at=? WHERE id=? AND verification_token=?`,
		time.Now().UTC(), id, token,
	)
	if err != nil {
		return models.User{}, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if rows == 0 {
		return models.User{}, ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) SetUserRoles(ctx context.Context, userID int64, isModerator, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_moderator=?, is_admin=?, updated_at=? WHERE id=?`,
		boolToInt(isModerator), boolToInt(isAdmin), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserBan applies a full ban or unban state in a single statement.
func (s *Store) SetUserBan(ctx context.Context, userID int64, banned bool, reason *string, actorID *int64, at *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET banned=?, ban_reason=?, banned_by=?, banned_at=?, updated_at=? WHERE id=?`,
		boolToInt(banned), reason, actorID, at, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE is_admin=1`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// EnsureAdmin creates or promotes the bootstrap admin account.
func (s *Store) EnsureAdmin(ctx context.Context, name, email, passwordHash string) error {
	u, err := s.GetUserByEmail(ctx, email)
	if err == ErrNotFound {
		now := time.Now().UTC()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO users(name,email,password_hash,verified,is_moderator,is_admin,created_at,updated_at) VALUES(?,?,?,1,1,1,?,?)`,
			name, email, passwordHash, now, now,
		)
		return err
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=?, verified=1, is_moderator=1, is_admin=1, banned=0, ban_reason=NULL, banned_by=NULL, banned_at=NULL, updated_at=? WHERE id=?`,
		passwordHash, time.Now().UTC(), u.ID,
	)
	return err
}

// ModeratorEmails returns the non-empty addresses of unbanned moderators.
func (s *Store) ModeratorEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM users WHERE is_moderator=1 AND banned=0 AND email<>''`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}
