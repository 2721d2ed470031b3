package store

import (
	"context"
	"database/sql"
	"time"

	"picshare/internal/models"
)

const imageColumns = `id,title,description,filename,status,owner_id,reviewed_by,rejection_reason,is_public,created_at,updated_at`

func scanImage(r rowScanner) (models.Image, error) {
	var img models.Image
	var status string
	var isPublic int
	var reviewedBy sql.NullInt64
	var rejectionReason sql.NullString
	err := r.Scan(
		&img.ID, &img.Title, &img.Description, &img.Filename, &status,
		&img.OwnerID, &reviewedBy, &rejectionReason, &isPublic,
		&img.CreatedAt, &img.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Image{}, ErrNotFound
	}
	if err != nil {
		return models.Image{}, err
	}
	img.Status = models.ImageStatus(status)
	img.IsPublic = isPublic == 1
	img.ReviewedBy = nullInt64Ptr(reviewedBy)
	img.RejectionReason = nullStringPtr(rejectionReason)
	return img, nil
}

// CreateImage inserts a new submission in the pending state.
func (s *Store) CreateImage(ctx context.Context, ownerID int64, title, description, filename string, isPublic bool) (models.Image, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images(title,description,filename,status,owner_id,is_public,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?)`,
		title, description, filename, models.ImagePending, ownerID, boolToInt(isPublic), now, now,
	)
	if err != nil {
		return models.Image{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Image{}, err
	}
	return s.GetImageByID(ctx, id)
}

func (s *Store) GetImageByID(ctx context.Context, id int64) (models.Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id=?`, id)
	return scanImage(row)
}

// DecideImage transitions a pending image to approved or rejected. The
// guard lives in the statement itself: a row that is no longer pending
// is left untouched and reported as ErrConflict.
func (s *Store) DecideImage(ctx context.Context, imageID int64, status models.ImageStatus, reviewerID int64, reason *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE images SET status=?, reviewed_by=?, rejection_reason=?, updated_at=? WHERE id=? AND status='pending'`,
		status, reviewerID, reason, time.Now().UTC(), imageID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetImageByID(ctx, imageID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// SetImageVisibility toggles public/private without touching the
// moderation timestamp.
func (s *Store) SetImageVisibility(ctx context.Context, imageID int64, isPublic bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE images SET is_public=? WHERE id=?`, boolToInt(isPublic), imageID)
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

// DeleteImage removes the row together with its album memberships and
// re-derives any album cover that pointed at it.
func (s *Store) DeleteImage(ctx context.Context, imageID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	albumIDs := []int64{}
	rows, err := tx.QueryContext(ctx, `SELECT album_id FROM album_images WHERE image_id=?`, imageID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		albumIDs = append(albumIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM album_images WHERE image_id=?`, imageID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE albums SET cover_image_id=NULL WHERE cover_image_id=?`, imageID); err != nil {
		return err
	}
	for _, albumID := range albumIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE albums SET cover_image_id=(SELECT image_id FROM album_images WHERE album_id=? ORDER BY added_at DESC, image_id DESC LIMIT 1) WHERE id=? AND cover_image_id IS NULL`,
			albumID, albumID,
		); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id=?`, imageID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ListPublicApproved is the anonymous gallery view.
func (s *Store) ListPublicApproved(ctx context.Context, limit, offset int) ([]models.Image, error) {
	return s.listImages(ctx,
		`SELECT `+imageColumns+` FROM images WHERE status='approved' AND is_public=1 ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

func (s *Store) ListImagesByOwner(ctx context.Context, ownerID int64) ([]models.Image, error) {
	return s.listImages(ctx,
		`SELECT `+imageColumns+` FROM images WHERE owner_id=? ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
}

// ListPendingImages returns the moderation queue, oldest first.
func (s *Store) ListPendingImages(ctx context.Context, limit, offset int) ([]models.Image, error) {
	return s.listImages(ctx,
		`SELECT `+imageColumns+` FROM images WHERE status='pending' ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

func (s *Store) listImages(ctx context.Context, query string, args ...any) ([]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// ModerationStats counts the queue plus decisions whose update
// timestamp falls on or after dayStart.
func (s *Store) ModerationStats(ctx context.Context, dayStart time.Time) (models.ModerationStats, error) {
	var stats models.ModerationStats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM images WHERE status='pending'`).Scan(&stats.Pending); err != nil {
		return models.ModerationStats{}, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM images WHERE status='approved' AND updated_at>=?`, dayStart,
	).Scan(&stats.ApprovedToday); err != nil {
		return models.ModerationStats{}, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM images WHERE status='rejected' AND updated_at>=?`, dayStart,
	).Scan(&stats.RejectedToday); err != nil {
		return models.ModerationStats{}, err
	}
	return stats, nil
}
