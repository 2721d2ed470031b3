package store

import (
	"context"
	"database/sql"
	"time"

	"picshare/internal/models"
)

const albumColumns = `id,title,description,cover_image_id,owner_id,is_public,created_at,updated_at`

func scanAlbum(r rowScanner) (models.Album, error) {
	var a models.Album
	var isPublic int
	var cover sql.NullInt64
	err := r.Scan(&a.ID, &a.Title, &a.Description, &cover, &a.OwnerID, &isPublic, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Album{}, ErrNotFound
	}
	if err != nil {
		return models.Album{}, err
	}
	a.IsPublic = isPublic == 1
	a.CoverImageID = nullInt64Ptr(cover)
	return a, nil
}

func (s *Store) CreateAlbum(ctx context.Context, ownerID int64, title, description string, isPublic bool) (models.Album, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO albums(title,description,owner_id,is_public,created_at,updated_at) VALUES(?,?,?,?,?,?)`,
		title, description, ownerID, boolToInt(isPublic), now, now,
	)
	if err != nil {
		return models.Album{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Album{}, err
	}
	return s.GetAlbumByID(ctx, id)
}

// GetAlbumByID re-validates the cover reference on read: a cover that no
// longer belongs to the album is reported as unset.
func (s *Store) GetAlbumByID(ctx context.Context, id int64) (models.Album, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id=?`, id)
	a, err := scanAlbum(row)
	if err != nil {
		return models.Album{}, err
	}
	if a.CoverImageID != nil {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM album_images WHERE album_id=? AND image_id=?`, a.ID, *a.CoverImageID,
		).Scan(&n)
		if err != nil {
			return models.Album{}, err
		}
		if n == 0 {
			a.CoverImageID = nil
		}
	}
	return a, nil
}

func (s *Store) UpdateAlbum(ctx context.Context, id int64, title, description string, isPublic bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE albums SET title=?, description=?, is_public=?, updated_at=? WHERE id=?`,
		title, description, boolToInt(isPublic), time.Now().UTC(), id,
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

// DeleteAlbum cascades over the membership rows.
func (s *Store) DeleteAlbum(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE albums SET cover_image_id=NULL WHERE id=?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM album_images WHERE album_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id=?`, id)
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
	return tx.Commit()
}

func (s *Store) ListAlbumsByOwner(ctx context.Context, ownerID int64) ([]models.Album, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE owner_id=? ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddAlbumImage links an image into an album. Re-adding a member is a
// no-op and reports added=false. The first image added to a coverless
// album becomes its cover.
func (s *Store) AddAlbumImage(ctx context.Context, albumID, imageID int64) (added bool, err error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO album_images(album_id,image_id,added_at) VALUES(?,?,?) ON CONFLICT(album_id,image_id) DO NOTHING`,
		albumID, imageID, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE albums SET cover_image_id=? WHERE id=? AND cover_image_id IS NULL`, imageID, albumID,
	); err != nil {
		return true, err
	}
	return true, nil
}

// RemoveAlbumImage unlinks an image. When the removed image was the
// cover, the most recently added remaining member takes over, or the
// cover is cleared if the album emptied.
func (s *Store) RemoveAlbumImage(ctx context.Context, albumID, imageID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM album_images WHERE album_id=? AND image_id=?`, albumID, imageID,
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
	_, err = s.db.ExecContext(ctx,
		`UPDATE albums SET cover_image_id=(SELECT image_id FROM album_images WHERE album_id=? ORDER BY added_at DESC, image_id DESC LIMIT 1) WHERE id=? AND cover_image_id=?`,
		albumID, albumID, imageID,
	)
	return err
}

func (s *Store) ListAlbumImages(ctx context.Context, albumID int64) ([]models.Image, error) {
	return s.listImages(ctx,
		`SELECT i.id,i.title,i.description,i.filename,i.status,i.owner_id,i.reviewed_by,i.rejection_reason,i.is_public,i.created_at,i.updated_at
		 FROM images i JOIN album_images ai ON ai.image_id=i.id
		 WHERE ai.album_id=? ORDER BY ai.added_at ASC, i.id ASC`,
		albumID,
	)
}

func (s *Store) CountAlbumImages(ctx context.Context, albumID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM album_images WHERE album_id=?`, albumID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
