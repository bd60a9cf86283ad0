package loam

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const mediaPerPage = 20

// AddMedia inserts a media row and returns its id.
func (s *Store) AddMedia(m Media) (int64, error) {
	ts := now()
	res, err := s.db.Exec(`
		INSERT INTO media (filename, original_filename, mime_type, file_size, width, height,
		                   alt_text, caption, title, description, thumbnail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Filename, m.OriginalFilename, m.MimeType, m.FileSize, m.Width, m.Height,
		m.AltText, m.Caption, m.Title, m.Description, m.Thumbnail, ts, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MediaLibrary returns one page of media, newest first, optionally filtered
// by a search term over the original filename, title, and description.
func (s *Store) MediaLibrary(page int, search string) (*MediaPage, error) {
	if page < 1 {
		page = 1
	}
	where := sq.And{}
	if search != "" {
		like := "%" + search + "%"
		where = append(where, sq.Or{
			sq.Like{"original_filename": like},
			sq.Like{"title": like},
			sq.Like{"description": like},
		})
	}

	countQ, countArgs, err := sq.Select("COUNT(*)").From("media").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var total int
	if err := s.db.Get(&total, countQ, countArgs...); err != nil {
		return nil, err
	}

	totalPages := (total + mediaPerPage - 1) / mediaPerPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	q, args, err := sq.Select("*").From("media").Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(mediaPerPage)).
		Offset(uint64((page - 1) * mediaPerPage)).
		ToSql()
	if err != nil {
		return nil, err
	}
	items := []Media{}
	if err := s.db.Select(&items, q, args...); err != nil {
		return nil, err
	}
	return &MediaPage{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		PerPage:    mediaPerPage,
	}, nil
}

// GetMedia fetches one media row by id.
func (s *Store) GetMedia(id int64) (*Media, error) {
	var m Media
	err := s.db.Get(&m, `SELECT * FROM media WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMedia applies a partial metadata update; nil fields stay as they are.
func (s *Store) UpdateMedia(id int64, u MediaUpdate) error {
	b := sq.Update("media").Set("updated_at", now()).Where(sq.Eq{"id": id})
	if u.AltText != nil {
		b = b.Set("alt_text", *u.AltText)
	}
	if u.Caption != nil {
		b = b.Set("caption", *u.Caption)
	}
	if u.Title != nil {
		b = b.Set("title", *u.Title)
	}
	if u.Description != nil {
		b = b.Set("description", *u.Description)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.Exec(q, args...)
	if err != nil {
		return fmt.Errorf("update media %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMedia removes the row and returns it so the caller can clean up the
// files on disk.
func (s *Store) DeleteMedia(id int64) (*Media, error) {
	m, err := s.GetMedia(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`DELETE FROM media WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return m, nil
}
