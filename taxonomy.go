package loam

import (
	"database/sql"
	"errors"
)

// ListCategories returns every category with the count of published posts in
// it. Counts are computed on each read, never stored.
func (s *Store) ListCategories() ([]Category, error) {
	var cats []Category
	err := s.db.Select(&cats, `
		SELECT c.id, c.name, c.slug, c.description, c.created_at,
		       COUNT(p.id) AS count
		FROM categories c
		LEFT JOIN posts p ON p.category_id = c.id AND p.status = ?
		GROUP BY c.id
		ORDER BY c.name`, StatusPublished)
	return cats, err
}

// GetCategory fetches one category by slug, with its published-post count.
func (s *Store) GetCategory(slug string) (*Category, error) {
	var c Category
	err := s.db.Get(&c, `
		SELECT c.id, c.name, c.slug, c.description, c.created_at,
		       COUNT(p.id) AS count
		FROM categories c
		LEFT JOIN posts p ON p.category_id = c.id AND p.status = ?
		WHERE c.slug = ?
		GROUP BY c.id`, StatusPublished, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory adds a category; the slug is derived from the name.
func (s *Store) CreateCategory(name, description string) error {
	_, err := s.db.Exec(
		`INSERT INTO categories (name, slug, description, created_at) VALUES (?, ?, ?, ?)`,
		name, Slugify(name), description, now(),
	)
	return translateErr(err, ErrDuplicateName)
}

// DeleteCategory removes a category when no published post references it.
// Posts in other states keep their category_id; it simply dangles to nothing.
func (s *Store) DeleteCategory(slug string) error {
	c, err := s.GetCategory(slug)
	if err != nil {
		return err
	}
	if c.Count > 0 {
		return ErrInUse
	}
	_, err = s.db.Exec(`DELETE FROM categories WHERE id = ?`, c.ID)
	return err
}

// ListTags returns every tag with the count of published posts carrying it.
func (s *Store) ListTags() ([]Tag, error) {
	var tags []Tag
	err := s.db.Select(&tags, `
		SELECT t.id, t.name, t.created_at,
		       COUNT(DISTINCT p.id) AS count
		FROM tags t
		LEFT JOIN post_tags pt ON pt.tag_id = t.id
		LEFT JOIN posts p ON p.id = pt.post_id AND p.status = ?
		GROUP BY t.id
		ORDER BY t.name`, StatusPublished)
	return tags, err
}

// CreateTag adds a tag by name.
func (s *Store) CreateTag(name string) error {
	_, err := s.db.Exec(
		`INSERT INTO tags (name, created_at) VALUES (?, ?)`, name, now(),
	)
	return translateErr(err, ErrDuplicateName)
}

// DeleteTag removes a tag when no published post carries it.
func (s *Store) DeleteTag(id int64) error {
	var count int
	err := s.db.Get(&count, `
		SELECT COUNT(DISTINCT p.id)
		FROM post_tags pt
		JOIN posts p ON p.id = pt.post_id AND p.status = ?
		WHERE pt.tag_id = ?`, StatusPublished, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse
	}
	if _, err := s.db.Exec(`DELETE FROM post_tags WHERE tag_id = ?`, id); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecountTags drops tag links pointing at deleted posts. Counts themselves
// are always computed on read, so there is no counter to rebuild.
func (s *Store) RecountTags() error {
	_, err := s.db.Exec(
		`DELETE FROM post_tags WHERE post_id NOT IN (SELECT id FROM posts)`)
	return err
}

func (s *Store) getOrCreateTag(name string) (int64, error) {
	var id int64
	err := s.db.Get(&id, `SELECT id FROM tags WHERE name = ?`, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := s.db.Exec(`INSERT INTO tags (name, created_at) VALUES (?, ?)`, name, now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// tagCloudMax returns the largest tag count, or 1 when there are no tags, so
// the tag-cloud weight math never divides by zero.
func tagCloudMax(tags []Tag) int {
	max := 0
	for _, t := range tags {
		if t.Count > max {
			max = t.Count
		}
	}
	if max == 0 {
		return 1
	}
	return max
}
