package loam

import (
	"database/sql"
	"errors"
	"fmt"
)

// CreatePage inserts a page. The slug must be unique across pages.
func (s *Store) CreatePage(p Page) error {
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO pages (slug, title, content, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Content, p.Description, p.Status, ts, ts,
	)
	return translateErr(err, ErrDuplicateSlug)
}

// GetPage fetches a page by slug regardless of status.
func (s *Store) GetPage(slug string) (*Page, error) {
	var p Page
	err := s.db.Get(&p, `SELECT * FROM pages WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPublishedPage fetches a page by slug, published only.
func (s *Store) GetPublishedPage(slug string) (*Page, error) {
	var p Page
	err := s.db.Get(&p, `SELECT * FROM pages WHERE slug = ? AND status = ?`, slug, StatusPublished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPages returns pages ordered by creation time, newest first. An empty
// status returns every page.
func (s *Store) ListPages(status string) ([]Page, error) {
	var pages []Page
	var err error
	if status == "" {
		err = s.db.Select(&pages, `SELECT * FROM pages ORDER BY created_at DESC`)
	} else {
		err = s.db.Select(&pages, `SELECT * FROM pages WHERE status = ? ORDER BY created_at DESC`, status)
	}
	return pages, err
}

// UpdatePage replaces a page's editable fields. The slug itself is immutable.
func (s *Store) UpdatePage(slug string, p Page) error {
	res, err := s.db.Exec(
		`UPDATE pages SET title = ?, content = ?, description = ?, status = ?, updated_at = ? WHERE slug = ?`,
		p.Title, p.Content, p.Description, p.Status, now(), slug,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePage removes a page by slug.
func (s *Store) DeletePage(slug string) error {
	res, err := s.db.Exec(`DELETE FROM pages WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePost inserts a post with its category and tags. The category is given
// by slug; an unknown or empty slug leaves the post uncategorized. Tags are
// created on first use. A post created as published gets published_at stamped
// immediately.
func (s *Store) CreatePost(slug string, in PostInput) error {
	catID, err := s.categoryIDBySlug(in.Category)
	if err != nil {
		return err
	}
	ts := now()
	publishedAt := ""
	if in.Status == StatusPublished {
		publishedAt = ts
	}
	res, err := s.db.Exec(
		`INSERT INTO posts (slug, title, content, excerpt, status, category_id, created_at, updated_at, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slug, in.Title, in.Content, in.Excerpt, in.Status, catID, ts, ts, publishedAt,
	)
	if err != nil {
		return translateErr(err, ErrDuplicateSlug)
	}
	postID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return s.setPostTags(postID, in.Tags)
}

// GetPost fetches a post by slug with its category and tags resolved.
func (s *Store) GetPost(slug string) (*Post, error) {
	var p Post
	err := s.db.Get(&p, `SELECT * FROM posts WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.hydratePost(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPublishedPost fetches a post by slug, published only.
func (s *Store) GetPublishedPost(slug string) (*Post, error) {
	p, err := s.GetPost(slug)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPublished {
		return nil, ErrNotFound
	}
	return p, nil
}

// ListPosts returns posts newest first, with categories and tags resolved.
// An empty status returns every post.
func (s *Store) ListPosts(status string) ([]Post, error) {
	var posts []Post
	var err error
	if status == "" {
		err = s.db.Select(&posts, `SELECT * FROM posts ORDER BY created_at DESC`)
	} else {
		err = s.db.Select(&posts, `SELECT * FROM posts WHERE status = ? ORDER BY created_at DESC`, status)
	}
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if err := s.hydratePost(&posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// UpdatePost replaces a post's editable fields, category, and tag set. The
// first transition into published stamps published_at; later edits never
// touch it.
func (s *Store) UpdatePost(slug string, in PostInput) error {
	var cur Post
	err := s.db.Get(&cur, `SELECT * FROM posts WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	catID, err := s.categoryIDBySlug(in.Category)
	if err != nil {
		return err
	}
	publishedAt := cur.PublishedAt
	if in.Status == StatusPublished && publishedAt == "" {
		publishedAt = now()
	}
	_, err = s.db.Exec(
		`UPDATE posts SET title = ?, content = ?, excerpt = ?, status = ?, category_id = ?, updated_at = ?, published_at = ?
		 WHERE id = ?`,
		in.Title, in.Content, in.Excerpt, in.Status, catID, now(), publishedAt, cur.ID,
	)
	if err != nil {
		return err
	}
	return s.setPostTags(cur.ID, in.Tags)
}

// DeletePost removes a post and its tag links.
func (s *Store) DeletePost(slug string) error {
	var id int64
	err := s.db.Get(&id, `SELECT id FROM posts WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	return err
}

// PostSlugTaken reports whether any post (draft or published) uses the slug.
func (s *Store) PostSlugTaken(slug string) bool {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM posts WHERE slug = ?`, slug); err != nil {
		return false
	}
	return n > 0
}

// PageSlugTaken reports whether any page uses the slug.
func (s *Store) PageSlugTaken(slug string) bool {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM pages WHERE slug = ?`, slug); err != nil {
		return false
	}
	return n > 0
}

// hydratePost fills the computed Category and Tags fields.
func (s *Store) hydratePost(p *Post) error {
	p.Tags = []string{}
	if err := s.db.Select(&p.Tags,
		`SELECT t.name FROM tags t JOIN post_tags pt ON pt.tag_id = t.id WHERE pt.post_id = ? ORDER BY t.name`,
		p.ID,
	); err != nil {
		return fmt.Errorf("load tags for post %d: %w", p.ID, err)
	}
	if p.CategoryID != 0 {
		var c Category
		err := s.db.Get(&c,
			`SELECT id, name, slug, description, created_at, 0 AS count FROM categories WHERE id = ?`,
			p.CategoryID,
		)
		if err == nil {
			p.Category = &c
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}
	return nil
}

// setPostTags replaces a post's tag links, creating unknown tags.
func (s *Store) setPostTags(postID int64, tags []string) error {
	if _, err := s.db.Exec(`DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return err
	}
	for _, name := range tags {
		if name == "" {
			continue
		}
		id, err := s.getOrCreateTag(name)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, id,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) categoryIDBySlug(slug string) (int64, error) {
	if slug == "" {
		return 0, nil
	}
	var id int64
	err := s.db.Get(&id, `SELECT id FROM categories WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}
