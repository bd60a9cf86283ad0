package loam

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Sentinel errors surfaced by store operations. Handlers translate these
// into flash messages or JSON error payloads; they never crash a request.
var (
	ErrNotFound      = errors.New("loam: not found")
	ErrDuplicateSlug = errors.New("loam: duplicate slug")
	ErrDuplicateName = errors.New("loam: duplicate name")
	ErrInUse         = errors.New("loam: still referenced by published posts")
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know a bind
	// type for out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store wraps the SQLite database and provides CRUD for all CMS entities.
// Every method opens and finishes its own statement; there are no
// multi-request transactions.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, runs schema migrations, and seeds default content on an
// empty database.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write, busy timeout so writers wait instead of
	// failing with SQLITE_BUSY, synchronous=NORMAL is safe under WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	if err := s.seedDefaults(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'published',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    excerpt TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'published',
    category_id INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    published_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS post_tags (
    post_id INTEGER NOT NULL,
    tag_id INTEGER NOT NULL,
    PRIMARY KEY (post_id, tag_id)
);
CREATE TABLE IF NOT EXISTS site_settings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT NOT NULL UNIQUE,
    value TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS media (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    original_filename TEXT NOT NULL,
    mime_type TEXT NOT NULL DEFAULT '',
    file_size INTEGER NOT NULL DEFAULT 0,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    alt_text TEXT NOT NULL DEFAULT '',
    caption TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    thumbnail TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS admin_setup (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    is_configured INTEGER NOT NULL DEFAULT 0,
    username TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    two_fa_secret TEXT NOT NULL DEFAULT '',
    two_fa_enabled INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status);
CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category_id);
`)
	return err
}

// seedDefaults installs the stock categories, pages, and settings on a fresh
// database. A database with any site_settings row is left alone.
func (s *Store) seedDefaults() error {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM site_settings`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := s.CreateCategory("General", "General posts"); err != nil {
		return err
	}
	if err := s.CreateCategory("Technology", "Tech related posts"); err != nil {
		return err
	}
	pages := []Page{
		{Slug: "home", Title: "Home", Content: "Welcome to the home page!", Description: "This is the home page.", Status: StatusPublished},
		{Slug: "about", Title: "About", Content: "This is the about page.", Description: "This is the about page.", Status: StatusPublished},
	}
	for _, p := range pages {
		if err := s.CreatePage(p); err != nil {
			return err
		}
	}
	return s.UpdateSettings(map[string]any{
		"site_title":       "Loam",
		"site_description": "A small content management system",
		"favicon":          "/static/favicon.ico",
		"logo":             "/static/logo.png",
		"custom_analytics": "",
		"homepage":         "home",
		"privacy_page":     "",
		"terms_page":       "",
		"social_links":     map[string]string{"facebook": "", "twitter": "", "instagram": ""},
		"theme":            "default",
		"menu_items": []map[string]string{
			{"label": "Home", "url": "/home"},
			{"label": "About", "url": "/about"},
		},
	})
}

// now returns the RFC3339 UTC timestamp used for all columns.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// translateErr maps driver errors onto the store's sentinel errors.
func translateErr(err error, dup error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return dup
	}
	return err
}

// jsonOrString decodes a settings value: JSON where it parses, raw string
// otherwise.
func jsonOrString(raw string) any {
	if raw == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch v.(type) {
		case map[string]any, []any, float64, bool:
			return v
		}
	}
	return raw
}
