package loam

// Content status values. Drafts are excluded from all public listings.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// Page is a standalone content page served at /<slug>.
type Page struct {
	ID          int64  `db:"id" json:"id"`
	Slug        string `db:"slug" json:"slug"`
	Title       string `db:"title" json:"title"`
	Content     string `db:"content" json:"content"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status" json:"status"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at"`
}

// Post is a blog post with optional category and tags.
// PublishedAt is stamped the first time the post enters the published state
// and is never overwritten afterwards.
type Post struct {
	ID          int64  `db:"id" json:"id"`
	Slug        string `db:"slug" json:"slug"`
	Title       string `db:"title" json:"title"`
	Content     string `db:"content" json:"content"`
	Excerpt     string `db:"excerpt" json:"excerpt"`
	Status      string `db:"status" json:"status"`
	CategoryID  int64  `db:"category_id" json:"-"` // 0 = uncategorized
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at"`
	PublishedAt string `db:"published_at" json:"published_at"` // "" until first publish

	Category *Category `db:"-" json:"category,omitempty"`
	Tags     []string  `db:"-" json:"tags"`
}

// PostInput carries the mutable fields of a post through create and edit.
// Category is a category slug; an unknown slug leaves the post uncategorized.
type PostInput struct {
	Title    string
	Content  string
	Excerpt  string
	Status   string
	Category string
	Tags     []string
}

// Category groups posts. Count is computed per read as the number of
// published posts in the category; it has no column of its own.
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	Count       int    `db:"count" json:"count"`
}

// Tag labels posts. Count is computed per read as the number of published
// posts carrying the tag — there is no stored counter to drift.
type Tag struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"created_at"`
	Count     int    `db:"count" json:"count"`
}

// Media is an uploaded file in the media library.
type Media struct {
	ID               int64  `db:"id" json:"id"`
	Filename         string `db:"filename" json:"filename"`
	OriginalFilename string `db:"original_filename" json:"original_filename"`
	MimeType         string `db:"mime_type" json:"mime_type"`
	FileSize         int64  `db:"file_size" json:"file_size"`
	Width            int    `db:"width" json:"width"`
	Height           int    `db:"height" json:"height"`
	AltText          string `db:"alt_text" json:"alt_text"`
	Caption          string `db:"caption" json:"caption"`
	Title            string `db:"title" json:"title"`
	Description      string `db:"description" json:"description"`
	Thumbnail        string `db:"thumbnail" json:"thumbnail"`
	CreatedAt        string `db:"created_at" json:"created_at"`
	UpdatedAt        string `db:"updated_at" json:"updated_at"`

	URL          string `db:"-" json:"url"`
	ThumbnailURL string `db:"-" json:"thumbnail_url,omitempty"`
}

// MediaUpdate holds a partial metadata update; nil fields are left untouched.
type MediaUpdate struct {
	AltText     *string `json:"alt_text"`
	Caption     *string `json:"caption"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// MediaPage is one page of the media library.
type MediaPage struct {
	Items      []Media `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	PerPage    int     `json:"per_page"`
}

// AdminAccount is the singleton admin row. Password holds a bcrypt hash.
type AdminAccount struct {
	ID           int64  `db:"id"`
	IsConfigured bool   `db:"is_configured"`
	Username     string `db:"username"`
	Password     string `db:"password"`
	Email        string `db:"email"`
	TwoFASecret  string `db:"two_fa_secret"`
	TwoFAEnabled bool   `db:"two_fa_enabled"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

// Has2FA reports whether two-factor auth is both enabled and provisioned.
func (a *AdminAccount) Has2FA() bool {
	return a.TwoFAEnabled && a.TwoFASecret != ""
}
