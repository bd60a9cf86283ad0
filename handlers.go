package loam

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const postsPerPage = 10

// pagination carries the numbers the list templates need.
type pagination struct {
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

func paginate(total, page, perPage int) (start, end int, p pagination) {
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start = (page - 1) * perPage
	end = start + perPage
	if end > total {
		end = total
	}
	p = pagination{
		Page:       page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevPage:   page - 1,
		NextPage:   page + 1,
	}
	return start, end, p
}

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Store.ListPosts(StatusPublished)
	if err != nil {
		return err
	}
	tags, err := a.Store.ListTags()
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	start, end, pg := paginate(len(posts), page, postsPerPage)

	return a.render(c, http.StatusOK, "home.html", map[string]any{
		"posts":         posts[start:end],
		"pagination":    pg,
		"tags":          tags,
		"max_tag_count": tagCloudMax(tags),
	})
}

func (a *App) handleViewPost(c echo.Context) error {
	post, err := a.Store.GetPublishedPost(c.Param("slug"))
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	all, err := a.Store.ListPosts(StatusPublished)
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "post.html", map[string]any{
		"post":    post,
		"related": relatedPosts(post, all, 3),
	})
}

// relatedPosts returns up to limit other posts sharing at least one tag with
// post, newest first.
func relatedPosts(post *Post, all []Post, limit int) []Post {
	tagSet := make(map[string]bool, len(post.Tags))
	for _, t := range post.Tags {
		tagSet[t] = true
	}
	var out []Post
	for _, p := range all {
		if p.ID == post.ID || len(out) == limit {
			continue
		}
		for _, t := range p.Tags {
			if tagSet[t] {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func (a *App) handleCategory(c echo.Context) error {
	cat, err := a.Store.GetCategory(c.Param("slug"))
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	all, err := a.Store.ListPosts(StatusPublished)
	if err != nil {
		return err
	}
	var posts []Post
	for _, p := range all {
		if p.CategoryID == cat.ID {
			posts = append(posts, p)
		}
	}
	return a.render(c, http.StatusOK, "category.html", map[string]any{
		"category": cat,
		"posts":    posts,
	})
}

func (a *App) handleTag(c echo.Context) error {
	name := c.Param("name")
	all, err := a.Store.ListPosts(StatusPublished)
	if err != nil {
		return err
	}
	var posts []Post
	for _, p := range all {
		for _, t := range p.Tags {
			if t == name {
				posts = append(posts, p)
				break
			}
		}
	}
	return a.render(c, http.StatusOK, "tag.html", map[string]any{
		"tag":   name,
		"posts": posts,
	})
}

// handleSearch matches the query against title, content, excerpt, and tags
// of published posts, case-insensitive.
func (a *App) handleSearch(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	var results []Post
	if q != "" {
		all, err := a.Store.ListPosts(StatusPublished)
		if err != nil {
			return err
		}
		needle := strings.ToLower(q)
		for _, p := range all {
			if postMatches(p, needle) {
				results = append(results, p)
			}
		}
	}
	return a.render(c, http.StatusOK, "search.html", map[string]any{
		"query":   q,
		"results": results,
	})
}

func postMatches(p Post, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Content), needle) ||
		strings.Contains(strings.ToLower(p.Excerpt), needle) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// handleUploads serves uploaded files, refusing anything that escapes the
// upload directory.
func (a *App) handleUploads(c echo.Context) error {
	name := c.Param("*")
	clean := filepath.Clean("/" + name)
	if strings.Contains(name, "..") {
		return echo.ErrNotFound
	}
	return c.File(filepath.Join(a.Config.UploadDir, clean))
}

// handlePage is the catch-all for published standalone pages.
func (a *App) handlePage(c echo.Context) error {
	page, err := a.Store.GetPublishedPage(c.Param("slug"))
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "page.html", map[string]any{
		"page": page,
	})
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, "User-agent: *\nDisallow: /admin\nDisallow: /login\nDisallow: /setup\n")
}
