package loam

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *App) handleDashboard(c echo.Context) error {
	pages, err := a.Store.ListPages("")
	if err != nil {
		return err
	}
	posts, err := a.Store.ListPosts("")
	if err != nil {
		return err
	}
	admin, _ := a.Store.GetAdmin()
	return a.render(c, http.StatusOK, "admin.html", map[string]any{
		"pages":      pages,
		"posts":      posts,
		"two_factor": admin != nil && admin.Has2FA(),
	})
}

// formInput reads the shared content form fields.
func formInput(c echo.Context) PostInput {
	var tags []string
	for _, t := range strings.Split(c.FormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	// Anything that is not explicitly published stays hidden.
	status := c.FormValue("status")
	if status != StatusPublished {
		status = StatusDraft
	}
	return PostInput{
		Title:    strings.TrimSpace(c.FormValue("title")),
		Content:  c.FormValue("content"),
		Excerpt:  strings.TrimSpace(c.FormValue("excerpt")),
		Status:   status,
		Category: c.FormValue("category"),
		Tags:     tags,
	}
}

func (a *App) handleAddPageForm(c echo.Context) error {
	return a.render(c, http.StatusOK, "add_page.html", nil)
}

func (a *App) handleAddPage(c echo.Context) error {
	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		flash(c, "error", "Title is required.")
		return c.Redirect(http.StatusFound, "/page/add")
	}
	slug := Slugify(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(title)
	}
	status := c.FormValue("status")
	if status != StatusPublished {
		status = StatusDraft
	}
	err := a.Store.CreatePage(Page{
		Slug:        slug,
		Title:       title,
		Content:     c.FormValue("content"),
		Description: strings.TrimSpace(c.FormValue("description")),
		Status:      status,
	})
	if err == ErrDuplicateSlug {
		flash(c, "error", "A page with that slug already exists.")
		return c.Redirect(http.StatusFound, "/page/add")
	}
	if err != nil {
		return err
	}
	flash(c, "success", "Page created.")
	return c.Redirect(http.StatusFound, "/admin")
}

func (a *App) handleEditPageForm(c echo.Context) error {
	page, err := a.Store.GetPage(c.Param("slug"))
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "edit_page.html", map[string]any{"page": page})
}

func (a *App) handleEditPage(c echo.Context) error {
	slug := c.Param("slug")
	status := c.FormValue("status")
	if status != StatusPublished {
		status = StatusDraft
	}
	err := a.Store.UpdatePage(slug, Page{
		Title:       strings.TrimSpace(c.FormValue("title")),
		Content:     c.FormValue("content"),
		Description: strings.TrimSpace(c.FormValue("description")),
		Status:      status,
	})
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	flash(c, "success", "Page updated.")
	return c.Redirect(http.StatusFound, "/admin")
}

func (a *App) handleDeletePage(c echo.Context) error {
	switch err := a.Store.DeletePage(c.Param("slug")); err {
	case nil:
		flash(c, "success", "Page deleted.")
	case ErrNotFound:
		flash(c, "error", "Page not found.")
	default:
		return err
	}
	return c.Redirect(http.StatusFound, "/admin")
}

// handlePreviewPage renders a page in the public template regardless of its
// status, for the editor's preview link.
func (a *App) handlePreviewPage(c echo.Context) error {
	page, err := a.Store.GetPage(c.Param("slug"))
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "page.html", map[string]any{
		"page":    page,
		"preview": true,
	})
}

// handlePreviewDraft renders unsaved editor content without persisting it.
func (a *App) handlePreviewDraft(c echo.Context) error {
	page := &Page{
		Title:   strings.TrimSpace(c.FormValue("title")),
		Content: c.FormValue("content"),
		Status:  StatusDraft,
	}
	return a.render(c, http.StatusOK, "page.html", map[string]any{
		"page":    page,
		"preview": true,
	})
}

func (a *App) handleAddPostForm(c echo.Context) error {
	cats, err := a.Store.ListCategories()
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "add_post.html", map[string]any{"categories": cats})
}

func (a *App) handleAddPost(c echo.Context) error {
	in := formInput(c)
	if in.Title == "" {
		flash(c, "error", "Title is required.")
		return c.Redirect(http.StatusFound, "/post/add")
	}
	slug := Slugify(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(in.Title)
	}
	err := a.Store.CreatePost(slug, in)
	if err == ErrDuplicateSlug {
		flash(c, "error", "A post with that slug already exists.")
		return c.Redirect(http.StatusFound, "/post/add")
	}
	if err != nil {
		return err
	}
	flash(c, "success", "Post created.")
	return c.Redirect(http.StatusFound, "/admin")
}

func (a *App) handleEditPostForm(c echo.Context) error {
	post, err := a.Store.GetPost(c.Param("slug"))
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	cats, err := a.Store.ListCategories()
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "edit_post.html", map[string]any{
		"post":       post,
		"categories": cats,
	})
}

func (a *App) handleEditPost(c echo.Context) error {
	err := a.Store.UpdatePost(c.Param("slug"), formInput(c))
	if err == ErrNotFound {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	flash(c, "success", "Post updated.")
	return c.Redirect(http.StatusFound, "/admin")
}

func (a *App) handleDeletePost(c echo.Context) error {
	switch err := a.Store.DeletePost(c.Param("slug")); err {
	case nil:
		flash(c, "success", "Post deleted.")
	case ErrNotFound:
		flash(c, "error", "Post not found.")
	default:
		return err
	}
	return c.Redirect(http.StatusFound, "/admin")
}

func (a *App) handleSettingsPage(c echo.Context) error {
	themes, err := ListThemes(a.Config.ThemesDir)
	if err != nil {
		a.Log.Warn("list themes", zap.Error(err))
	}
	admin, _ := a.Store.GetAdmin()
	return a.render(c, http.StatusOK, "settings.html", map[string]any{
		"themes":     themes,
		"two_factor": admin != nil && admin.Has2FA(),
	})
}

func (a *App) handleMenuEditor(c echo.Context) error {
	return a.render(c, http.StatusOK, "menu_editor.html", nil)
}

func (a *App) handleTaxonomyPage(c echo.Context) error {
	cats, err := a.Store.ListCategories()
	if err != nil {
		return err
	}
	tags, err := a.Store.ListTags()
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "tags_and_categories.html", map[string]any{
		"categories": cats,
		"tags":       tags,
	})
}

func (a *App) handleAddCategory(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		flash(c, "error", "Category name is required.")
		return c.Redirect(http.StatusFound, "/admin/tags-and-categories")
	}
	err := a.Store.CreateCategory(name, strings.TrimSpace(c.FormValue("description")))
	switch err {
	case nil:
		flash(c, "success", "Category added.")
	case ErrDuplicateName:
		flash(c, "error", "That category already exists.")
	default:
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/tags-and-categories")
}

func (a *App) handleDeleteCategory(c echo.Context) error {
	err := a.Store.DeleteCategory(c.Param("slug"))
	switch err {
	case nil:
		flash(c, "success", "Category deleted.")
	case ErrInUse:
		flash(c, "error", "Category still has published posts.")
	case ErrNotFound:
		flash(c, "error", "Category not found.")
	default:
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/tags-and-categories")
}

func (a *App) handleAddTag(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		flash(c, "error", "Tag name is required.")
		return c.Redirect(http.StatusFound, "/admin/tags-and-categories")
	}
	err := a.Store.CreateTag(name)
	switch err {
	case nil:
		flash(c, "success", "Tag added.")
	case ErrDuplicateName:
		flash(c, "error", "That tag already exists.")
	default:
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/tags-and-categories")
}

func (a *App) handleDeleteTag(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		flash(c, "error", "Invalid tag.")
		return c.Redirect(http.StatusFound, "/admin/tags-and-categories")
	}
	switch err := a.Store.DeleteTag(id); err {
	case nil:
		flash(c, "success", "Tag deleted.")
	case ErrInUse:
		flash(c, "error", "Tag still has published posts.")
	case ErrNotFound:
		flash(c, "error", "Tag not found.")
	default:
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/tags-and-categories")
}

func (a *App) handleAPISettingsGet(c echo.Context) error {
	settings, err := a.Store.Settings()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// handleAPISettingsPost upserts settings from a JSON body. A theme change
// reloads the template set immediately.
func (a *App) handleAPISettingsPost(c echo.Context) error {
	var values map[string]any
	if err := c.Bind(&values); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := a.Store.UpdateSettings(values); err != nil {
		a.Log.Error("update settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false})
	}
	if name, ok := values["theme"].(string); ok && name != "" {
		if err := a.reloadTheme(name); err != nil {
			a.Log.Error("reload theme", zap.String("theme", name), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (a *App) handleAPIMenuGet(c echo.Context) error {
	settings, err := a.Store.Settings()
	if err != nil {
		return err
	}
	items, ok := settings["menu_items"].([]any)
	if !ok {
		items = []any{}
	}
	return c.JSON(http.StatusOK, echo.Map{"menu_items": items})
}

func (a *App) handleAPIMenuPost(c echo.Context) error {
	var body struct {
		MenuItems []map[string]string `json:"menu_items"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := a.Store.UpdateSettings(map[string]any{"menu_items": body.MenuItems}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// handleAPICheckSlug reports whether a slug is free for the given content
// type and suggests the next free one. Advisory: creation still enforces
// uniqueness atomically.
func (a *App) handleAPICheckSlug(c echo.Context) error {
	slug := Slugify(c.QueryParam("slug"))
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug required")
	}
	taken := a.Store.PostSlugTaken
	if c.QueryParam("type") == "page" {
		taken = a.Store.PageSlugTaken
	}
	unique := !taken(slug)
	suggestion := slug
	if !unique {
		suggestion = SuggestSlug(slug, taken)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slug":           slug,
		"unique":         unique,
		"suggested_slug": suggestion,
	})
}
