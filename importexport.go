package loam

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const exportVersion = "1.0"

type exportDoc struct {
	XMLName    xml.Name     `xml:"loam_export"`
	Version    string       `xml:"version,attr"`
	ExportedAt string       `xml:"exported_at,attr"`
	Pages      []exportPage `xml:"pages>page"`
	Posts      []exportPost `xml:"posts>post"`
}

type exportPage struct {
	Slug        string `xml:"slug,attr"`
	Title       string `xml:"title"`
	Content     string `xml:"content"`
	Description string `xml:"description"`
	Status      string `xml:"status"`
	CreatedAt   string `xml:"created_at"`
	UpdatedAt   string `xml:"updated_at"`
}

type exportPost struct {
	Slug        string   `xml:"slug,attr"`
	Title       string   `xml:"title"`
	Content     string   `xml:"content"`
	Excerpt     string   `xml:"excerpt"`
	Status      string   `xml:"status"`
	Category    string   `xml:"category"`
	Tags        []string `xml:"tags>item"`
	CreatedAt   string   `xml:"created_at"`
	UpdatedAt   string   `xml:"updated_at"`
	PublishedAt string   `xml:"published_at"`
}

// handleExport streams the whole content set as XML.
func (a *App) handleExport(c echo.Context) error {
	pages, err := a.Store.ListPages("")
	if err != nil {
		return err
	}
	posts, err := a.Store.ListPosts("")
	if err != nil {
		return err
	}

	doc := exportDoc{
		Version:    exportVersion,
		ExportedAt: now(),
	}
	for _, p := range pages {
		doc.Pages = append(doc.Pages, exportPage{
			Slug:        p.Slug,
			Title:       p.Title,
			Content:     p.Content,
			Description: p.Description,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	for _, p := range posts {
		category := ""
		if p.Category != nil {
			category = p.Category.Slug
		}
		doc.Posts = append(doc.Posts, exportPost{
			Slug:        p.Slug,
			Title:       p.Title,
			Content:     p.Content,
			Excerpt:     p.Excerpt,
			Status:      p.Status,
			Category:    category,
			Tags:        p.Tags,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
			PublishedAt: p.PublishedAt,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	site := Slugify(a.Store.SettingString("site_title"))
	if site == "" {
		site = "site"
	}
	filename := fmt.Sprintf("loam_%s_export_%s_%s.xml",
		exportVersion, site, time.Now().UTC().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, echo.MIMEApplicationXML, append([]byte(xml.Header), out...))
}

func (a *App) handleImportForm(c echo.Context) error {
	return a.render(c, http.StatusOK, "import.html", nil)
}

// handleImport inserts pages and posts from an uploaded export file. Slugs
// that already exist are skipped and reported; everything else is inserted.
func (a *App) handleImport(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		flash(c, "error", "No file provided.")
		return c.Redirect(http.StatusFound, "/admin/import")
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	var doc exportDoc
	if err := xml.NewDecoder(src).Decode(&doc); err != nil {
		a.Log.Warn("import parse failed", zap.String("filename", fh.Filename), zap.Error(err))
		flash(c, "error", "Import failed: the file is not a valid export.")
		return c.Redirect(http.StatusFound, "/admin/import")
	}

	var imported, skipped []string
	for _, p := range doc.Pages {
		if p.Slug == "" {
			continue
		}
		err := a.Store.CreatePage(Page{
			Slug:        p.Slug,
			Title:       p.Title,
			Content:     p.Content,
			Description: p.Description,
			Status:      importStatus(p.Status),
		})
		if err == ErrDuplicateSlug {
			skipped = append(skipped, p.Slug)
			continue
		}
		if err != nil {
			return err
		}
		imported = append(imported, p.Slug)
	}
	for _, p := range doc.Posts {
		if p.Slug == "" {
			continue
		}
		err := a.Store.CreatePost(p.Slug, PostInput{
			Title:    p.Title,
			Content:  p.Content,
			Excerpt:  p.Excerpt,
			Status:   importStatus(p.Status),
			Category: p.Category,
			Tags:     p.Tags,
		})
		if err == ErrDuplicateSlug {
			skipped = append(skipped, p.Slug)
			continue
		}
		if err != nil {
			return err
		}
		imported = append(imported, p.Slug)
	}

	if err := a.Store.RecountTags(); err != nil {
		a.Log.Error("recount tags after import", zap.Error(err))
	}

	msg := fmt.Sprintf("Imported %d items.", len(imported))
	if len(skipped) > 0 {
		msg += fmt.Sprintf(" Skipped %d existing: %s.", len(skipped), strings.Join(skipped, ", "))
	}
	flash(c, "success", msg)
	return c.Redirect(http.StatusFound, "/admin/import")
}

func importStatus(s string) string {
	if s == StatusDraft {
		return StatusDraft
	}
	return StatusPublished
}
