package loam

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	maxUploadSize = 16 << 20 // 16MB
	jpegQuality   = 85
	thumbsSubdir  = "thumbnails"
)

// allowedExtensions is the upload allow-list. webp is accepted but decoded
// best-effort only; the standard library has no webp decoder, so such files
// are stored without dimensions or thumbnails.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// thumbnailSize is one bounding box the pipeline produces.
type thumbnailSize struct {
	Name string
	Max  int
}

// thumbnailSizes are generated in order; the first is the one stored on the
// media row as its thumbnail.
var thumbnailSizes = []thumbnailSize{
	{"thumbnail", 150},
	{"medium", 300},
	{"large", 1024},
}

func allowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// fitWithin scales (w, h) to fit inside a max×max box, preserving aspect.
// Images already inside the box keep their size; there is no upscaling.
func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, h * max / w
	}
	return w * max / h, max
}

// flatten composites img onto a white background, dropping any alpha
// channel. JPEG has no transparency; without this, transparent PNG regions
// come out black.
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

// scaleTo resizes img to exactly (w, h) with CatmullRom resampling.
func scaleTo(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func encodeImage(w *bytes.Buffer, img image.Image, ext string) error {
	switch ext {
	case ".png":
		return png.Encode(w, img)
	case ".gif":
		return gif.Encode(w, img, nil)
	default:
		return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: jpegQuality})
	}
}

// createThumbnails writes the scaled variants of img under
// uploads/thumbnails/, named <base>-<size><ext>. A size that fails to encode
// or write is logged and skipped; the rest still get made. Returns the
// filename of the first successful variant.
func (a *App) createThumbnails(img image.Image, storedName string) string {
	dir := filepath.Join(a.Config.UploadDir, thumbsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.Log.Error("create thumbnails dir", zap.Error(err))
		return ""
	}
	ext := strings.ToLower(filepath.Ext(storedName))
	base := strings.TrimSuffix(storedName, ext)
	bounds := img.Bounds()

	first := ""
	for _, size := range thumbnailSizes {
		w, h := fitWithin(bounds.Dx(), bounds.Dy(), size.Max)
		scaled := scaleTo(img, w, h)
		var buf bytes.Buffer
		if err := encodeImage(&buf, scaled, ext); err != nil {
			a.Log.Warn("encode thumbnail", zap.String("size", size.Name), zap.Error(err))
			continue
		}
		name := fmt.Sprintf("%s-%s%s", base, size.Name, ext)
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			a.Log.Warn("write thumbnail", zap.String("size", size.Name), zap.Error(err))
			continue
		}
		if first == "" {
			first = name
		}
	}
	return first
}

// saveUpload validates, stores, and thumbnails one uploaded file, returning
// the created media row.
func (a *App) saveUpload(fh *multipart.FileHeader) (*Media, error) {
	if !allowedExtension(fh.Filename) {
		return nil, fmt.Errorf("file type not allowed: %s", filepath.Ext(fh.Filename))
	}
	if fh.Size > maxUploadSize {
		return nil, fmt.Errorf("file too large (max %dMB)", maxUploadSize>>20)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	storedName := uuid.NewString() + ext

	if err := os.MkdirAll(a.Config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	path := filepath.Join(a.Config.UploadDir, storedName)

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	m := Media{
		Filename:         storedName,
		OriginalFilename: fh.Filename,
		MimeType:         fh.Header.Get("Content-Type"),
		FileSize:         fh.Size,
		Title:            strings.TrimSuffix(fh.Filename, ext),
	}

	// webp and broken files decode with an error; store them without
	// dimensions or thumbnails rather than rejecting the upload.
	if img, _, err := image.Decode(bytes.NewReader(buf.Bytes())); err == nil {
		bounds := img.Bounds()
		m.Width = bounds.Dx()
		m.Height = bounds.Dy()
		m.Thumbnail = a.createThumbnails(img, storedName)
	} else {
		a.Log.Warn("upload not decodable, stored without thumbnails",
			zap.String("filename", fh.Filename), zap.Error(err))
	}

	id, err := a.Store.AddMedia(m)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	m.ID = id
	a.decorateMedia(&m)
	return &m, nil
}

// decorateMedia fills the serving URLs.
func (a *App) decorateMedia(m *Media) {
	m.URL = "/uploads/" + m.Filename
	if m.Thumbnail != "" {
		m.ThumbnailURL = "/uploads/" + thumbsSubdir + "/" + m.Thumbnail
	}
}

// handleEditorUpload accepts the single-file upload the content editor makes
// and answers with the location the editor embeds.
func (a *App) handleEditorUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "no file provided"})
	}
	m, err := a.saveUpload(fh)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "location": m.URL, "id": m.ID})
}

// handleMediaUpload accepts the media library's multi-file upload and
// reports per-file success or failure.
func (a *App) handleMediaUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid upload"})
	}
	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "no files provided"})
	}

	type result struct {
		Filename string `json:"filename"`
		Success  bool   `json:"success"`
		Error    string `json:"error,omitempty"`
		ID       int64  `json:"id,omitempty"`
		URL      string `json:"url,omitempty"`
	}
	results := make([]result, 0, len(files))
	for _, fh := range files {
		m, err := a.saveUpload(fh)
		if err != nil {
			results = append(results, result{Filename: fh.Filename, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, result{Filename: fh.Filename, Success: true, ID: m.ID, URL: m.URL})
	}
	return c.JSON(http.StatusOK, echo.Map{"results": results})
}

// handleMediaLibrary renders the library page, or its JSON form for the
// picker dialogs.
func (a *App) handleMediaLibrary(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	search := c.QueryParam("search")
	lib, err := a.Store.MediaLibrary(page, search)
	if err != nil {
		return err
	}
	for i := range lib.Items {
		a.decorateMedia(&lib.Items[i])
	}
	if c.QueryParam("format") == "json" {
		return c.JSON(http.StatusOK, lib)
	}
	return a.render(c, http.StatusOK, "media_library.html", map[string]any{
		"library": lib,
		"search":  search,
	})
}

func (a *App) handleMediaGet(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := a.Store.GetMedia(id)
	if err == ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "media not found")
	}
	if err != nil {
		return err
	}
	a.decorateMedia(m)
	return c.JSON(http.StatusOK, m)
}

func (a *App) handleMediaUpdate(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var u MediaUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := a.Store.UpdateMedia(id, u); err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}
		return err
	}
	m, err := a.Store.GetMedia(id)
	if err != nil {
		return err
	}
	a.decorateMedia(m)
	return c.JSON(http.StatusOK, m)
}

func (a *App) handleMediaDelete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := a.Store.DeleteMedia(id)
	if err == ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "media not found")
	}
	if err != nil {
		return err
	}
	// Files already gone are fine.
	_ = os.Remove(filepath.Join(a.Config.UploadDir, m.Filename))
	ext := strings.ToLower(filepath.Ext(m.Filename))
	base := strings.TrimSuffix(m.Filename, ext)
	for _, size := range thumbnailSizes {
		_ = os.Remove(filepath.Join(a.Config.UploadDir, thumbsSubdir,
			fmt.Sprintf("%s-%s%s", base, size.Name, ext)))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
