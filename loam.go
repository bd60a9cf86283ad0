// Package loam is a small content management system built with Go, Echo, and
// SQLite. It provides pages, blog posts with categories and tags, a media
// library with thumbnailing, site settings, swappable filesystem themes, and
// XML import/export behind a single-admin dashboard.
package loam

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// App is the central loam application. It wires together config, store,
// theme engine, middleware, and routes.
type App struct {
	Config *Config
	Echo   *echo.Echo
	Store  *Store
	Theme  *Theme
	Log    *zap.Logger

	loginLimiter *loginLimiter
}

// New creates an App with the given configuration and logger.
func New(cfg *Config, log *zap.Logger) *App {
	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.Debug
	return &App{
		Config: cfg,
		Echo:   e,
		Log:    log,
	}
}

// Start initializes the store, theme, middleware, and routes, then serves
// until the listener fails or the server is shut down.
func (a *App) Start() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("loam: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("loam: init store: %w", err)
	}
	a.Store = store

	themeName := a.Store.SettingString("theme")
	if themeName == "" {
		themeName = "default"
	}
	if err := a.reloadTheme(themeName); err != nil {
		return fmt.Errorf("loam: load theme %q: %w", themeName, err)
	}

	a.loginLimiter = newLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	a.Log.Info("starting server",
		zap.String("addr", a.Config.Addr),
		zap.String("theme", themeName),
	)
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// reloadTheme swaps the active template set. Safe to call while serving; the
// pointer swap is the only shared state.
func (a *App) reloadTheme(name string) error {
	theme, err := LoadTheme(a.Config.ThemesDir, name, a.Log)
	if err != nil {
		return err
	}
	a.Theme = theme
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/metrics", echoprometheus.NewHandler())
	e.Static("/static", "static")
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/uploads/*", a.handleUploads)

	// Public
	e.GET("/", a.handleHome)
	e.GET("/post/:slug", a.handleViewPost)
	e.GET("/category/:slug", a.handleCategory)
	e.GET("/tag/:name", a.handleTag)
	e.GET("/search", a.handleSearch)

	// Auth
	e.GET("/setup", a.handleSetupForm)
	e.POST("/setup", a.handleSetup)
	e.GET("/login", a.handleLoginForm)
	e.POST("/login", a.handleLogin)
	e.GET("/logout", a.handleLogout)

	// Admin
	admin := e.Group("/admin", requireLogin)
	admin.GET("", a.handleDashboard)
	admin.GET("/settings", a.handleSettingsPage)
	admin.GET("/menu", a.handleMenuEditor)
	admin.GET("/tags-and-categories", a.handleTaxonomyPage)
	admin.POST("/category/add", a.handleAddCategory)
	admin.POST("/category/delete/:slug", a.handleDeleteCategory)
	admin.POST("/tag/add", a.handleAddTag)
	admin.POST("/tag/delete/:id", a.handleDeleteTag)
	admin.GET("/media", a.handleMediaLibrary)
	admin.POST("/media/upload", a.handleMediaUpload)
	admin.GET("/media/:id", a.handleMediaGet)
	admin.PUT("/media/:id", a.handleMediaUpdate)
	admin.DELETE("/media/:id", a.handleMediaDelete)
	admin.GET("/export", a.handleExport)
	admin.GET("/import", a.handleImportForm)
	admin.POST("/import", a.handleImport)
	admin.GET("/enable-2fa", a.handleEnable2FA)
	admin.GET("/2fa-setup", a.handle2FASetupForm)
	admin.POST("/2fa-setup", a.handle2FASetup)
	admin.GET("/disable-2fa", a.handleDisable2FA)

	// Content editing
	page := e.Group("/page", requireLogin)
	page.GET("/add", a.handleAddPageForm)
	page.POST("/add", a.handleAddPage)
	page.GET("/edit/:slug", a.handleEditPageForm)
	page.POST("/edit/:slug", a.handleEditPage)
	page.GET("/preview/:slug", a.handlePreviewPage)
	page.POST("/preview_draft", a.handlePreviewDraft)
	page.GET("/delete/:slug", a.handleDeletePage)

	post := e.Group("/post", requireLogin)
	post.GET("/add", a.handleAddPostForm)
	post.POST("/add", a.handleAddPost)
	post.GET("/edit/:slug", a.handleEditPostForm)
	post.POST("/edit/:slug", a.handleEditPost)
	post.GET("/delete/:slug", a.handleDeletePost)

	e.POST("/upload_image", a.handleEditorUpload, requireLogin)

	// JSON APIs
	api := e.Group("/api", requireLogin)
	api.GET("/settings", a.handleAPISettingsGet)
	api.POST("/settings", a.handleAPISettingsPost)
	api.GET("/menu", a.handleAPIMenuGet)
	api.POST("/menu", a.handleAPIMenuPost)
	api.GET("/check_slug", a.handleAPICheckSlug)

	// Published pages, last so named routes win.
	e.GET("/:slug", a.handlePage)
}

// Close cleans up resources. Call when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
