package loam

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T) (*App, func()) {
	t.Helper()
	s, cleanup := setupTestStore(t)
	a := &App{
		Config: &Config{UploadDir: t.TempDir(), ThemesDir: t.TempDir()},
		Echo:   echo.New(),
		Store:  s,
		Log:    zap.NewNop(),
	}
	return a, cleanup
}

// formContext builds an echo context carrying an urlencoded POST body.
func formContext(a *App, path string, form url.Values) echo.Context {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.Echo.NewContext(req, httptest.NewRecorder())
}

func TestAddPageSanitizesSubmittedSlug(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	c := formContext(a, "/page/add", url.Values{
		"title":  {"My Page"},
		"slug":   {"My Page!"},
		"status": {StatusPublished},
	})
	if err := a.handleAddPage(c); err != nil {
		t.Fatalf("handleAddPage failed: %v", err)
	}

	page, err := a.Store.GetPage("my-page")
	if err != nil {
		t.Fatalf("page not stored under the sanitized slug: %v", err)
	}
	if page.Title != "My Page" {
		t.Errorf("title = %q", page.Title)
	}
	if _, err := a.Store.GetPage("My Page!"); !errors.Is(err, ErrNotFound) {
		t.Errorf("raw slug lookup = %v, want ErrNotFound", err)
	}
}

func TestAddPostSanitizesSubmittedSlug(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	c := formContext(a, "/post/add", url.Values{
		"title":  {"Hello World"},
		"slug":   {"Hello, World?"},
		"status": {StatusPublished},
	})
	if err := a.handleAddPost(c); err != nil {
		t.Fatalf("handleAddPost failed: %v", err)
	}

	if _, err := a.Store.GetPost("hello-world"); err != nil {
		t.Fatalf("post not stored under the sanitized slug: %v", err)
	}
	if _, err := a.Store.GetPost("Hello, World?"); !errors.Is(err, ErrNotFound) {
		t.Errorf("raw slug lookup = %v, want ErrNotFound", err)
	}
}

func TestFormInputStatusDefaultsToDraft(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	cases := []struct {
		status string
		want   string
	}{
		{StatusPublished, StatusPublished},
		{StatusDraft, StatusDraft},
		{"", StatusDraft},
		{"Published", StatusDraft},
		{"junk", StatusDraft},
	}
	for _, tc := range cases {
		c := formContext(a, "/post/add", url.Values{
			"title":  {"Status Check"},
			"status": {tc.status},
		})
		if got := formInput(c).Status; got != tc.want {
			t.Errorf("status %q normalized to %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestAddPageWithoutStatusStaysHidden(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	c := formContext(a, "/page/add", url.Values{
		"title": {"Half Finished"},
	})
	if err := a.handleAddPage(c); err != nil {
		t.Fatalf("handleAddPage failed: %v", err)
	}

	page, err := a.Store.GetPage("half-finished")
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if page.Status != StatusDraft {
		t.Errorf("status = %q, want %q", page.Status, StatusDraft)
	}
	if _, err := a.Store.GetPublishedPage("half-finished"); !errors.Is(err, ErrNotFound) {
		t.Errorf("public lookup = %v, want ErrNotFound", err)
	}
}

func TestEditPageMangledStatusDemotesToDraft(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	err := a.Store.CreatePage(Page{Slug: "news", Title: "News", Status: StatusPublished})
	if err != nil {
		t.Fatal(err)
	}

	c := formContext(a, "/page/edit/news", url.Values{
		"title":  {"News"},
		"status": {"PUBLISHED"},
	})
	c.SetParamNames("slug")
	c.SetParamValues("news")
	if err := a.handleEditPage(c); err != nil {
		t.Fatalf("handleEditPage failed: %v", err)
	}

	page, err := a.Store.GetPage("news")
	if err != nil {
		t.Fatal(err)
	}
	if page.Status != StatusDraft {
		t.Errorf("status = %q, want %q", page.Status, StatusDraft)
	}
}

// deleteAndReadFlash runs the request through a session-backed echo instance
// and replays the session cookie to drain whatever message got queued.
func deleteAndReadFlash(t *testing.T, a *App, register func(*echo.Echo), path string) []flashMessage {
	t.Helper()
	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret"))))
	register(e)

	var got []flashMessage
	e.GET("/flash-check", func(c echo.Context) error {
		got = takeFlashes(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusFound)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/flash-check", nil)
	for _, ck := range rec.Result().Cookies() {
		req2.AddCookie(ck)
	}
	e.ServeHTTP(httptest.NewRecorder(), req2)
	return got
}

func TestDeleteMissingPageReportsNotFound(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	flashes := deleteAndReadFlash(t, a, func(e *echo.Echo) {
		e.POST("/page/delete/:slug", a.handleDeletePage)
	}, "/page/delete/no-such-page")

	if len(flashes) != 1 || flashes[0].Level != "error" {
		t.Fatalf("flashes = %+v, want one error message", flashes)
	}
}

func TestDeleteMissingPostReportsNotFound(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	flashes := deleteAndReadFlash(t, a, func(e *echo.Echo) {
		e.POST("/post/delete/:slug", a.handleDeletePost)
	}, "/post/delete/no-such-post")

	if len(flashes) != 1 || flashes[0].Level != "error" {
		t.Fatalf("flashes = %+v, want one error message", flashes)
	}
}
