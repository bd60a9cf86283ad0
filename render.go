package loam

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// render executes a theme template with the shared page globals merged in:
// site settings, menu, CSRF token, flashes, login state, and the year.
func (a *App) render(c echo.Context, code int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	settings, err := a.Store.Settings()
	if err != nil {
		a.Log.Error("load settings for render", zap.Error(err))
		settings = map[string]any{}
	}
	data["settings"] = settings
	data["menu_items"] = settings["menu_items"]
	data["csrf_token"] = csrfToken(c)
	data["flashes"] = takeFlashes(c)
	data["logged_in"] = isLoggedIn(c)
	data["year"] = time.Now().Year()

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return a.Theme.Execute(c.Response().Writer, name, data)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = a.render(c, http.StatusNotFound, "404.html", nil)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("server error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		_ = a.render(c, code, "500.html", nil)
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
