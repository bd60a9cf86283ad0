package loam

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// handleSetupForm shows the first-run admin creation page. Once configured
// it only redirects.
func (a *App) handleSetupForm(c echo.Context) error {
	if a.Store.IsSetupComplete() {
		return c.Redirect(http.StatusFound, "/login")
	}
	return a.render(c, http.StatusOK, "setup.html", nil)
}

func (a *App) handleSetup(c echo.Context) error {
	if a.Store.IsSetupComplete() {
		return c.Redirect(http.StatusFound, "/login")
	}
	username := strings.TrimSpace(c.FormValue("username"))
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	switch {
	case username == "" || password == "":
		flash(c, "error", "Username and password are required.")
		return c.Redirect(http.StatusFound, "/setup")
	case len(password) < 8:
		flash(c, "error", "Password must be at least 8 characters.")
		return c.Redirect(http.StatusFound, "/setup")
	case password != confirm:
		flash(c, "error", "Passwords do not match.")
		return c.Redirect(http.StatusFound, "/setup")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := a.Store.CompleteSetup(username, string(hash), email); err != nil {
		a.Log.Error("complete setup", zap.Error(err))
		flash(c, "error", "Setup failed. Please try again.")
		return c.Redirect(http.StatusFound, "/setup")
	}
	flash(c, "success", "Admin account created. Please log in.")
	return c.Redirect(http.StatusFound, "/login")
}

func (a *App) handleLoginForm(c echo.Context) error {
	if isLoggedIn(c) {
		return c.Redirect(http.StatusFound, "/admin")
	}
	pending := false
	if sess, err := session.Get(sessionName, c); err == nil {
		pending, _ = sess.Values[sessKeyPending2FA].(bool)
	}
	return a.render(c, http.StatusOK, "login.html", map[string]any{
		"pending_2fa": pending,
	})
}

// handleLogin runs the two-step login state machine. Step one verifies the
// password; with 2FA enabled the session then holds pending_2fa until a
// valid TOTP code arrives. Resuming step two with a different username
// invalidates the whole session.
func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.check(ip) {
		flash(c, "error", "Too many login attempts. Please wait a minute.")
		return c.Redirect(http.StatusFound, "/login")
	}

	admin, err := a.Store.GetAdmin()
	if err != nil {
		return c.Redirect(http.StatusFound, "/setup")
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	username := strings.TrimSpace(c.FormValue("username"))

	if pending, _ := sess.Values[sessKeyPending2FA].(bool); pending {
		temp, _ := sess.Values[sessKeyTempUsername].(string)
		if username != "" && username != temp {
			_ = clearSession(c)
			flash(c, "error", "Session mismatch. Please log in again.")
			return c.Redirect(http.StatusFound, "/login")
		}
		code := strings.TrimSpace(c.FormValue("code"))
		if temp != admin.Username || !totp.Validate(code, admin.TwoFASecret) {
			a.loginLimiter.record(ip)
			flash(c, "error", "Invalid verification code.")
			return c.Redirect(http.StatusFound, "/login")
		}
		delete(sess.Values, sessKeyPending2FA)
		delete(sess.Values, sessKeyTempUsername)
		sess.Values[sessKeyLoggedIn] = true
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return err
		}
		return c.Redirect(http.StatusFound, "/admin")
	}

	password := c.FormValue("password")
	if username != admin.Username ||
		bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)) != nil {
		a.loginLimiter.record(ip)
		flash(c, "error", "Invalid username or password.")
		return c.Redirect(http.StatusFound, "/login")
	}

	if admin.Has2FA() {
		sess.Values[sessKeyPending2FA] = true
		sess.Values[sessKeyTempUsername] = username
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return err
		}
		return c.Redirect(http.StatusFound, "/login")
	}

	sess.Values[sessKeyLoggedIn] = true
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/admin")
}

func (a *App) handleLogout(c echo.Context) error {
	_ = clearSession(c)
	return c.Redirect(http.StatusFound, "/login")
}

// handleEnable2FA generates a fresh secret and parks it in the session; it
// is not persisted until one valid code confirms the authenticator works.
func (a *App) handleEnable2FA(c echo.Context) error {
	admin, err := a.Store.GetAdmin()
	if err != nil {
		return err
	}
	if admin.Has2FA() {
		flash(c, "info", "Two-factor authentication is already enabled.")
		return c.Redirect(http.StatusFound, "/admin/settings")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.Store.SettingString("site_title"),
		AccountName: admin.Username,
	})
	if err != nil {
		return err
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessKeyPending2FAKey] = key.Secret()
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/2fa-setup")
}

func (a *App) handle2FASetupForm(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	secret, _ := sess.Values[sessKeyPending2FAKey].(string)
	if secret == "" {
		return c.Redirect(http.StatusFound, "/admin/enable-2fa")
	}
	admin, err := a.Store.GetAdmin()
	if err != nil {
		return err
	}
	key, err := provisioningKey(a.Store.SettingString("site_title"), admin.Username, secret)
	if err != nil {
		return err
	}
	qr := ""
	if img, err := key.Image(200, 200); err == nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err == nil {
			qr = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	return a.render(c, http.StatusOK, "setup_2fa.html", map[string]any{
		"secret": secret,
		"qr":     qr,
	})
}

// handle2FASetup verifies the first code against the pending secret and only
// then persists it. Cancel simply discards the session copy.
func (a *App) handle2FASetup(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	secret, _ := sess.Values[sessKeyPending2FAKey].(string)
	if secret == "" {
		return c.Redirect(http.StatusFound, "/admin/enable-2fa")
	}
	if c.FormValue("cancel") != "" {
		delete(sess.Values, sessKeyPending2FAKey)
		_ = sess.Save(c.Request(), c.Response())
		return c.Redirect(http.StatusFound, "/admin/settings")
	}
	code := strings.TrimSpace(c.FormValue("code"))
	if !totp.Validate(code, secret) {
		flash(c, "error", "Invalid verification code. Scan the QR code and try again.")
		return c.Redirect(http.StatusFound, "/admin/2fa-setup")
	}
	if err := a.Store.Enable2FA(secret); err != nil {
		return err
	}
	delete(sess.Values, sessKeyPending2FAKey)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	flash(c, "success", "Two-factor authentication enabled.")
	return c.Redirect(http.StatusFound, "/admin/settings")
}

// provisioningKey rebuilds the otpauth key for an existing base32 secret, so
// the QR code encodes the same secret the session holds.
func provisioningKey(issuer, account, secret string) (*otp.Key, error) {
	if issuer == "" {
		issuer = "Loam"
	}
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return otp.NewKeyFromURL(u.String())
}

func (a *App) handleDisable2FA(c echo.Context) error {
	if err := a.Store.Disable2FA(); err != nil {
		return err
	}
	flash(c, "success", "Two-factor authentication disabled.")
	return c.Redirect(http.StatusFound, "/admin/settings")
}
