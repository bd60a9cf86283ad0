package loam

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestSettingsStringOrJSON(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	err := s.UpdateSettings(map[string]any{
		"site_title":   "My Site",
		"social_links": map[string]string{"twitter": "@me"},
		"menu_items":   []map[string]string{{"label": "Home", "url": "/home"}},
	})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	settings, err := s.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if settings["site_title"] != "My Site" {
		t.Errorf("site_title = %v", settings["site_title"])
	}
	links, ok := settings["social_links"].(map[string]any)
	if !ok {
		t.Fatalf("social_links should decode as a map, got %T", settings["social_links"])
	}
	if links["twitter"] != "@me" {
		t.Errorf("twitter = %v", links["twitter"])
	}
	items, ok := settings["menu_items"].([]any)
	if !ok || len(items) != 1 {
		t.Errorf("menu_items = %v (%T)", settings["menu_items"], settings["menu_items"])
	}
}

func TestUpdateSettingsUpserts(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if err := s.UpdateSettings(map[string]any{"site_title": "First"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateSettings(map[string]any{"site_title": "Second"}); err != nil {
		t.Fatal(err)
	}
	if got := s.SettingString("site_title"); got != "Second" {
		t.Errorf("site_title = %q, want %q", got, "Second")
	}
}

func TestSetupIsSingleShot(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if s.IsSetupComplete() {
		t.Fatal("fresh store should not be configured")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CompleteSetup("admin", string(hash), "admin@example.com"); err != nil {
		t.Fatalf("CompleteSetup failed: %v", err)
	}
	if !s.IsSetupComplete() {
		t.Error("store should be configured after setup")
	}
	if err := s.CompleteSetup("intruder", string(hash), ""); err == nil {
		t.Error("second setup attempt should fail")
	}

	admin, err := s.GetAdmin()
	if err != nil {
		t.Fatalf("GetAdmin failed: %v", err)
	}
	if admin.Username != "admin" {
		t.Errorf("username = %q, want %q", admin.Username, "admin")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("correct horse")) != nil {
		t.Error("stored hash should verify the original password")
	}
}

func TestTwoFactorLifecycle(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err := s.CompleteSetup("admin", string(hash), ""); err != nil {
		t.Fatal(err)
	}

	admin, _ := s.GetAdmin()
	if admin.Has2FA() {
		t.Error("2FA should start disabled")
	}

	if err := s.Enable2FA("JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("Enable2FA failed: %v", err)
	}
	admin, _ = s.GetAdmin()
	if !admin.Has2FA() || admin.TwoFASecret != "JBSWY3DPEHPK3PXP" {
		t.Errorf("2FA not persisted: %+v", admin)
	}

	if err := s.Disable2FA(); err != nil {
		t.Fatalf("Disable2FA failed: %v", err)
	}
	admin, _ = s.GetAdmin()
	if admin.Has2FA() || admin.TwoFASecret != "" {
		t.Error("Disable2FA should clear the secret and the flag")
	}
}

func TestGetAdminBeforeSetup(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.GetAdmin(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAdmin on fresh store = %v, want ErrNotFound", err)
	}
}
