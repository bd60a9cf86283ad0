package loam

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

//go:embed templates
var defaultTemplates embed.FS

// ThemeManifest is the theme.toml descriptor shipped inside a theme
// directory.
type ThemeManifest struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Author      string `toml:"author"`
	Version     string `toml:"version"`
	// Templates optionally points at a subdirectory holding the template
	// files; empty means the theme root.
	Templates string `toml:"templates"`
}

// Theme is a loaded theme: its manifest plus a parsed template set. The
// built-in templates are always present; theme files with the same name
// replace them.
type Theme struct {
	Manifest  ThemeManifest
	Dir       string
	templates *template.Template
}

// themeFuncs is the helper table templates see. Built-ins come first;
// RegisterThemeFuncs entries override them on name collision.
var themeFuncs = template.FuncMap{
	"formatDate":  formatDate,
	"truncate":    truncateWords,
	"excerpt":     makeExcerpt,
	"readingTime": readingTime,
	"raw":         func(s string) template.HTML { return template.HTML(s) },
	"add":         func(a, b int) int { return a + b },
	"sub":         func(a, b int) int { return a - b },
	"until":       untilSeq,
}

// RegisterThemeFuncs adds helper functions for templates. A name that
// already exists is replaced, so later registrations win. Must be called
// before LoadTheme.
func RegisterThemeFuncs(funcs template.FuncMap) {
	for name, fn := range funcs {
		themeFuncs[name] = fn
	}
}

// ListThemes returns the manifests of every valid theme under dir. A
// directory without a parseable theme.toml is skipped.
func ListThemes(dir string) ([]ThemeManifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []ThemeManifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var m ThemeManifest
		if _, err := toml.DecodeFile(filepath.Join(dir, e.Name(), "theme.toml"), &m); err != nil {
			continue
		}
		if m.Name == "" {
			m.Name = e.Name()
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadTheme builds the template set for the named theme: first the embedded
// defaults, then the theme directory's files, which override defaults with
// the same filename. A template that fails to parse is logged and skipped;
// the rest of the theme still loads.
func LoadTheme(themesDir, name string, log *zap.Logger) (*Theme, error) {
	t := &Theme{Dir: filepath.Join(themesDir, name)}
	t.Manifest.Name = name

	if _, err := toml.DecodeFile(filepath.Join(t.Dir, "theme.toml"), &t.Manifest); err != nil {
		if !os.IsNotExist(err) {
			log.Warn("theme manifest unreadable, using defaults",
				zap.String("theme", name), zap.Error(err))
		}
	}

	root := template.New("").Funcs(themeFuncs)

	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, err
	}
	if err := parseTemplateDir(root, sub, ".", log); err != nil {
		return nil, err
	}

	tplDir := t.Dir
	if t.Manifest.Templates != "" {
		tplDir = filepath.Join(t.Dir, t.Manifest.Templates)
	}
	if info, err := os.Stat(tplDir); err == nil && info.IsDir() {
		if err := parseTemplateDir(root, os.DirFS(tplDir), ".", log); err != nil {
			return nil, err
		}
	}

	t.templates = root
	return t, nil
}

// parseTemplateDir parses every .html file in fsys into root, one template
// per file named by its base filename. A later parse of an existing name
// replaces the earlier one.
func parseTemplateDir(root *template.Template, fsys fs.FS, dir string, log *zap.Logger) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		raw, err := fs.ReadFile(fsys, filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("template unreadable, skipped", zap.String("template", e.Name()), zap.Error(err))
			continue
		}
		if _, err := root.New(e.Name()).Parse(string(raw)); err != nil {
			log.Warn("template failed to parse, skipped", zap.String("template", e.Name()), zap.Error(err))
			continue
		}
	}
	return nil
}

// Has reports whether a template with the given name is loaded.
func (t *Theme) Has(name string) bool {
	return t.templates.Lookup(name) != nil
}

// Execute renders the named template.
func (t *Theme) Execute(w io.Writer, name string, data any) error {
	tpl := t.templates.Lookup(name)
	if tpl == nil {
		return fmt.Errorf("template %q not found", name)
	}
	return tpl.Execute(w, data)
}

func formatDate(value, layout string) string {
	if value == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	if layout == "" {
		layout = "January 2, 2006"
	}
	return ts.Format(layout)
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "…"
}

func makeExcerpt(content string, n int) string {
	return truncateWords(stripTags(content), n)
}

// readingTime estimates minutes at 200 words per minute, minimum 1.
func readingTime(content string) int {
	words := len(strings.Fields(stripTags(content)))
	minutes := words / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func untilSeq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// stripTags removes HTML tags with a simple scanner. Good enough for
// excerpts and word counts; rendering never uses it.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
