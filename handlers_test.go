package loam

import (
	"strings"
	"testing"
)

func TestPaginate(t *testing.T) {
	cases := []struct {
		total, page         int
		wantStart, wantEnd  int
		wantPage, wantTotal int
	}{
		{25, 1, 0, 10, 1, 3},
		{25, 3, 20, 25, 3, 3},
		{25, 99, 20, 25, 3, 3}, // clamped to the last page
		{25, 0, 0, 10, 1, 3},
		{0, 1, 0, 0, 1, 1},
		{10, 1, 0, 10, 1, 1},
	}
	for _, c := range cases {
		start, end, p := paginate(c.total, c.page, 10)
		if start != c.wantStart || end != c.wantEnd {
			t.Errorf("paginate(%d, %d): slice [%d:%d], want [%d:%d]",
				c.total, c.page, start, end, c.wantStart, c.wantEnd)
		}
		if p.Page != c.wantPage || p.TotalPages != c.wantTotal {
			t.Errorf("paginate(%d, %d): page %d/%d, want %d/%d",
				c.total, c.page, p.Page, p.TotalPages, c.wantPage, c.wantTotal)
		}
	}
}

func TestRelatedPosts(t *testing.T) {
	target := &Post{ID: 1, Tags: []string{"go", "web"}}
	all := []Post{
		{ID: 1, Slug: "self", Tags: []string{"go"}},
		{ID: 2, Slug: "go-too", Tags: []string{"go"}},
		{ID: 3, Slug: "unrelated", Tags: []string{"cooking"}},
		{ID: 4, Slug: "web-too", Tags: []string{"web", "css"}},
		{ID: 5, Slug: "both", Tags: []string{"go", "web"}},
		{ID: 6, Slug: "extra", Tags: []string{"go"}},
	}

	got := relatedPosts(target, all, 3)
	if len(got) != 3 {
		t.Fatalf("related = %d posts, want 3", len(got))
	}
	for _, p := range got {
		if p.ID == target.ID {
			t.Error("related posts must not include the post itself")
		}
	}
	if got[0].Slug != "go-too" || got[1].Slug != "web-too" || got[2].Slug != "both" {
		t.Errorf("related order = %q, %q, %q", got[0].Slug, got[1].Slug, got[2].Slug)
	}
}

func TestPostMatches(t *testing.T) {
	p := Post{
		Title:   "Deploying Go Services",
		Content: "A walkthrough of systemd units.",
		Excerpt: "Ship it",
		Tags:    []string{"devops"},
	}
	for _, q := range []string{"deploying", "SYSTEMD", "ship", "devops"} {
		if !postMatches(p, strings.ToLower(q)) {
			t.Errorf("query %q should match", q)
		}
	}
	if postMatches(p, "kubernetes") {
		t.Error("query kubernetes should not match")
	}
}
