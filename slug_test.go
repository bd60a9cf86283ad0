package loam

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Spaced   Out  ", "spaced-out"},
		{"What's Up?!", "whats-up"},
		{"already-a-slug", "already-a-slug"},
		{"Mixed_Case_And-Dashes", "mixed_case_and-dashes"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{"Hello World", "What's Up?!", "a  b  c", "trailing---"}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestSuggestSlug(t *testing.T) {
	taken := map[string]bool{"my-page": true, "my-page-2": true}
	isTaken := func(s string) bool { return taken[s] }

	if got := SuggestSlug("fresh", isTaken); got != "fresh" {
		t.Errorf("free slug suggestion = %q, want %q", got, "fresh")
	}
	if got := SuggestSlug("my-page", isTaken); got != "my-page-3" {
		t.Errorf("suggestion = %q, want %q", got, "my-page-3")
	}
}
