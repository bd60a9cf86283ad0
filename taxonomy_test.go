package loam

import (
	"errors"
	"testing"
)

func tagByName(t *testing.T, s *Store, name string) Tag {
	t.Helper()
	tags, err := s.ListTags()
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	for _, tag := range tags {
		if tag.Name == name {
			return tag
		}
	}
	t.Fatalf("tag %q not found", name)
	return Tag{}
}

func TestTagCountsFollowPublishedPosts(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	for _, slug := range []string{"one", "two", "three"} {
		in := PostInput{Title: slug, Status: StatusPublished, Tags: []string{"golang"}}
		if err := s.CreatePost(slug, in); err != nil {
			t.Fatalf("CreatePost %q failed: %v", slug, err)
		}
	}
	if got := tagByName(t, s, "golang").Count; got != 3 {
		t.Errorf("count = %d, want 3", got)
	}

	if err := s.DeletePost("two"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if got := tagByName(t, s, "golang").Count; got != 2 {
		t.Errorf("count after delete = %d, want 2", got)
	}

	// Unpublishing also removes the post from the count.
	if err := s.UpdatePost("three", PostInput{Title: "three", Status: StatusDraft, Tags: []string{"golang"}}); err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if got := tagByName(t, s, "golang").Count; got != 1 {
		t.Errorf("count after unpublish = %d, want 1", got)
	}
}

func TestDeleteTagGuard(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	in := PostInput{Title: "post", Status: StatusPublished, Tags: []string{"busy"}}
	if err := s.CreatePost("post", in); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	busy := tagByName(t, s, "busy")

	if err := s.DeleteTag(busy.ID); !errors.Is(err, ErrInUse) {
		t.Errorf("deleting in-use tag = %v, want ErrInUse", err)
	}

	if err := s.DeletePost("post"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if err := s.DeleteTag(busy.ID); err != nil {
		t.Errorf("deleting unused tag failed: %v", err)
	}
}

func TestDeleteCategoryGuard(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if err := s.CreateCategory("Busy", ""); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	in := PostInput{Title: "post", Status: StatusPublished, Category: "busy"}
	if err := s.CreatePost("post", in); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if err := s.DeleteCategory("busy"); !errors.Is(err, ErrInUse) {
		t.Errorf("deleting in-use category = %v, want ErrInUse", err)
	}

	// A draft does not hold the category in use.
	if err := s.UpdatePost("post", PostInput{Title: "post", Status: StatusDraft, Category: "busy"}); err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if err := s.DeleteCategory("busy"); err != nil {
		t.Errorf("deleting category with only drafts failed: %v", err)
	}
}

func TestDuplicateCategoryName(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	// "General" is seeded; same name means same slug.
	if err := s.CreateCategory("General", ""); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate category = %v, want ErrDuplicateName", err)
	}
	if err := s.CreateTag("go"); err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}
	if err := s.CreateTag("go"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate tag = %v, want ErrDuplicateName", err)
	}
}

func TestTagCloudMax(t *testing.T) {
	if got := tagCloudMax(nil); got != 1 {
		t.Errorf("empty tag set max = %d, want 1", got)
	}
	if got := tagCloudMax([]Tag{{Count: 0}, {Count: 0}}); got != 1 {
		t.Errorf("all-zero tag set max = %d, want 1", got)
	}
	if got := tagCloudMax([]Tag{{Count: 2}, {Count: 7}, {Count: 5}}); got != 7 {
		t.Errorf("max = %d, want 7", got)
	}
}
