package loam

import (
	"fmt"
	"testing"
)

func TestAllowedExtension(t *testing.T) {
	allowed := []string{"photo.png", "photo.JPG", "photo.jpeg", "anim.gif", "pic.webp"}
	for _, name := range allowed {
		if !allowedExtension(name) {
			t.Errorf("allowedExtension(%q) = false, want true", name)
		}
	}
	rejected := []string{"script.php", "doc.pdf", "archive.zip", "noext", "shell.sh", "image.png.exe"}
	for _, name := range rejected {
		if allowedExtension(name) {
			t.Errorf("allowedExtension(%q) = true, want false", name)
		}
	}
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{3000, 2000, 150, 150, 100},
		{2000, 3000, 150, 100, 150},
		{100, 80, 150, 100, 80},   // no upscale
		{150, 150, 150, 150, 150}, // exactly at the box
		{1024, 1024, 300, 300, 300},
	}
	for _, c := range cases {
		gotW, gotH := fitWithin(c.w, c.h, c.max)
		if gotW != c.wantW || gotH != c.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
				c.w, c.h, c.max, gotW, gotH, c.wantW, c.wantH)
		}
	}
}

func TestMediaLibraryPaginationAndSearch(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	for i := 0; i < 25; i++ {
		m := Media{
			Filename:         fmt.Sprintf("stored-%02d.png", i),
			OriginalFilename: fmt.Sprintf("holiday-%02d.png", i),
			Title:            fmt.Sprintf("Holiday %02d", i),
		}
		if i < 5 {
			m.OriginalFilename = fmt.Sprintf("invoice-%02d.png", i)
			m.Title = fmt.Sprintf("Invoice %02d", i)
		}
		if _, err := s.AddMedia(m); err != nil {
			t.Fatalf("AddMedia failed: %v", err)
		}
	}

	page1, err := s.MediaLibrary(1, "")
	if err != nil {
		t.Fatalf("MediaLibrary failed: %v", err)
	}
	if page1.Total != 25 || page1.TotalPages != 2 || len(page1.Items) != 20 {
		t.Errorf("page 1: total=%d pages=%d items=%d, want 25/2/20",
			page1.Total, page1.TotalPages, len(page1.Items))
	}

	page2, err := s.MediaLibrary(2, "")
	if err != nil {
		t.Fatalf("MediaLibrary page 2 failed: %v", err)
	}
	if len(page2.Items) != 5 {
		t.Errorf("page 2 items = %d, want 5", len(page2.Items))
	}

	// Out-of-range page clamps to the last page.
	clamped, err := s.MediaLibrary(99, "")
	if err != nil {
		t.Fatalf("MediaLibrary clamp failed: %v", err)
	}
	if clamped.Page != 2 {
		t.Errorf("clamped page = %d, want 2", clamped.Page)
	}

	found, err := s.MediaLibrary(1, "invoice")
	if err != nil {
		t.Fatalf("MediaLibrary search failed: %v", err)
	}
	if found.Total != 5 {
		t.Errorf("search total = %d, want 5", found.Total)
	}
}

func TestUpdateMediaPartial(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	id, err := s.AddMedia(Media{
		Filename:         "a.png",
		OriginalFilename: "a.png",
		Title:            "Original",
		AltText:          "old alt",
	})
	if err != nil {
		t.Fatalf("AddMedia failed: %v", err)
	}

	alt := "new alt"
	if err := s.UpdateMedia(id, MediaUpdate{AltText: &alt}); err != nil {
		t.Fatalf("UpdateMedia failed: %v", err)
	}
	m, err := s.GetMedia(id)
	if err != nil {
		t.Fatalf("GetMedia failed: %v", err)
	}
	if m.AltText != "new alt" {
		t.Errorf("AltText = %q, want %q", m.AltText, "new alt")
	}
	if m.Title != "Original" {
		t.Errorf("Title changed by partial update: %q", m.Title)
	}
}

func TestDeleteMediaReturnsRow(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	id, err := s.AddMedia(Media{Filename: "gone.png", OriginalFilename: "gone.png", Thumbnail: "gone-thumbnail.png"})
	if err != nil {
		t.Fatalf("AddMedia failed: %v", err)
	}
	m, err := s.DeleteMedia(id)
	if err != nil {
		t.Fatalf("DeleteMedia failed: %v", err)
	}
	if m.Filename != "gone.png" || m.Thumbnail != "gone-thumbnail.png" {
		t.Errorf("returned row = %+v, want filename/thumbnail for cleanup", m)
	}
	if _, err := s.GetMedia(id); err != ErrNotFound {
		t.Errorf("GetMedia after delete = %v, want ErrNotFound", err)
	}
}
