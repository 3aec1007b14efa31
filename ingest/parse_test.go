package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadText_SinglePage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panduan-nft.md")
	if err := os.WriteFile(path, []byte("# NFT\n\npH ideal 5.5-6.5."), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v, want nil", err)
	}
	if doc.Type != "markdown" {
		t.Errorf("Type = %q, want markdown", doc.Type)
	}
	if doc.Title != "panduan-nft" {
		t.Errorf("Title = %q, want panduan-nft", doc.Title)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Page != 1 {
		t.Fatalf("Pages = %+v, want single page 1", doc.Pages)
	}
}

func TestLoadText_PageMarkersAndImages(t *testing.T) {
	content := "[Page 3]\nInstalasi NFT dari pipa PVC.\n" +
		"[Images found on Page 3: nft_setup.png, pipa.png]\n" +
		"[Page 4]\nNutrisi A dan B dicampur terpisah."
	path := filepath.Join(t.TempDir(), "dump.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v, want nil", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("len(Pages) = %d, want 2", len(doc.Pages))
	}

	p3 := doc.Pages[0]
	if p3.Page != 3 {
		t.Errorf("Page = %d, want 3", p3.Page)
	}
	if len(p3.Images) != 2 {
		t.Fatalf("Images = %v, want 2 refs", p3.Images)
	}
	if p3.Images[0] != filepath.Join("data", "processed", "images", "nft_setup.png") {
		t.Errorf("Images[0] = %q, want resolved path", p3.Images[0])
	}
	if tablePattern.MatchString(p3.Text) {
		t.Errorf("Text = %q, unexpected table", p3.Text)
	}
	if imageRefs.MatchString(p3.Text) {
		t.Errorf("Text = %q, want image marker stripped", p3.Text)
	}
	if doc.Pages[1].Page != 4 || len(doc.Pages[1].Images) != 0 {
		t.Errorf("Pages[1] = %+v, want page 4 without images", doc.Pages[1])
	}
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	if _, err := LoadFile("foto.jpg"); err == nil {
		t.Fatal("LoadFile() error = nil, want unsupported type error")
	}
}

func TestSectionTitle(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Chapter 3: Nutrient Film Technique\nisi bab", "Chapter 3: Nutrient Film Technique"},
		{"2. Persiapan Larutan Nutrisi\nisi", "2. Persiapan Larutan Nutrisi"},
		{"SISTEM HIDROPONIK NFT\nisi", "SISTEM HIDROPONIK NFT"},
		{"paragraf biasa tanpa judul", ""},
	}
	for _, tt := range tests {
		if got := sectionTitle(tt.text); got != tt.want {
			t.Errorf("sectionTitle(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestHasTable(t *testing.T) {
	if !hasTable("| pH | TDS |\n| 6.0 | 1000 |") {
		t.Error("hasTable() = false for markdown table, want true")
	}
	if hasTable("teks biasa tanpa tabel") {
		t.Error("hasTable() = true for plain text, want false")
	}
}
