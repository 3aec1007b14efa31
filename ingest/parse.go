package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageText is one page of extracted document text with its image
// references already pulled out of the body.
type PageText struct {
	Page   int
	Text   string
	Images []string
}

// SourceDoc is a parsed source document ready for chunking.
type SourceDoc struct {
	File   string // base file name
	Title  string
	Source string // origin, e.g. local path or URL
	Type   string // pdf, markdown, text
	Pages  []PageText
}

// LoadFile parses a source document by extension.
func LoadFile(path string) (*SourceDoc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".md", ".markdown":
		return loadText(path, "markdown")
	case ".txt":
		return loadText(path, "text")
	default:
		return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

func loadPDF(path string) (*SourceDoc, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	doc := &SourceDoc{
		File:   filepath.Base(path),
		Title:  titleFromPath(path),
		Source: path,
		Type:   "pdf",
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		doc.Pages = append(doc.Pages, pageText(pageNum, text))
	}
	return doc, nil
}

// loadText reads a plain-text or markdown file. Pre-processed dumps may
// carry [Page N] markers from the PDF pipeline; when present the file is
// split back into pages, otherwise it becomes a single page 1.
func loadText(path, docType string) (*SourceDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	doc := &SourceDoc{
		File:   filepath.Base(path),
		Title:  titleFromPath(path),
		Source: path,
		Type:   docType,
	}

	content := string(raw)
	marked := splitPageMarkers(content)
	if len(marked) == 0 {
		doc.Pages = []PageText{pageText(1, content)}
		return doc, nil
	}
	doc.Pages = marked
	return doc, nil
}

var pageMarker = regexp.MustCompile(`\[Page (\d+)\]`)

func splitPageMarkers(content string) []PageText {
	locs := pageMarker.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	var pages []PageText
	for i, loc := range locs {
		num := 0
		fmt.Sscanf(content[loc[2]:loc[3]], "%d", &num)

		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		pages = append(pages, pageText(num, content[loc[1]:end]))
	}
	return pages
}

var imageRefs = regexp.MustCompile(`\[Images found on Page \d+: (.*?)\]`)

// pageText strips image reference markers out of the page body and
// resolves them to paths under the processed image directory.
func pageText(num int, text string) PageText {
	var images []string
	if m := imageRefs.FindStringSubmatch(text); m != nil {
		for _, name := range strings.Split(m[1], ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				images = append(images, filepath.Join("data", "processed", "images", name))
			}
		}
	}
	text = imageRefs.ReplaceAllString(text, "")
	return PageText{Page: num, Text: strings.TrimSpace(text), Images: images}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^(Chapter\s+\d+[:.\s]+.*)$`),
	regexp.MustCompile(`(?m)^(CHAPTER\s+\d+[:.\s]+.*)$`),
	regexp.MustCompile(`(?m)^(\d+\.\s+[A-Z][^\n]{5,50})$`),
	regexp.MustCompile(`(?m)^([A-Z][A-Z\s]{10,50})$`),
}

// sectionTitle finds a chapter or section heading in page text, if any.
func sectionTitle(text string) string {
	for _, pattern := range sectionPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var tablePattern = regexp.MustCompile(`\|.*\|.*\|`)

// hasTable reports whether chunk text contains a markdown-style table row.
func hasTable(text string) bool {
	return tablePattern.MatchString(text)
}
