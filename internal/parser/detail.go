package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-gallery-fetch/internal/gallery"
)

// DetailHTMLParser implements gallery.DetailParser.
type DetailHTMLParser struct{}

func (DetailHTMLParser) ParseDetail(html string) (gallery.DetailInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return gallery.DetailInfo{}, fmt.Errorf("parsing detail page: %w", err)
	}

	pagesSel := doc.Find("#pages")
	if pagesSel.Length() == 0 {
		return gallery.DetailInfo{}, fmt.Errorf("detail page missing #pages element")
	}
	pages, err := parseUintAttr(pagesSel, "data-pages")
	if err != nil {
		return gallery.DetailInfo{}, fmt.Errorf("detail page: %w", err)
	}
	previewPages, err := parseUintAttr(pagesSel, "data-preview-pages")
	if err != nil {
		return gallery.DetailInfo{}, fmt.Errorf("detail page: %w", err)
	}
	previewPerPage, err := parseUintAttr(pagesSel, "data-preview-per-page")
	if err != nil {
		return gallery.DetailInfo{}, fmt.Errorf("detail page: %w", err)
	}

	return gallery.DetailInfo{
		Pages:          pages,
		PreviewPages:   previewPages,
		PreviewPerPage: previewPerPage,
		Seed:           parseThumbnails(doc),
	}, nil
}
