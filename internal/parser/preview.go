package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PreviewHTMLParser implements gallery.PreviewParser.
type PreviewHTMLParser struct{}

func (PreviewHTMLParser) ParsePreview(html string) (map[uint32]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing preview page: %w", err)
	}
	pairs := parseThumbnails(doc)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("preview page: no thumbnails found")
	}
	return pairs, nil
}
