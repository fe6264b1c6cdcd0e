package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageHTMLParser implements gallery.PageParser.
type PageHTMLParser struct{}

func (PageHTMLParser) ParsePage(html string) (imageURL string, skipHathKey string, err error) {
	doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if derr != nil {
		return "", "", fmt.Errorf("parsing image page: %w", derr)
	}

	imageURL, ok := doc.Find("#img").Attr("src")
	if !ok || imageURL == "" {
		return "", "", fmt.Errorf("image page: #img has no src")
	}

	if href, ok := doc.Find("#loadfail").Attr("href"); ok {
		if u, perr := url.Parse(href); perr == nil {
			skipHathKey = u.Query().Get("nl")
		}
	}

	return imageURL, skipHathKey, nil
}
