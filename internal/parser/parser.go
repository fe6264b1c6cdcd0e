// Package parser extracts pagination, pToken, and image-URL data from
// the HTML pages a gallery coordinator fetches, using goquery the way
// the rest of the retrieved scraper corpus does.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// thumbSelector matches the pattern shared by both the detail page's
// first preview set and every subsequent preview index page: an <a>
// wrapping a thumbnail whose href resolves a single page to its
// pToken, shaped "/s/<token>/<gid>-<index>".
const thumbSelector = ".gdtm a[href]"

func parseThumbnails(doc *goquery.Document) map[uint32]string {
	pairs := make(map[uint32]string)
	doc.Find(thumbSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		index, token, ok := parseThumbHref(href)
		if !ok {
			return
		}
		pairs[index] = token
	})
	return pairs
}

// parseThumbHref splits "/s/<token>/<gid>-<index>" (scheme and host
// are ignored so absolute and relative hrefs both work).
func parseThumbHref(href string) (index uint32, token string, ok bool) {
	i := strings.Index(href, "/s/")
	if i < 0 {
		return 0, "", false
	}
	rest := href[i+len("/s/"):]
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		return 0, "", false
	}
	dash := strings.LastIndexByte(parts[1], '-')
	if dash < 0 {
		return 0, "", false
	}
	n, err := strconv.ParseUint(parts[1][dash+1:], 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint32(n), parts[0], true
}

func parseUintAttr(sel *goquery.Selection, name string) (uint32, error) {
	v, ok := sel.Attr(name)
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing attribute %s=%q: %w", name, v, err)
	}
	return uint32(n), nil
}
