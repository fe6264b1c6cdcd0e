package gallery

import (
	"fmt"
	"net/url"
)

// BaseURL is overridable (tests point it at a fake host served by an
// in-memory HTTPDoer); it
// defaults to a placeholder since the concrete gallery host is a
// deployment-time setting, not something the coordinator hardcodes.
var BaseURL = "https://example.invalid"

// detailURL builds the URL for a paginated preview index page (§6).
func detailURL(gid uint64, token string, previewIndex uint32) string {
	v := url.Values{}
	v.Set("gid", fmt.Sprintf("%d", gid))
	v.Set("token", token)
	v.Set("p", fmt.Sprintf("%d", previewIndex))
	return BaseURL + "/g?" + v.Encode()
}

// pageURL builds the URL for a single page, optionally appending the
// bypass key from a prior failed attempt (§4.5 step 1, §6).
func pageURL(gid uint64, index uint32, pToken string, skipHathKey string) string {
	v := url.Values{}
	v.Set("gid", fmt.Sprintf("%d", gid))
	v.Set("p", fmt.Sprintf("%d", index))
	v.Set("token", pToken)
	u := BaseURL + "/s?" + v.Encode()
	if skipHathKey != "" {
		u += "&nl=" + url.QueryEscape(skipHathKey)
	}
	return u
}
