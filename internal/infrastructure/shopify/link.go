package shopify

import (
	"net/url"
	"strings"
)

// nextPageInfo extracts the continuation cursor from a Link response header.
// The header carries comma-separated entries of the form
// <https://shop/admin/api/...?page_info=TOKEN>; rel="next"; the cursor is the
// page_info query parameter of the entry whose relation is "next".
func nextPageInfo(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	for _, entry := range strings.Split(header, ",") {
		segments := strings.Split(strings.TrimSpace(entry), ";")
		if len(segments) < 2 {
			continue
		}
		if !hasNextRel(segments[1:]) {
			continue
		}
		raw := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if token := u.Query().Get("page_info"); token != "" {
			return token, true
		}
	}
	return "", false
}

func hasNextRel(params []string) bool {
	for _, p := range params {
		if strings.TrimSpace(p) == `rel="next"` {
			return true
		}
	}
	return false
}
