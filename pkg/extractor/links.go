package extractor

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

var (
	exploreLink = regexp.MustCompile(`(?:https?://)?www\.xiaohongshu\.com/explore/\S+`)
	shareLink   = regexp.MustCompile(`(?:https?://)?www\.xiaohongshu\.com/discovery/item/\S+`)
	shortLink   = regexp.MustCompile("(?:https?://)?xhslink\\.com/[^\\s\"<>\\\\^`{|}，。；！？、【】《》]+")
)

// ExtractLinks finds note links in text. Short links are resolved by
// following their redirect; links that do not resolve are dropped.
func (n *Native) ExtractLinks(ctx context.Context, text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		if m := shortLink.FindString(field); m != "" {
			if resolved := n.resolveShort(ctx, withScheme(m)); resolved != "" {
				field = resolved
			} else {
				continue
			}
		}
		if m := exploreLink.FindString(field); m != "" {
			out = append(out, withScheme(m))
		} else if m := shareLink.FindString(field); m != "" {
			out = append(out, withScheme(m))
		}
	}
	return out
}

func withScheme(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// resolveShort returns the final URL behind a short link, or ""
func (n *Native) resolveShort(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	n.setHeaders(req)

	resp, err := n.http.Do(req)
	if err != nil {
		n.logger.WithError(err).WithField("url", link).Warn("short link not resolved")
		return ""
	}
	resp.Body.Close()
	return resp.Request.URL.String()
}
