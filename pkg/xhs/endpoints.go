package xhs

import (
	"net/url"
	"path"
	"strings"
)

const (
	// BaseURL is the signed API host shared by the web and creator APIs
	BaseURL = "https://edith.xiaohongshu.com"

	// WebURL hosts notes and profiles
	WebURL = "https://www.xiaohongshu.com"

	FeedEndpoint          = "/api/sns/web/v1/feed"
	UserInfoEndpoint      = "/api/sns/web/v1/user/otherinfo"
	UserPostedEndpoint    = "/api/sns/web/v1/user_posted"
	SearchNotesEndpoint   = "/api/sns/web/v1/search/notes"
	CommentPageEndpoint   = "/api/sns/web/v2/comment/page"
	CreatorPostedEndpoint = "/web_api/sns/v5/creator/note/user/posted"

	// UserNotesPageSize is the num parameter of user_posted
	UserNotesPageSize = 30
	// SearchPageSize is the page_size of a search request
	SearchPageSize = 20

	// DefaultXsecSource applies when a URL carries no xsec_source
	DefaultXsecSource = "pc_search"

	// VideoCDN serves origin video keys
	VideoCDN = "https://sns-video-bd.xhscdn.com/"
)

// ImageFormats is requested from every note-returning endpoint
var ImageFormats = []string{"jpg", "webp", "avif"}

// Param is one query pair. Order is preserved because it is signed.
type Param struct {
	Key   string
	Value string
}

// Splice renders api?k=v&k=v without escaping, in the given order. The
// result is both the signing target and the request path.
func Splice(api string, params []Param) string {
	if len(params) == 0 {
		return api
	}
	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, p.Key+"="+p.Value)
	}
	return api + "?" + strings.Join(pairs, "&")
}

// Ref identifies a note or user together with its access token
type Ref struct {
	ID         string
	XsecToken  string
	XsecSource string
}

// ParseRef extracts the trailing path segment and the xsec query values
// from a note or profile URL. A bare id is accepted too. Query values are
// kept verbatim.
func ParseRef(rawURL string) Ref {
	rawURL = strings.TrimSpace(rawURL)
	ref := Ref{XsecSource: DefaultXsecSource}

	u, err := url.Parse(rawURL)
	if err != nil {
		ref.ID = lastSegment(strings.SplitN(rawURL, "?", 2)[0])
		return ref
	}

	ref.ID = lastSegment(u.Path)
	for _, kv := range strings.Split(u.RawQuery, "&") {
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "xsec_token":
			ref.XsecToken = v
		case "xsec_source":
			if v != "" {
				ref.XsecSource = v
			}
		}
	}
	return ref
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// NoteURL builds the canonical note URL used across the fetch flows
func NoteURL(noteID, xsecToken string) string {
	return WebURL + "/explore/" + noteID + "?xsec_token=" + xsecToken
}

// ProfileURL builds the home page of a user
func ProfileURL(userID string) string {
	return WebURL + "/user/profile/" + userID
}

// VideoURL builds the CDN address for an origin video key
func VideoURL(originKey string) string {
	return VideoCDN + originKey
}
