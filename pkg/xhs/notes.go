package xhs

import (
	"context"

	"github.com/tidwall/gjson"
	xerrors "xhscrawler/pkg/errors"
)

type feedRequest struct {
	SourceNoteID string            `json:"source_note_id"`
	ImageFormats []string          `json:"image_formats"`
	Extra        map[string]string `json:"extra"`
	XsecSource   string            `json:"xsec_source"`
	XsecToken    string            `json:"xsec_token"`
}

// GetNoteInfo fetches the feed payload of one note. noteURL may be a full
// explore URL carrying xsec_token or a bare note id.
func (c *Client) GetNoteInfo(ctx context.Context, noteURL, cookies string, proxies Proxies) (gjson.Result, error) {
	ref := ParseRef(noteURL)
	if ref.ID == "" {
		return gjson.Result{}, xerrors.New(xerrors.KindInvalidInput, "no note id in %q", noteURL)
	}

	return c.post(ctx, FeedEndpoint, feedRequest{
		SourceNoteID: ref.ID,
		ImageFormats: ImageFormats,
		Extra:        map[string]string{"need_body_topic": "1"},
		XsecSource:   ref.XsecSource,
		XsecToken:    ref.XsecToken,
	}, cookies, proxies)
}

// GetUserInfo fetches the profile behind a user URL
func (c *Client) GetUserInfo(ctx context.Context, userURL, cookies string, proxies Proxies) (gjson.Result, error) {
	ref := ParseRef(userURL)
	if ref.ID == "" {
		return gjson.Result{}, xerrors.New(xerrors.KindInvalidInput, "no user id in %q", userURL)
	}
	return c.get(ctx, UserInfoEndpoint, []Param{{"target_user_id", ref.ID}}, cookies, proxies)
}

// GetUserNotePage fetches one page of a user's posted notes
func (c *Client) GetUserNotePage(ctx context.Context, ref Ref, cursor, cookies string, proxies Proxies) (gjson.Result, error) {
	return c.get(ctx, UserPostedEndpoint, []Param{
		{"num", "30"},
		{"cursor", cursor},
		{"user_id", ref.ID},
		{"image_formats", "jpg,webp,avif"},
		{"xsec_token", ref.XsecToken},
		{"xsec_source", ref.XsecSource},
	}, cookies, proxies)
}

// GetUserAllNotes walks user_posted while has_more is set and returns every
// note reference. The first failing page aborts the walk.
func (c *Client) GetUserAllNotes(ctx context.Context, userURL, cookies string, proxies Proxies) ([]gjson.Result, error) {
	ref := ParseRef(userURL)
	if ref.ID == "" {
		return nil, xerrors.New(xerrors.KindInvalidInput, "no user id in %q", userURL)
	}

	var notes []gjson.Result
	cursor := ""
	for {
		res, err := c.GetUserNotePage(ctx, ref, cursor, cookies, proxies)
		if err != nil {
			return nil, err
		}
		data := res.Get("data")
		notes = append(notes, data.Get("notes").Array()...)

		next := data.Get("cursor").String()
		if !data.Get("has_more").Bool() || next == "" || next == cursor {
			break
		}
		cursor = next
	}

	c.logger.DebugWithFields("collected user notes", map[string]interface{}{
		"user_id": ref.ID,
		"count":   len(notes),
	})
	return notes, nil
}

// GetNoteCommentPage fetches one page of top level comments
func (c *Client) GetNoteCommentPage(ctx context.Context, ref Ref, cursor, cookies string, proxies Proxies) (gjson.Result, error) {
	return c.get(ctx, CommentPageEndpoint, []Param{
		{"note_id", ref.ID},
		{"cursor", cursor},
		{"top_comment_id", ""},
		{"image_formats", "jpg,webp,avif"},
		{"xsec_token", ref.XsecToken},
	}, cookies, proxies)
}

// GetNoteComments walks the comment pages of a note
func (c *Client) GetNoteComments(ctx context.Context, noteURL, cookies string, proxies Proxies) ([]gjson.Result, error) {
	ref := ParseRef(noteURL)
	if ref.ID == "" {
		return nil, xerrors.New(xerrors.KindInvalidInput, "no note id in %q", noteURL)
	}

	var comments []gjson.Result
	cursor := ""
	for {
		res, err := c.GetNoteCommentPage(ctx, ref, cursor, cookies, proxies)
		if err != nil {
			return nil, err
		}
		data := res.Get("data")
		comments = append(comments, data.Get("comments").Array()...)

		next := data.Get("cursor").String()
		if !data.Get("has_more").Bool() || next == "" || next == cursor {
			break
		}
		cursor = next
	}
	return comments, nil
}
