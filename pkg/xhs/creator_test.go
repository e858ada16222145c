package xhs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
)

func newTestCreator(t *testing.T, respond func(n int, r *http.Request) (int, string)) (*CreatorClient, *stubUpstream) {
	t.Helper()
	up := &stubUpstream{respond: respond}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)
	return NewCreatorClient(newTestSigner(t), WithBaseURL(srv.URL), WithLogger(logger.NewTestLogger())), up
}

func TestGetAllPublishedNotesFollowsPages(t *testing.T) {
	pages := []string{
		ok(`{"notes":[{"id":"p1"}],"page":1}`),
		ok(`{"notes":[{"id":"p2"},{"id":"p3"}],"page":2}`),
		ok(`{"notes":[{"id":"p4"}],"page":-1}`),
	}
	c, up := newTestCreator(t, func(n int, r *http.Request) (int, string) {
		if n < len(pages) {
			return 200, pages[n]
		}
		return 500, "too many"
	})

	notes, err := c.GetAllPublishedNotes(context.Background(), testCookies)
	require.NoError(t, err)
	require.Len(t, notes, 4)
	assert.Equal(t, "p4", notes[3].Get("id").String())

	require.Equal(t, 3, up.count())
	assert.Equal(t, "/web_api/sns/v5/creator/note/user/posted?tab=0", up.get(0).URI)
	assert.Equal(t, "/web_api/sns/v5/creator/note/user/posted?tab=0&page=1", up.get(1).URI)
	assert.Equal(t, "/web_api/sns/v5/creator/note/user/posted?tab=0&page=2", up.get(2).URI)

	first := up.get(0)
	assert.True(t, strings.HasPrefix(first.Header.Get("x-s"), "XYW_"))
	assert.Equal(t, "1700000000000", first.Header.Get("x-t"))
	assert.Empty(t, first.Header.Get("x-s-common"))
	assert.Equal(t, "https://creator.xiaohongshu.com", first.Header.Get("origin"))
}

func TestGetAllPublishedNotesAbortsOnFailure(t *testing.T) {
	c, _ := newTestCreator(t, func(n int, r *http.Request) (int, string) {
		if n == 0 {
			return 200, ok(`{"notes":[{"id":"p1"}],"page":1}`)
		}
		return 503, "busy"
	})

	notes, err := c.GetAllPublishedNotes(context.Background(), testCookies)
	assert.ErrorIs(t, err, xerrors.ErrUpstreamRequestFailed)
	assert.Nil(t, notes)
}

func TestGetPublishedNotesNeedsAccountCookie(t *testing.T) {
	c, up := newTestCreator(t, func(int, *http.Request) (int, string) { return 200, ok(`{}`) })
	_, err := c.GetPublishedNotes(context.Background(), 0, "web_session=x")
	assert.ErrorIs(t, err, xerrors.ErrCredentialsMissing)
	assert.Zero(t, up.count())
}

func TestGetPublishedNotesMissingPage(t *testing.T) {
	c, _ := newTestCreator(t, func(int, *http.Request) (int, string) { return 200, ok(`{"notes":[]}`) })
	_, err := c.GetAllPublishedNotes(context.Background(), testCookies)
	assert.ErrorIs(t, err, xerrors.ErrMalformedItem)
}
