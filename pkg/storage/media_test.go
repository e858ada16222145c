package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/signer"
)

var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, bytes.Repeat([]byte{0x01}, 64)...)

type cdn struct {
	mu       sync.Mutex
	hits     map[string]int
	failures map[string]int
	bodies   map[string][]byte
	referers map[string]string
}

func newCDN() *cdn {
	return &cdn{hits: map[string]int{}, failures: map[string]int{}, bodies: map[string][]byte{}, referers: map[string]string{}}
}

func (c *cdn) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.hits[r.URL.Path]++
	c.referers[r.URL.Path] = r.Referer()
	fail := c.failures[r.URL.Path] > 0
	if fail {
		c.failures[r.URL.Path]--
	}
	body, ok := c.bodies[r.URL.Path]
	c.mu.Unlock()

	if fail {
		http.Error(w, "flaky", http.StatusBadGateway)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(body)
}

func (c *cdn) hitCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

func newTestSaver(t *testing.T, c *cdn) (*MediaSaver, *Manager, string) {
	t.Helper()
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	m := newTestManager(t)
	s := NewMediaSaver(m, WithRetry(3, time.Millisecond), WithMediaLogger(logger.NewTestLogger()))
	return s, m, srv.URL
}

func galleryNote(base string) models.Note {
	return models.Note{
		NoteID:    "n1",
		NoteURL:   "https://www.xiaohongshu.com/explore/n1?xsec_token=t",
		NoteType:  models.NoteTypeGallery,
		UserID:    "u1",
		Nickname:  "阿乐",
		Title:     "露营 <清单>",
		ImageList: []string{base + "/img/0", base + "/img/1"},
		Tags:      []string{"露营"},
	}
}

func TestSaveNoteGallery(t *testing.T) {
	c := newCDN()
	c.bodies["/img/0"] = jpegBytes
	c.bodies["/img/1"] = jpegBytes
	s, m, base := newTestSaver(t, c)

	note := galleryNote(base)
	dir, err := s.SaveNote(context.Background(), note, models.SaveMediaImage)
	require.NoError(t, err)
	assert.Equal(t, m.NoteDir(note), dir)

	for _, name := range []string{"info.json", "detail.txt", "image_0.jpg", "image_1.jpg"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	info, err := os.ReadFile(filepath.Join(dir, "info.json"))
	require.NoError(t, err)
	assert.Contains(t, string(info), `"title":"露营 <清单>"`)
	var decoded models.Note
	require.NoError(t, json.Unmarshal(info, &decoded))
	assert.Equal(t, note, decoded)

	detail, err := os.ReadFile(filepath.Join(dir, "detail.txt"))
	require.NoError(t, err)
	lines := strings.Split(string(detail), "\n")
	require.Len(t, lines, 19)
	assert.Equal(t, "笔记id: n1", lines[0])
	assert.Equal(t, "笔记类型: 图集", lines[2])
	assert.Equal(t, "标签: [露营]", lines[16])
}

func TestSaveNoteVideoChoiceSkipsGalleryImages(t *testing.T) {
	c := newCDN()
	s, _, base := newTestSaver(t, c)

	dir, err := s.SaveNote(context.Background(), galleryNote(base), models.SaveMediaVideo)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "info.json"))
	assert.NoError(t, err, "side files are always written")
	_, err = os.Stat(filepath.Join(dir, "image_0.jpg"))
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, c.hitCount("/img/0"))
}

func TestSaveNoteVideo(t *testing.T) {
	video := bytes.Repeat([]byte("v"), 3<<20)
	c := newCDN()
	c.bodies["/cover"] = jpegBytes
	c.bodies["/video"] = video
	s, _, base := newTestSaver(t, c)

	note := models.Note{
		NoteID:     "n2",
		NoteType:   models.NoteTypeVideo,
		UserID:     "u1",
		Title:      "视频",
		VideoCover: base + "/cover",
		VideoAddr:  base + "/video",
	}
	dir, err := s.SaveNote(context.Background(), note, models.SaveAll)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "video.mp4"))
	require.NoError(t, err)
	assert.Equal(t, len(video), len(got))
	_, err = os.Stat(filepath.Join(dir, "cover.jpg"))
	assert.NoError(t, err)
}

func TestSaveNoteResumesAcrossAttempts(t *testing.T) {
	c := newCDN()
	c.bodies["/img/0"] = jpegBytes
	c.bodies["/img/1"] = jpegBytes
	c.failures["/img/1"] = 2
	s, _, base := newTestSaver(t, c)

	dir, err := s.SaveNote(context.Background(), galleryNote(base), models.SaveMedia)
	require.NoError(t, err)

	assert.Equal(t, 1, c.hitCount("/img/0"), "completed files are not fetched again")
	assert.Equal(t, 3, c.hitCount("/img/1"))
	_, err = os.Stat(filepath.Join(dir, "image_1.jpg"))
	assert.NoError(t, err)
}

func TestSaveNoteFailsAfterRetries(t *testing.T) {
	c := newCDN()
	c.bodies["/img/0"] = jpegBytes
	c.bodies["/img/1"] = jpegBytes
	c.failures["/img/1"] = 10
	s, _, base := newTestSaver(t, c)

	_, err := s.SaveNote(context.Background(), galleryNote(base), models.SaveAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrStorageFailed)
	assert.Equal(t, 3, c.hitCount("/img/1"))
}

func TestSaveNoteDoesNotRetryMissingMedia(t *testing.T) {
	c := newCDN()
	c.bodies["/img/0"] = jpegBytes
	s, _, base := newTestSaver(t, c)

	_, err := s.SaveNote(context.Background(), galleryNote(base), models.SaveAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrUpstreamRequestFailed)
	assert.Equal(t, 1, c.hitCount("/img/1"))
}

func TestSaveNoteStopsWhenCancelled(t *testing.T) {
	c := newCDN()
	c.bodies["/img/0"] = jpegBytes
	c.bodies["/img/1"] = jpegBytes
	s, _, base := newTestSaver(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SaveNote(ctx, galleryNote(base), models.SaveAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.hitCount("/img/0"))
}

func TestSaveNoteRejectsNonImage(t *testing.T) {
	c := newCDN()
	c.bodies["/img/0"] = []byte("<html>blocked</html>")
	c.bodies["/img/1"] = jpegBytes
	s, _, base := newTestSaver(t, c)

	_, err := s.SaveNote(context.Background(), galleryNote(base), models.SaveAll)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid image")
}

func TestSaveNoteSendsRequestHeaders(t *testing.T) {
	c := newCDN()
	c.bodies["/img/0"] = jpegBytes
	c.bodies["/img/1"] = jpegBytes
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	s := NewMediaSaver(newTestManager(t),
		WithRequestHeaders(signer.PageHeaders()),
		WithMediaLogger(logger.NewTestLogger()),
	)

	_, err := s.SaveNote(context.Background(), galleryNote(srv.URL), models.SaveMedia)
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, "https://www.xiaohongshu.com/", c.referers["/img/0"])
	assert.Equal(t, "https://www.xiaohongshu.com/", c.referers["/img/1"])
}

func TestSaveNoteSkipsVideoWithoutAddress(t *testing.T) {
	s, _, _ := newTestSaver(t, newCDN())
	dir, err := s.SaveNote(context.Background(), models.Note{NoteID: "n3", UserID: "u", NoteType: models.NoteTypeVideo, Title: "t"}, models.SaveAll)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "video.mp4"))
	assert.True(t, os.IsNotExist(err))
}
