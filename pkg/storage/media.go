package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/retry"
)

const (
	// videoChunkSize bounds memory while streaming a video to disk
	videoChunkSize = 1 << 20
	// sniffLen is the header length filetype needs
	sniffLen = 261

	DefaultMediaTimeout  = 60 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// MediaSaver downloads note media into the note directory
type MediaSaver struct {
	manager  *Manager
	client   *http.Client
	headers  map[string]string
	attempts int
	delay    time.Duration
	logger   logger.Logger
}

// MediaOption configures a MediaSaver
type MediaOption func(*MediaSaver)

// WithHTTPClient replaces the media HTTP client
func WithHTTPClient(c *http.Client) MediaOption {
	return func(s *MediaSaver) {
		if c != nil {
			s.client = c
		}
	}
}

// WithRetry sets how often the whole note download is attempted
func WithRetry(attempts int, delay time.Duration) MediaOption {
	return func(s *MediaSaver) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay >= 0 {
			s.delay = delay
		}
	}
}

// WithRequestHeaders sets headers sent with every media request
func WithRequestHeaders(h map[string]string) MediaOption {
	return func(s *MediaSaver) {
		s.headers = h
	}
}

// WithMediaLogger sets the logger
func WithMediaLogger(l logger.Logger) MediaOption {
	return func(s *MediaSaver) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewMediaSaver creates a saver writing beneath m's media root
func NewMediaSaver(m *Manager, opts ...MediaOption) *MediaSaver {
	s := &MediaSaver{
		manager:  m,
		client:   &http.Client{Timeout: DefaultMediaTimeout},
		attempts: DefaultRetryAttempts,
		delay:    DefaultRetryDelay,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveNote writes info.json and detail.txt, then the media selected by
// choice, and returns the note directory. The unit is retried while the
// failure is retryable (transport errors, 429, 5xx, bad payloads); files that
// completed in an earlier attempt are not fetched again.
func (s *MediaSaver) SaveNote(ctx context.Context, note models.Note, choice models.SaveChoice) (string, error) {
	dir := s.manager.NoteDir(note)
	log := s.logger.WithFields(map[string]interface{}{
		"note_id": note.NoteID,
		"dir":     dir,
	})

	var mu sync.Mutex
	done := make(map[string]bool)
	fetchOnce := func(ctx context.Context, name string, fetch func(ctx context.Context, path string) error) error {
		mu.Lock()
		skip := done[name]
		mu.Unlock()
		if skip {
			return nil
		}
		if err := fetch(ctx, filepath.Join(dir, name)); err != nil {
			return errors.Wrapf(err, "failed to save %s", name)
		}
		mu.Lock()
		done[name] = true
		mu.Unlock()
		return nil
	}

	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create note directory")
		}
		if err := writeNoteSideFiles(dir, note); err != nil {
			return err
		}

		switch {
		case note.NoteType == models.NoteTypeGallery && choice.Images():
			for i, url := range note.ImageList {
				url := url
				name := fmt.Sprintf("image_%d.jpg", i)
				if err := fetchOnce(ctx, name, func(ctx context.Context, path string) error {
					return s.saveImage(ctx, url, path)
				}); err != nil {
					return err
				}
			}
		case note.NoteType == models.NoteTypeVideo && choice.Video():
			if note.VideoCover == "" || note.VideoAddr == "" {
				log.Warn("video note without cover or address, media skipped")
				return nil
			}
			if err := fetchOnce(ctx, "cover.jpg", func(ctx context.Context, path string) error {
				return s.saveImage(ctx, note.VideoCover, path)
			}); err != nil {
				return err
			}
			if err := fetchOnce(ctx, "video.mp4", func(ctx context.Context, path string) error {
				return s.saveStream(ctx, note.VideoAddr, path)
			}); err != nil {
				return err
			}
		}
		return nil
	}, retry.Fixed(s.attempts, s.delay, log))
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindStorageFailed, err, "save media for note %s", note.NoteID)
	}

	log.DebugWithFields("note media saved", map[string]interface{}{"files": len(done)})
	return dir, nil
}

func (s *MediaSaver) open(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid media URL")
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to download media")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, xerrors.Upstream(resp.StatusCode, nil, "download failed with status: %d", resp.StatusCode)
	}
	return resp, nil
}

func (s *MediaSaver) saveImage(ctx context.Context, url, path string) error {
	resp, err := s.open(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read image data")
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if !filetype.IsImage(head) {
		return errors.New("downloaded file is not a valid image")
	}
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}

func (s *MediaSaver) saveStream(ctx context.Context, url, path string) error {
	resp, err := s.open(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return WriteAtomic(path, func(w io.Writer) error {
		buf := make([]byte, videoChunkSize)
		if _, err := io.CopyBuffer(w, resp.Body, buf); err != nil {
			return errors.Wrap(err, "failed to stream video")
		}
		return nil
	})
}
