package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/storage"
)

const (
	sniffLen      = 261
	maxConcurrent = 4
	defaultChunk  = 1 << 20
)

type mediaKind int

const (
	imageMedia mediaKind = iota
	videoMedia
)

func (k mediaKind) fallbackExt() string {
	if k == videoMedia {
		return "mp4"
	}
	return "jpeg"
}

// client returns the media client, routed through proxy when set
func (n *Native) client(proxy string) (*http.Client, error) {
	if proxy == "" {
		return n.http, nil
	}
	u, err := url.Parse(proxy)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid proxy %q", proxy)
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = http.ProxyURL(u)
	return &http.Client{Timeout: n.http.Timeout, Transport: tr}, nil
}

// selected reports whether the 1-based position i passes the index filter
func selected(index []int, i int) bool {
	if len(index) == 0 {
		return true
	}
	for _, want := range index {
		if want == i {
			return true
		}
	}
	return false
}

func (n *Native) download(ctx context.Context, note models.Note, data map[string]any, live []string, index []int, published time.Time, proxy string) error {
	client, err := n.client(proxy)
	if err != nil {
		return err
	}

	dir := n.root
	if n.cfg.AuthorArchive {
		if dir, err = n.authorDir(note.UserID, note.Nickname); err != nil {
			return err
		}
	}
	name := n.fileName(data)
	if n.cfg.FolderMode {
		dir = filepath.Join(dir, name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create download directory")
	}

	p := pool.New().WithMaxGoroutines(maxConcurrent).WithContext(ctx)
	save := func(u, base string, kind mediaKind) {
		p.Go(func(ctx context.Context) error {
			path, err := n.fetchFile(ctx, client, u, dir, base, kind)
			if err != nil {
				return errors.Wrapf(err, "failed to save %s", base)
			}
			if n.cfg.WriteMtime && !published.IsZero() {
				if err := os.Chtimes(path, published, published); err != nil {
					n.logger.WithError(err).WithField("path", path).Warn("mtime not written")
				}
			}
			return nil
		})
	}

	downloads, _ := data[KeyDownloads].([]string)
	switch {
	case note.IsVideo():
		if n.cfg.VideoDownload && len(downloads) > 0 {
			save(downloads[0], name, videoMedia)
		}
	default:
		for i, u := range downloads {
			if !selected(index, i+1) {
				continue
			}
			base := fmt.Sprintf("%s_%d", name, i+1)
			if n.cfg.ImageDownload {
				save(u, base, imageMedia)
			}
			if n.cfg.LiveDownload && i < len(live) && live[i] != "" {
				save(live[i], base, videoMedia)
			}
		}
	}
	return p.Wait()
}

// existing returns a completed file named base.* in dir
func existing(dir, base string, kind mediaKind) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		ext := strings.TrimPrefix(filepath.Ext(e.Name()), ".")
		if e.IsDir() || strings.TrimSuffix(e.Name(), "."+ext) != base {
			continue
		}
		t := filetype.GetType(ext)
		if (kind == imageMedia && t.MIME.Type == "image") || (kind == videoMedia && t.MIME.Type == "video") {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

// fetchFile saves u as dir/base.{sniffed ext}, retrying max_retry times.
// A file that already exists is kept.
func (n *Native) fetchFile(ctx context.Context, client *http.Client, u, dir, base string, kind mediaKind) (string, error) {
	if path := existing(dir, base, kind); path != "" {
		n.logger.DebugWithFields("file exists, skipped", map[string]interface{}{"path": path})
		return path, nil
	}

	attempts := n.cfg.MaxRetry
	if attempts < 1 {
		attempts = 1
	}

	var path string
	err := retry.Do(
		func() error {
			var err error
			path, err = n.fetchOnce(ctx, client, u, dir, base, kind)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(n.retry),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			n.logger.WarnWithFields("retrying download", map[string]interface{}{
				"url":     u,
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
		}),
	)
	return path, err
}

func (n *Native) fetchOnce(ctx context.Context, client *http.Client, u, dir, base string, kind mediaKind) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", retry.Unrecoverable(errors.Wrap(err, "invalid media URL"))
	}
	n.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to download media")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	head := make([]byte, sniffLen)
	read, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(err, "failed to read media data")
	}
	head = head[:read]

	switch {
	case kind == imageMedia && !filetype.IsImage(head):
		return "", retry.Unrecoverable(errors.New("downloaded file is not a valid image"))
	case kind == videoMedia && !filetype.IsVideo(head):
		return "", retry.Unrecoverable(errors.New("downloaded file is not a valid video"))
	}

	ext := kind.fallbackExt()
	if t, err := filetype.Match(head); err == nil && t != filetype.Unknown {
		ext = t.Extension
	}
	path := filepath.Join(dir, base+"."+ext)

	chunk := n.cfg.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunk
	}
	err = storage.WriteAtomic(path, func(w io.Writer) error {
		if _, err := w.Write(head); err != nil {
			return err
		}
		_, err := io.CopyBuffer(w, resp.Body, make([]byte, chunk))
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to write media")
	}
	return path, nil
}
