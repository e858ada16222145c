package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"xhscrawler/pkg/config"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/normalize"
	"xhscrawler/pkg/record"
	"xhscrawler/pkg/signer"
	"xhscrawler/pkg/storage"
	"xhscrawler/pkg/xhs"
)

// Detail keys, matching the columns the downloader has always produced
const (
	KeyID          = "作品ID"
	KeyURL         = "作品链接"
	KeyTitle       = "作品标题"
	KeyDesc        = "作品描述"
	KeyType        = "作品类型"
	KeyTags        = "作品标签"
	KeyPublishTime = "发布时间"
	KeyCollected   = "收藏数量"
	KeyComments    = "评论数量"
	KeyShares      = "分享数量"
	KeyLikes       = "点赞数量"
	KeyAuthor      = "作者昵称"
	KeyAuthorID    = "作者ID"
	KeyAuthorURL   = "作者链接"
	KeyLocation    = "IP归属地"
	KeyDownloads   = "下载地址"
	KeyLive        = "动图地址"
	KeyCollectedAt = "采集时间"
)

// nameLimit bounds generated file names, in runes
const nameLimit = 64

// NoteFetcher fetches the feed payload of one note
type NoteFetcher interface {
	GetNoteInfo(ctx context.Context, noteURL, cookies string, proxies xhs.Proxies) (gjson.Result, error)
}

// Native extracts notes through the signed web API
type Native struct {
	cfg     config.DownloaderConfig
	root    string
	notes   NoteFetcher
	http    *http.Client
	record  *record.Manager
	mapping map[string]string
	headers map[string]string
	logger  logger.Logger
	now     func() time.Time
	retry   time.Duration
}

// NativeOption configures a Native extractor
type NativeOption func(*Native)

// WithHTTPClient replaces the client used for media and short links
func WithHTTPClient(c *http.Client) NativeOption {
	return func(n *Native) {
		if c != nil {
			n.http = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) NativeOption {
	return func(n *Native) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithClock sets the collection time source
func WithClock(now func() time.Time) NativeOption {
	return func(n *Native) {
		if now != nil {
			n.now = now
		}
	}
}

// WithRetryDelay sets the pause between attempts of one file
func WithRetryDelay(d time.Duration) NativeOption {
	return func(n *Native) {
		n.retry = d
	}
}

// NewNative builds an extractor saving into
// {work_directory}/{folder_name}
func NewNative(cfg config.DownloaderConfig, notes NoteFetcher, opts ...NativeOption) (*Native, error) {
	if notes == nil {
		return nil, xerrors.New(xerrors.KindInvalidInput, "extractor: note client is required")
	}
	work, err := config.ExpandPath(cfg.Storage.WorkDirectory)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve work directory")
	}

	n := &Native{
		cfg:    cfg,
		root:   filepath.Join(work, cfg.Storage.FolderName),
		notes:  notes,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		headers: signer.PageHeaders(),
		logger:  logger.GetLogger(),
		now:     time.Now,
		retry:   time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}

	if cfg.DownloadRecord {
		n.record, err = record.NewManager(work, n.logger)
		if err != nil {
			return nil, err
		}
	}
	n.mapping = LoadMapping(cfg.MappingData, cfg.MappingFile, n.logger)
	return n, nil
}

// Root returns the download directory
func (n *Native) Root() string {
	return n.root
}

// Close releases idle connections
func (n *Native) Close() error {
	n.http.CloseIdleConnections()
	return nil
}

// setHeaders applies the page template; a configured user agent wins
func (n *Native) setHeaders(req *http.Request) {
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}
	if n.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", n.cfg.UserAgent)
	}
}

func proxies(proxy string) xhs.Proxies {
	if proxy == "" {
		return nil
	}
	return xhs.Proxies{"http": proxy, "https": proxy}
}

// DealExtract fetches url's detail and, when asked, downloads its files
func (n *Native) DealExtract(ctx context.Context, noteURL string, opts DealOptions) (map[string]any, error) {
	id := xhs.ParseRef(noteURL).ID
	if id == "" {
		return nil, xerrors.New(xerrors.KindInvalidInput, "no note id in %q", noteURL)
	}
	if opts.SkipRecorded && n.record != nil && n.record.Has(id) {
		n.logger.InfoWithFields("note already downloaded, skipped", map[string]interface{}{"note_id": id})
		return nil, nil
	}

	cookies := opts.Cookie
	if cookies == "" {
		cookies = n.cfg.DefaultCookie
	}
	if strings.TrimSpace(cookies) == "" {
		return nil, xerrors.New(xerrors.KindCredentialsMissing, "no cookie for the xhs downloader")
	}
	proxy := opts.Proxy
	if proxy == "" {
		proxy = n.cfg.Proxy
	}

	res, err := n.notes.GetNoteInfo(ctx, noteURL, cookies, proxies(proxy))
	if err != nil {
		return nil, err
	}
	items := res.Get("data.items").Array()
	if len(items) == 0 {
		return nil, nil
	}

	item := items[0]
	note := normalize.Note(item)
	note.NoteURL = noteURL
	live := liveURLs(item)
	data := n.detail(note, live)

	if opts.Download {
		published := time.UnixMilli(item.Get("note_card.time").Int())
		if err := n.download(ctx, note, data, live, opts.Index, published, proxy); err != nil {
			n.logger.WithError(err).WithField("note_id", note.NoteID).Error("note download incomplete")
		} else if n.record != nil {
			var kept map[string]any
			if n.cfg.RecordData {
				kept = data
			}
			if err := n.record.Add(note.NoteID, kept); err != nil {
				n.logger.WithError(err).Warn("download record not updated")
			}
		}
	}
	return data, nil
}

func (n *Native) detail(note models.Note, live []string) map[string]any {
	downloads := []string{}
	switch {
	case note.IsVideo() && note.VideoAddr != "":
		downloads = append(downloads, note.VideoAddr)
	case !note.IsVideo():
		for _, u := range note.ImageList {
			downloads = append(downloads, ImageURL(u, n.cfg.ImageFormat))
		}
	}
	if live == nil {
		live = []string{}
	}

	return map[string]any{
		KeyID:          note.NoteID,
		KeyURL:         note.NoteURL,
		KeyTitle:       note.Title,
		KeyDesc:        note.Desc,
		KeyType:        string(note.NoteType),
		KeyTags:        strings.Join(note.Tags, " "),
		KeyPublishTime: note.UploadTime,
		KeyCollected:   note.CollectedCount,
		KeyComments:    note.CommentCount,
		KeyShares:      note.ShareCount,
		KeyLikes:       note.LikedCount,
		KeyAuthor:      note.Nickname,
		KeyAuthorID:    note.UserID,
		KeyAuthorURL:   note.HomeURL,
		KeyLocation:    note.IPLocation,
		KeyDownloads:   downloads,
		KeyLive:        live,
		KeyCollectedAt: n.now().Format(normalize.TimeLayout),
	}
}

// liveURLs returns the motion stream of each gallery image, "" when absent
func liveURLs(item gjson.Result) []string {
	var out []string
	found := false
	for _, img := range item.Get("note_card.image_list").Array() {
		u := img.Get("stream.h264.0.master_url").String()
		found = found || u != ""
		out = append(out, u)
	}
	if !found {
		return nil
	}
	return out
}

// ImageURL rewrites a CDN image URL to request format. AUTO and unknown
// URLs are returned unchanged.
func ImageURL(raw, format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "auto" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	// /{timestamp}/{hash}/{token}!{style}: the token is everything after
	// the second segment
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 3)
	if len(parts) < 3 {
		return raw
	}
	token, _, _ := strings.Cut(parts[2], "!")
	return "https://ci.xiaohongshu.com/" + token + "?imageView2/format/" + format
}

// fileName renders name_format against data, e.g. "发布时间 作者昵称 作品标题"
func (n *Native) fileName(data map[string]any) string {
	var parts []string
	for _, key := range strings.Fields(n.cfg.Storage.NameFormat) {
		v, ok := data[key]
		if !ok {
			continue
		}
		s := storage.NormName(nameReplacer.Replace(toString(v)))
		if s != "" {
			parts = append(parts, s)
		}
	}
	name := truncate(strings.Join(parts, "_"), nameLimit)
	if name == "" {
		name = toString(data[KeyID])
	}
	return name
}

var nameReplacer = strings.NewReplacer(":", ".", " ", "_")

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
