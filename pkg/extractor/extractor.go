package extractor

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
)

// Extractor resolves note links and extracts one note's detail
type Extractor interface {
	// ExtractLinks returns the note URLs found in text. Unresolvable input
	// yields an empty slice, never an error.
	ExtractLinks(ctx context.Context, text string) []string
	// DealExtract returns the note detail, or nil when nothing was extracted
	DealExtract(ctx context.Context, url string, opts DealOptions) (map[string]any, error)
}

// DealOptions are the per call overrides of DealExtract
type DealOptions struct {
	Download bool
	// Index selects gallery images, 1-based. Nil selects all.
	Index        []int
	Cookie       string
	Proxy        string
	SkipRecorded bool
}

// Request is the detail request accepted at the API boundary
type Request struct {
	URL            string    `json:"url" binding:"required"`
	Download       bool      `json:"download"`
	Index          IndexList `json:"index"`
	Cookie         string    `json:"cookie"`
	Proxy          string    `json:"proxy"`
	SkipDownloaded bool      `json:"skip_downloaded"`
}

// Detail is the outcome of FetchDetail
type Detail struct {
	URL     string         `json:"url"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// IndexList decodes from either a list or a comma/space separated string
type IndexList []int

// UnmarshalJSON accepts [1,"2"], "1,2 3", "" and null
func (l *IndexList) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*l = ParseIndex(v)
	return nil
}

// ParseIndex keeps the integers of a string or list, returning nil when
// none remain
func ParseIndex(v any) []int {
	var raw []any
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		for _, f := range strings.Fields(strings.ReplaceAll(t, ",", " ")) {
			raw = append(raw, f)
		}
	case []int:
		raw = make([]any, len(t))
		for i, n := range t {
			raw[i] = n
		}
	case []string:
		raw = make([]any, len(t))
		for i, s := range t {
			raw[i] = s
		}
	case []any:
		raw = t
	default:
		return nil
	}

	var out []int
	for _, item := range raw {
		switch n := item.(type) {
		case int:
			out = append(out, n)
		case float64:
			if !math.IsNaN(n) && !math.IsInf(n, 0) {
				out = append(out, int(n))
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				out = append(out, i)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Settings configure the Service
type Settings struct {
	Enabled bool
	// Language selects the message set, zh_CN or en_US
	Language string
}

type messages struct {
	success, failure, noLinks string
}

var catalog = map[string]messages{
	"zh_CN": {
		success: "获取小红书作品数据成功",
		failure: "获取小红书作品数据失败",
		noLinks: "提取小红书作品链接失败",
	},
	"en_US": {
		success: "Fetched note data",
		failure: "Failed to fetch note data",
		noLinks: "Failed to extract note links",
	},
}

// Service owns an Extractor's lifecycle and shapes its results
type Service struct {
	settings  Settings
	extractor Extractor
	logger    logger.Logger
	msgs      messages

	mu      sync.RWMutex
	started bool
}

// NewService wraps ex. ex may be nil when the service is disabled.
func NewService(settings Settings, ex Extractor, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetLogger()
	}
	msgs, ok := catalog[settings.Language]
	if !ok {
		msgs = catalog["zh_CN"]
	}
	return &Service{settings: settings, extractor: ex, logger: log, msgs: msgs}
}

// Enabled reports whether the downloader is switched on
func (s *Service) Enabled() bool {
	return s.settings.Enabled
}

// Started reports whether Startup completed
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Startup readies the extractor. It is a no-op when disabled or started.
func (s *Service) Startup(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("xhs downloader disabled, skipping startup")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.extractor == nil {
		return xerrors.New(xerrors.KindInvalidInput, "xhs downloader has no extractor")
	}
	if st, ok := s.extractor.(interface{ Start(context.Context) error }); ok {
		if err := st.Start(ctx); err != nil {
			return err
		}
	}
	s.started = true
	s.logger.Info("xhs downloader started")
	return nil
}

// Shutdown releases the extractor
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	if c, ok := s.extractor.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	s.logger.Info("xhs downloader stopped")
	return nil
}

// FetchDetail resolves the first note link in req.URL and extracts it
func (s *Service) FetchDetail(ctx context.Context, req Request) (Detail, error) {
	if !s.Enabled() {
		return Detail{}, xerrors.New(xerrors.KindDisabled, "xhs downloader is not enabled")
	}
	if !s.Started() {
		return Detail{}, xerrors.New(xerrors.KindDisabled, "xhs downloader has not been started")
	}

	url := strings.TrimSpace(req.URL)
	links := s.extractor.ExtractLinks(ctx, url)
	if len(links) == 0 {
		return Detail{URL: url, Message: s.msgs.noLinks}, nil
	}

	target := links[0]
	data, err := s.extractor.DealExtract(ctx, target, DealOptions{
		Download:     req.Download,
		Index:        req.Index,
		Cookie:       req.Cookie,
		Proxy:        req.Proxy,
		SkipRecorded: req.SkipDownloaded,
	})
	if err != nil {
		s.logger.WithError(err).WithField("url", target).Error("detail extraction failed")
		data = nil
	}

	msg := s.msgs.failure
	if len(data) > 0 {
		msg = s.msgs.success
	}
	return Detail{URL: target, Message: msg, Data: data}, nil
}
