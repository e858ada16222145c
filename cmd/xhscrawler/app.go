package main

import (
	"net/http"

	"xhscrawler/pkg/config"
	"xhscrawler/pkg/extractor"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/ratelimit"
	"xhscrawler/pkg/signer"
	"xhscrawler/pkg/spider"
	"xhscrawler/pkg/storage"
	"xhscrawler/pkg/xhs"
)

// app holds the wired services of one invocation
type app struct {
	cfg     *config.Config
	log     logger.Logger
	notes   *xhs.Client
	spider  *spider.Service
	details *extractor.Service
}

func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	transform, err := signer.New(cfg.Signer.Version)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	opts := []xhs.Option{
		xhs.WithBaseURL(cfg.HTTP.BaseURL),
		xhs.WithTimeout(cfg.HTTP.Timeout),
		xhs.WithRateLimiter(limiter),
		xhs.WithLogger(log),
	}
	a := &app{
		cfg:   cfg,
		log:   log,
		notes: xhs.NewClient(transform, opts...),
	}

	if cfg.SpiderXHS.Enabled {
		if a.spider, err = newSpider(cfg, log, a.notes, xhs.NewCreatorClient(transform, opts...)); err != nil {
			return nil, err
		}
	}

	var native extractor.Extractor
	if cfg.Downloader.Enabled {
		if native, err = extractor.NewNative(cfg.Downloader, a.notes, extractor.WithLogger(log)); err != nil {
			return nil, err
		}
	}
	a.details = extractor.NewService(extractor.Settings{
		Enabled:  cfg.Downloader.Enabled,
		Language: cfg.Downloader.Language,
	}, native, log)
	return a, nil
}

func newSpider(cfg *config.Config, log logger.Logger, notes *xhs.Client, creator *xhs.CreatorClient) (*spider.Service, error) {
	st := cfg.SpiderXHS.Storage
	mgr, err := storage.NewManager(st.BaseDirectory, st.MediaSubdir, st.ExcelSubdir)
	if err != nil {
		return nil, err
	}
	format, err := storage.ParseFormat(cfg.Export.Format)
	if err != nil {
		return nil, err
	}

	media := storage.NewMediaSaver(mgr,
		storage.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.MediaTimeout}),
		storage.WithRetry(cfg.Download.RetryAttempts, cfg.Download.RetryDelay),
		storage.WithRequestHeaders(signer.PageHeaders()),
		storage.WithMediaLogger(log),
	)
	return spider.NewService(spider.Settings{
		DefaultCookies:  cfg.SpiderXHS.DefaultCookies,
		ConcurrentNotes: cfg.Download.ConcurrentNotes,
	}, spider.Deps{
		Notes:    notes,
		Creator:  creator,
		Manager:  mgr,
		Media:    media,
		Exporter: storage.NewExporter(mgr.ExcelDir(), format, log),
		Logger:   log,
	})
}
