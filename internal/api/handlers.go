package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/extractor"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/spider"
	"xhscrawler/pkg/xhs"
)

// Spider is the crawl surface served under /spider-xhs
type Spider interface {
	FetchNotes(ctx context.Context, noteURLs []string, opts spider.Options) (models.NoteCollection, error)
	FetchUserNotes(ctx context.Context, userURL string, opts spider.Options) (models.NoteCollection, error)
	SearchNotes(ctx context.Context, q spider.SearchQuery, opts spider.Options) (models.NoteCollection, error)
	FetchUsers(ctx context.Context, userURLs []string, opts spider.Options) (models.UserCollection, error)
	FetchNoteComments(ctx context.Context, noteURL string, opts spider.Options) (models.CommentCollection, error)
}

// Downloader is the detail surface served under /xhs-downloader
type Downloader interface {
	Enabled() bool
	FetchDetail(ctx context.Context, req extractor.Request) (extractor.Detail, error)
}

var (
	_ Spider     = (*spider.Service)(nil)
	_ Downloader = (*extractor.Service)(nil)
)

type baseRequest struct {
	SaveChoice string            `json:"save_choice"`
	ExcelName  string            `json:"excel_name"`
	Cookies    string            `json:"cookies"`
	Proxies    map[string]string `json:"proxies"`
}

func (r baseRequest) options() (spider.Options, error) {
	choice, err := models.ParseSaveChoice(r.SaveChoice)
	if err != nil {
		return spider.Options{}, err
	}
	return spider.Options{
		SaveChoice: choice,
		ExcelName:  strings.TrimSpace(r.ExcelName),
		Cookies:    r.Cookies,
		Proxies:    xhs.Proxies(r.Proxies),
	}, nil
}

type notesBatchRequest struct {
	baseRequest
	NoteURLs []string `json:"note_urls" binding:"required,min=1"`
}

type userNotesRequest struct {
	baseRequest
	UserURL string `json:"user_url" binding:"required"`
}

type searchRequest struct {
	baseRequest
	Query       string   `json:"query" binding:"required,min=1"`
	RequireNum  *int     `json:"require_num" binding:"omitempty,min=1,max=1000"`
	SortType    int      `json:"sort_type_choice" binding:"min=0,max=4"`
	NoteType    int      `json:"note_type" binding:"min=0,max=2"`
	NoteTime    int      `json:"note_time" binding:"min=0,max=3"`
	NoteRange   int      `json:"note_range" binding:"min=0,max=3"`
	PosDistance int      `json:"pos_distance" binding:"min=0,max=2"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

const defaultRequireNum = 10

func (r searchRequest) query() (spider.SearchQuery, error) {
	q := spider.SearchQuery{
		Query:      r.Query,
		RequireNum: defaultRequireNum,
		Filter: xhs.SearchFilter{
			SortType:    r.SortType,
			NoteType:    r.NoteType,
			NoteTime:    r.NoteTime,
			NoteRange:   r.NoteRange,
			PosDistance: r.PosDistance,
		},
	}
	if r.RequireNum != nil {
		q.RequireNum = *r.RequireNum
	}
	hasGeo := r.Latitude != nil && r.Longitude != nil
	if q.Filter.NeedsGeo() && !hasGeo {
		return q, errors.New("latitude and longitude are required when filtering by distance")
	}
	if hasGeo {
		q.Geo = map[string]any{"latitude": *r.Latitude, "longitude": *r.Longitude}
	}
	return q, nil
}

type usersBatchRequest struct {
	baseRequest
	UserURLs []string `json:"user_urls" binding:"required,min=1"`
}

type commentsRequest struct {
	baseRequest
	NoteURL string `json:"note_url" binding:"required"`
}

// bind decodes the body and the common options
func bind[T interface{ options() (spider.Options, error) }](c *gin.Context, req T) (spider.Options, error) {
	if err := c.ShouldBindJSON(req); err != nil {
		return spider.Options{}, badRequest(err)
	}
	return req.options()
}

func (s *Server) spiderEnabled() error {
	if s.spider == nil {
		return xerrors.New(xerrors.KindDisabled, "spider-xhs module is not enabled")
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	success(c, gin.H{
		"status":         "ok",
		"spider_xhs":     s.spider != nil,
		"xhs_downloader": s.downloader != nil && s.downloader.Enabled(),
	})
}

func (s *Server) notesBatch(c *gin.Context) error {
	if err := s.spiderEnabled(); err != nil {
		return err
	}
	req := &notesBatchRequest{}
	opts, err := bind(c, req)
	if err != nil {
		return err
	}
	res, err := s.spider.FetchNotes(c.Request.Context(), req.NoteURLs, opts)
	if err != nil {
		return err
	}
	success(c, res)
	return nil
}

func (s *Server) userNotes(c *gin.Context) error {
	if err := s.spiderEnabled(); err != nil {
		return err
	}
	req := &userNotesRequest{}
	opts, err := bind(c, req)
	if err != nil {
		return err
	}
	res, err := s.spider.FetchUserNotes(c.Request.Context(), req.UserURL, opts)
	if err != nil {
		return err
	}
	success(c, res)
	return nil
}

func (s *Server) search(c *gin.Context) error {
	if err := s.spiderEnabled(); err != nil {
		return err
	}
	req := &searchRequest{}
	opts, err := bind(c, req)
	if err != nil {
		return err
	}
	q, err := req.query()
	if err != nil {
		return badRequest(err)
	}
	res, err := s.spider.SearchNotes(c.Request.Context(), q, opts)
	if err != nil {
		return err
	}
	success(c, res)
	return nil
}

func (s *Server) usersBatch(c *gin.Context) error {
	if err := s.spiderEnabled(); err != nil {
		return err
	}
	req := &usersBatchRequest{}
	opts, err := bind(c, req)
	if err != nil {
		return err
	}
	res, err := s.spider.FetchUsers(c.Request.Context(), req.UserURLs, opts)
	if err != nil {
		return err
	}
	success(c, res)
	return nil
}

func (s *Server) comments(c *gin.Context) error {
	if err := s.spiderEnabled(); err != nil {
		return err
	}
	req := &commentsRequest{}
	opts, err := bind(c, req)
	if err != nil {
		return err
	}
	res, err := s.spider.FetchNoteComments(c.Request.Context(), req.NoteURL, opts)
	if err != nil {
		return err
	}
	success(c, res)
	return nil
}

func (s *Server) detail(c *gin.Context) error {
	if s.downloader == nil || !s.downloader.Enabled() {
		return xerrors.New(xerrors.KindDisabled, "xhs-downloader module is not enabled")
	}
	var req extractor.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		return badRequest(err)
	}
	res, err := s.downloader.FetchDetail(c.Request.Context(), req)
	if err != nil {
		return err
	}
	success(c, res)
	return nil
}
