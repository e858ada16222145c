package spider

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"xhscrawler/internal/downloader"
	"xhscrawler/pkg/cookie"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/normalize"
	"xhscrawler/pkg/ratelimit"
	"xhscrawler/pkg/storage"
	"xhscrawler/pkg/xhs"
)

// Fallback export labels
const (
	NotesLabel    = "notes"
	UsersLabel    = "users"
	CommentsLabel = "comments"
)

var (
	_ MediaSaver = (*storage.MediaSaver)(nil)
	_ Exporter   = (*storage.Exporter)(nil)
)

// Settings are the process-wide values the service reads
type Settings struct {
	DefaultCookies string
	// ConcurrentNotes bounds parallel media downloads within a batch
	ConcurrentNotes int
}

// Deps are the collaborators a Service is built from. Media and Exporter
// default to the storage implementations rooted at Manager.
type Deps struct {
	Notes    NoteAPI
	Creator  CreatorAPI
	Manager  *storage.Manager
	Media    MediaSaver
	Exporter Exporter
	// Limiter throttles media downloads. Nil means unlimited.
	Limiter ratelimit.Limiter
	Logger  logger.Logger
	Clock   func() time.Time
}

// Options are the per call knobs shared by every flow
type Options struct {
	SaveChoice models.SaveChoice
	ExcelName  string
	// Cookies overrides the configured default
	Cookies string
	Proxies xhs.Proxies
}

// SearchQuery describes one search call
type SearchQuery struct {
	Query      string
	RequireNum int
	Filter     xhs.SearchFilter
	// Geo is passed through to the upstream untouched
	Geo map[string]any
}

// Service runs the fetch flows
type Service struct {
	settings Settings
	notes    NoteAPI
	creator  CreatorAPI
	manager  *storage.Manager
	media    MediaSaver
	exporter Exporter
	limiter  ratelimit.Limiter
	logger   logger.Logger
	clock    func() time.Time
}

// NewService wires a Service. Notes and Manager are required.
func NewService(settings Settings, deps Deps) (*Service, error) {
	if deps.Notes == nil {
		return nil, xerrors.New(xerrors.KindInvalidInput, "spider: note client is required")
	}
	if deps.Manager == nil {
		return nil, xerrors.New(xerrors.KindInvalidInput, "spider: storage manager is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetLogger()
	}
	if deps.Media == nil {
		deps.Media = storage.NewMediaSaver(deps.Manager, storage.WithMediaLogger(deps.Logger))
	}
	if deps.Exporter == nil {
		deps.Exporter = storage.NewExporter(deps.Manager.ExcelDir(), storage.FormatXLSX, deps.Logger)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Unlimited{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if settings.ConcurrentNotes < 1 {
		settings.ConcurrentNotes = 1
	}

	return &Service{
		settings: settings,
		notes:    deps.Notes,
		creator:  deps.Creator,
		manager:  deps.Manager,
		media:    deps.Media,
		exporter: deps.Exporter,
		limiter:  deps.Limiter,
		logger:   deps.Logger,
		clock:    deps.Clock,
	}, nil
}

// Manager returns the storage roots the service writes to
func (s *Service) Manager() *storage.Manager {
	return s.manager
}

// resolveCookies picks the per call override, then the configured default
func (s *Service) resolveCookies(override string) (string, error) {
	source := "override"
	raw := strings.TrimSpace(override)
	if raw == "" {
		source = "default"
		raw = strings.TrimSpace(s.settings.DefaultCookies)
	}
	if raw == "" {
		return "", xerrors.New(xerrors.KindCredentialsMissing, "cookies are required: pass them with the request or configure spider_xhs.default_cookies")
	}

	s.logger.DebugWithFields("credentials resolved", map[string]interface{}{
		"source":      source,
		"cookie_keys": cookie.Keys(cookie.Parse(raw)),
	})
	return raw, nil
}

func saveChoice(opts Options) (models.SaveChoice, error) {
	return models.ParseSaveChoice(string(opts.SaveChoice))
}

// exportName sanitizes a label into a file name, falling back to a
// timestamped default
func (s *Service) exportName(label, fallback string) string {
	return storage.ExportName(storage.NormName(label), fallback, s.clock())
}

// FetchNote fetches and normalizes one note
func (s *Service) FetchNote(ctx context.Context, noteURL string, opts Options) (models.Note, error) {
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return models.Note{}, err
	}
	return s.fetchNote(ctx, noteURL, cookies, opts.Proxies)
}

func (s *Service) fetchNote(ctx context.Context, noteURL, cookies string, proxies xhs.Proxies) (models.Note, error) {
	res, err := s.notes.GetNoteInfo(ctx, noteURL, cookies, proxies)
	if err != nil {
		return models.Note{}, err
	}
	items := res.Get("data.items").Array()
	if len(items) == 0 {
		return models.Note{}, xerrors.New(xerrors.KindEmptyResult, "note data is empty")
	}

	note := normalize.Note(items[0])
	if note.NoteID == "" {
		return models.Note{}, xerrors.New(xerrors.KindMalformedItem, "note item has no id")
	}
	note.NoteURL = noteURL
	return note, nil
}

// FetchNotes fetches every URL, skipping the ones that fail, then persists
// media and the export per opts.SaveChoice
func (s *Service) FetchNotes(ctx context.Context, noteURLs []string, opts Options) (models.NoteCollection, error) {
	choice, err := saveChoice(opts)
	if err != nil {
		return models.NoteCollection{}, err
	}
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return models.NoteCollection{}, err
	}
	return s.fetchNotes(ctx, noteURLs, choice, opts.ExcelName, cookies, opts.Proxies)
}

func (s *Service) fetchNotes(ctx context.Context, noteURLs []string, choice models.SaveChoice, label, cookies string, proxies xhs.Proxies) (models.NoteCollection, error) {
	notes := make([]models.Note, 0, len(noteURLs))
	for _, u := range noteURLs {
		if err := ctx.Err(); err != nil {
			return models.NoteCollection{}, err
		}
		note, err := s.fetchNote(ctx, u, cookies, proxies)
		if err != nil {
			logger.LogItemSkipped(s.logger.WithField("note_url", u), "note", u, err)
			continue
		}
		notes = append(notes, note)
	}

	out := models.NoteCollection{Notes: make([]models.NoteResult, len(notes))}
	for i, n := range notes {
		out.Notes[i] = models.NoteResult{Note: n}
	}

	if choice.Media() {
		results := downloader.SaveAll(ctx, s.settings.ConcurrentNotes, s.media, s.limiter, s.logger, notes, choice)
		for _, r := range results {
			if r.Error == nil {
				out.Notes[r.Job.Index].MediaPath = r.Dir
			}
		}
	}

	if len(notes) > 0 && choice.Excel() {
		path, err := s.exporter.ExportNotes(s.exportName(label, NotesLabel), notes)
		if err != nil {
			return models.NoteCollection{}, err
		}
		out.ExcelPath = path
	}

	s.logger.InfoWithFields("notes fetched", map[string]interface{}{
		"requested":   len(noteURLs),
		"fetched":     len(notes),
		"save_choice": choice.String(),
	})
	return out, nil
}

// FetchUserNotes fetches every note a user has posted. Without an explicit
// ExcelName the export is named after the user id.
func (s *Service) FetchUserNotes(ctx context.Context, userURL string, opts Options) (models.NoteCollection, error) {
	choice, err := saveChoice(opts)
	if err != nil {
		return models.NoteCollection{}, err
	}
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return models.NoteCollection{}, err
	}

	refs, err := s.notes.GetUserAllNotes(ctx, userURL, cookies, opts.Proxies)
	if err != nil {
		return models.NoteCollection{}, err
	}
	urls := noteURLs(refs, "note_id")

	label := opts.ExcelName
	if label == "" {
		label = userLabel(userURL)
	}
	return s.fetchNotes(ctx, urls, choice, label, cookies, opts.Proxies)
}

// SearchNotes searches and fetches the matching notes. Without an explicit
// ExcelName the export is named after the query.
func (s *Service) SearchNotes(ctx context.Context, q SearchQuery, opts Options) (models.NoteCollection, error) {
	choice, err := saveChoice(opts)
	if err != nil {
		return models.NoteCollection{}, err
	}
	if err := q.Filter.Validate(); err != nil {
		return models.NoteCollection{}, err
	}
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return models.NoteCollection{}, err
	}

	items, err := s.notes.SearchNotes(ctx, q.Query, q.RequireNum, cookies, q.Filter, q.Geo, opts.Proxies)
	if err != nil {
		return models.NoteCollection{}, err
	}
	notes := make([]gjson.Result, 0, len(items))
	for _, item := range items {
		if item.Get("model_type").String() == "note" {
			notes = append(notes, item)
		}
	}

	label := opts.ExcelName
	if label == "" {
		label = q.Query
	}
	return s.fetchNotes(ctx, noteURLs(notes, "id"), choice, label, cookies, opts.Proxies)
}

// FetchUser fetches and normalizes one profile
func (s *Service) FetchUser(ctx context.Context, userURL string, opts Options) (models.User, error) {
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return models.User{}, err
	}
	return s.fetchUser(ctx, userURL, cookies, opts.Proxies)
}

func (s *Service) fetchUser(ctx context.Context, userURL, cookies string, proxies xhs.Proxies) (models.User, error) {
	res, err := s.notes.GetUserInfo(ctx, userURL, cookies, proxies)
	if err != nil {
		return models.User{}, err
	}
	data := res.Get("data")
	if !data.Get("basic_info").Exists() {
		return models.User{}, xerrors.New(xerrors.KindEmptyResult, "user data is empty")
	}
	return normalize.User(data, xhs.ParseRef(userURL).ID), nil
}

// FetchUsers fetches every profile, skipping failures. Media choices write
// each user's detail file; excel choices export the batch.
func (s *Service) FetchUsers(ctx context.Context, userURLs []string, opts Options) (models.UserCollection, error) {
	choice, err := saveChoice(opts)
	if err != nil {
		return models.UserCollection{}, err
	}
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return models.UserCollection{}, err
	}

	out := models.UserCollection{Users: make([]models.User, 0, len(userURLs))}
	for _, u := range userURLs {
		if err := ctx.Err(); err != nil {
			return models.UserCollection{}, err
		}
		user, err := s.fetchUser(ctx, u, cookies, opts.Proxies)
		if err != nil {
			logger.LogItemSkipped(s.logger, "user", u, err)
			continue
		}
		if choice.Media() {
			if _, err := s.manager.WriteUserDetail(user); err != nil {
				s.logger.WithError(err).WithField("user_id", user.UserID).Error("user detail not written")
			}
		}
		out.Users = append(out.Users, user)
	}

	if len(out.Users) > 0 && choice.Excel() {
		path, err := s.exporter.ExportUsers(s.exportName(opts.ExcelName, UsersLabel), out.Users)
		if err != nil {
			return models.UserCollection{}, err
		}
		out.ExcelPath = path
	}
	return out, nil
}

// FetchNoteComments fetches the top level comments of a note
func (s *Service) FetchNoteComments(ctx context.Context, noteURL string, opts Options) (models.CommentCollection, error) {
	choice, err := saveChoice(opts)
	if err != nil {
		return models.CommentCollection{}, err
	}
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return models.CommentCollection{}, err
	}

	raw, err := s.notes.GetNoteComments(ctx, noteURL, cookies, opts.Proxies)
	if err != nil {
		return models.CommentCollection{}, err
	}

	noteID := xhs.ParseRef(noteURL).ID
	out := models.CommentCollection{Comments: make([]models.Comment, 0, len(raw))}
	for _, item := range raw {
		c := normalize.Comment(item)
		if c.CommentID == "" {
			s.logger.WarnWithFields("comment without id skipped", map[string]interface{}{"note_url": noteURL})
			continue
		}
		if c.NoteID == "" {
			c.NoteID = noteID
		}
		c.NoteURL = noteURL
		out.Comments = append(out.Comments, c)
	}

	if len(out.Comments) > 0 && choice.Excel() {
		path, err := s.exporter.ExportComments(s.exportName(opts.ExcelName, CommentsLabel), out.Comments)
		if err != nil {
			return models.CommentCollection{}, err
		}
		out.ExcelPath = path
	}
	return out, nil
}

// FetchPublishedNotes lists the cookie owner's published notes as returned
// by the creator API
func (s *Service) FetchPublishedNotes(ctx context.Context, opts Options) ([]map[string]any, error) {
	if s.creator == nil {
		return nil, xerrors.New(xerrors.KindDisabled, "creator client is not configured")
	}
	cookies, err := s.resolveCookies(opts.Cookies)
	if err != nil {
		return nil, err
	}

	raw, err := s.creator.GetAllPublishedNotes(ctx, cookies)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		m, ok := item.Value().(map[string]interface{})
		if !ok {
			s.logger.Warn("published note is not an object, skipped")
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// noteURLs builds canonical note URLs, dropping items without an id or token
func noteURLs(items []gjson.Result, idField string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		id := item.Get(idField).String()
		token := item.Get("xsec_token").String()
		if id == "" || token == "" {
			continue
		}
		out = append(out, xhs.NoteURL(id, token))
	}
	return out
}

// userLabel is the last path segment of a profile URL
func userLabel(userURL string) string {
	trimmed := strings.TrimRight(userURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	label, _, _ := strings.Cut(trimmed, "?")
	return label
}
