package xhs

import (
	"context"
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/signer"
)

var (
	sortTypes    = []string{"general", "time_descending", "popularity_descending", "comment_descending", "collect_descending"}
	noteTypes    = []string{"不限", "视频笔记", "普通笔记"}
	noteTimes    = []string{"不限", "一天内", "一周内", "半年内"}
	noteRanges   = []string{"不限", "已看过", "未看过", "已关注"}
	posDistances = []string{"不限", "同城", "附近"}
)

// SearchFilter holds the five search filter indexes
type SearchFilter struct {
	// SortType: 0 general, 1 newest, 2 most liked, 3 most commented, 4 most collected
	SortType int `json:"sort_type_choice"`
	// NoteType: 0 any, 1 video, 2 image
	NoteType int `json:"note_type"`
	// NoteTime: 0 any, 1 day, 2 week, 3 half year
	NoteTime int `json:"note_time"`
	// NoteRange: 0 any, 1 seen, 2 unseen, 3 followed
	NoteRange int `json:"note_range"`
	// PosDistance: 0 any, 1 same city, 2 nearby
	PosDistance int `json:"pos_distance"`
}

// Validate rejects indexes outside the upstream tables
func (f SearchFilter) Validate() error {
	checks := []struct {
		name  string
		value int
		table []string
	}{
		{"sort_type_choice", f.SortType, sortTypes},
		{"note_type", f.NoteType, noteTypes},
		{"note_time", f.NoteTime, noteTimes},
		{"note_range", f.NoteRange, noteRanges},
		{"pos_distance", f.PosDistance, posDistances},
	}
	for _, c := range checks {
		if c.value < 0 || c.value >= len(c.table) {
			return xerrors.New(xerrors.KindInvalidInput, "%s must be within 0..%d", c.name, len(c.table)-1)
		}
	}
	return nil
}

// NeedsGeo reports whether the distance filter requires coordinates
func (f SearchFilter) NeedsGeo() bool {
	return f.PosDistance == 1 || f.PosDistance == 2
}

type searchFilterTag struct {
	Tags []string `json:"tags"`
	Type string   `json:"type"`
}

func (f SearchFilter) tags() []searchFilterTag {
	return []searchFilterTag{
		{Tags: []string{sortTypes[f.SortType]}, Type: "sort_type"},
		{Tags: []string{noteTypes[f.NoteType]}, Type: "filter_note_type"},
		{Tags: []string{noteTimes[f.NoteTime]}, Type: "filter_note_time"},
		{Tags: []string{noteRanges[f.NoteRange]}, Type: "filter_note_range"},
		{Tags: []string{posDistances[f.PosDistance]}, Type: "filter_pos_distance"},
	}
}

type searchRequest struct {
	Keyword      string            `json:"keyword"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
	SearchID     string            `json:"search_id"`
	Sort         string            `json:"sort"`
	NoteType     int               `json:"note_type"`
	ExtFlags     []string          `json:"ext_flags"`
	Filters      []searchFilterTag `json:"filters"`
	Geo          string            `json:"geo"`
	ImageFormats []string          `json:"image_formats"`
}

// NewSearchID returns base36((ms << 64) + rand31), the id the web client
// attaches to a search session
func NewSearchID() string {
	return searchID(time.Now().UnixMilli(), rand.Int63n(2147483646))
}

func searchID(ms int64, r int64) string {
	n := new(big.Int).Lsh(big.NewInt(ms), 64)
	n.Add(n, big.NewInt(r))
	return strings.ToUpper(n.Text(36))
}

// SearchNotePage fetches one page of search results
func (c *Client) SearchNotePage(ctx context.Context, query string, page int, searchID, cookies string, filter SearchFilter, geo map[string]any, proxies Proxies) (gjson.Result, error) {
	if err := filter.Validate(); err != nil {
		return gjson.Result{}, err
	}

	geoField := ""
	if len(geo) > 0 {
		raw, err := signer.EncodeBody(geo)
		if err != nil {
			return gjson.Result{}, xerrors.Wrap(xerrors.KindInvalidInput, err, "encode geo")
		}
		geoField = string(raw)
	}

	return c.post(ctx, SearchNotesEndpoint, searchRequest{
		Keyword:      query,
		Page:         page,
		PageSize:     SearchPageSize,
		SearchID:     searchID,
		Sort:         "general",
		NoteType:     0,
		ExtFlags:     []string{},
		Filters:      filter.tags(),
		Geo:          geoField,
		ImageFormats: ImageFormats,
	}, cookies, proxies)
}

// SearchNotes pages through search results until requireNum items are
// collected or the upstream has no more, then trims to requireNum
func (c *Client) SearchNotes(ctx context.Context, query string, requireNum int, cookies string, filter SearchFilter, geo map[string]any, proxies Proxies) ([]gjson.Result, error) {
	if requireNum <= 0 {
		return nil, xerrors.New(xerrors.KindInvalidInput, "require_num must be positive")
	}

	id := c.searchID()
	var items []gjson.Result
	for page := 1; ; page++ {
		res, err := c.SearchNotePage(ctx, query, page, id, cookies, filter, geo, proxies)
		if err != nil {
			return nil, err
		}
		data := res.Get("data")
		pageItems := data.Get("items").Array()
		items = append(items, pageItems...)

		if len(items) >= requireNum || !data.Get("has_more").Bool() || len(pageItems) == 0 {
			break
		}
	}

	if len(items) > requireNum {
		items = items[:requireNum]
	}
	c.logger.DebugWithFields("collected search results", map[string]interface{}{
		"query": query,
		"count": len(items),
	})
	return items, nil
}
