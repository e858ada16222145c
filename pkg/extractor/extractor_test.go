package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
)

func TestParseIndex(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []int
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"commas and spaces", "1, 3 5", []int{1, 3, 5}},
		{"ints", []int{2, 4}, []int{2, 4}},
		{"strings", []string{"1", "x", "3"}, []int{1, 3}},
		{"mixed json", []any{float64(1), "2", true, 3.9}, []int{1, 2, 3}},
		{"nothing numeric", "a b", nil},
		{"unsupported", 42, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIndex(tt.in))
		})
	}
}

func TestRequestDecodesIndex(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"url":"u","index":"1 2","download":true}`), &req))
	assert.Equal(t, IndexList{1, 2}, req.Index)
	assert.True(t, req.Download)

	require.NoError(t, json.Unmarshal([]byte(`{"url":"u","index":[3,"4"]}`), &req))
	assert.Equal(t, IndexList{3, 4}, req.Index)

	req = Request{}
	require.NoError(t, json.Unmarshal([]byte(`{"url":"u","index":null}`), &req))
	assert.Nil(t, req.Index)
}

type fakeExtractor struct {
	links   []string
	data    map[string]any
	err     error
	opts    DealOptions
	started bool
	closed  bool
}

func (f *fakeExtractor) ExtractLinks(ctx context.Context, text string) []string {
	return f.links
}

func (f *fakeExtractor) DealExtract(ctx context.Context, url string, opts DealOptions) (map[string]any, error) {
	f.opts = opts
	return f.data, f.err
}

func (f *fakeExtractor) Start(ctx context.Context) error {
	f.started = true
	return nil
}

func (f *fakeExtractor) Close() error {
	f.closed = true
	return nil
}

var _ io.Closer = (*fakeExtractor)(nil)

func TestServiceDisabled(t *testing.T) {
	tl := logger.NewTestLogger()
	svc := NewService(Settings{Enabled: false}, nil, tl)

	require.NoError(t, svc.Startup(context.Background()))
	assert.False(t, svc.Started())
	assert.True(t, tl.HasMessage("xhs downloader disabled, skipping startup"))

	_, err := svc.FetchDetail(context.Background(), Request{URL: "x"})
	assert.ErrorIs(t, err, xerrors.ErrDisabled)
}

func TestServiceNotStarted(t *testing.T) {
	svc := NewService(Settings{Enabled: true}, &fakeExtractor{}, logger.NewTestLogger())
	_, err := svc.FetchDetail(context.Background(), Request{URL: "x"})
	assert.ErrorIs(t, err, xerrors.ErrDisabled)
}

func TestServiceLifecycle(t *testing.T) {
	ex := &fakeExtractor{}
	svc := NewService(Settings{Enabled: true}, ex, logger.NewTestLogger())

	require.NoError(t, svc.Startup(context.Background()))
	require.NoError(t, svc.Startup(context.Background()))
	assert.True(t, svc.Started())
	assert.True(t, ex.started)

	require.NoError(t, svc.Shutdown(context.Background()))
	assert.False(t, svc.Started())
	assert.True(t, ex.closed)
	require.NoError(t, svc.Shutdown(context.Background()))
}

func TestServiceStartupWithoutExtractor(t *testing.T) {
	svc := NewService(Settings{Enabled: true}, nil, logger.NewTestLogger())
	assert.ErrorIs(t, svc.Startup(context.Background()), xerrors.ErrInvalidInput)
}

func startedService(t *testing.T, ex Extractor, lang string) *Service {
	t.Helper()
	svc := NewService(Settings{Enabled: true, Language: lang}, ex, logger.NewTestLogger())
	require.NoError(t, svc.Startup(context.Background()))
	return svc
}

func TestFetchDetailMessages(t *testing.T) {
	ctx := context.Background()
	link := "https://www.xiaohongshu.com/explore/n1"

	t.Run("no links", func(t *testing.T) {
		svc := startedService(t, &fakeExtractor{}, "")
		d, err := svc.FetchDetail(ctx, Request{URL: "  hello  "})
		require.NoError(t, err)
		assert.Equal(t, Detail{URL: "hello", Message: "提取小红书作品链接失败"}, d)
	})

	t.Run("success", func(t *testing.T) {
		ex := &fakeExtractor{links: []string{link, "other"}, data: map[string]any{KeyID: "n1"}}
		svc := startedService(t, ex, "zh_CN")
		d, err := svc.FetchDetail(ctx, Request{URL: link, Download: true, Index: IndexList{2}, Cookie: "c", SkipDownloaded: true})
		require.NoError(t, err)
		assert.Equal(t, link, d.URL)
		assert.Equal(t, "获取小红书作品数据成功", d.Message)
		assert.Equal(t, "n1", d.Data[KeyID])
		assert.Equal(t, DealOptions{Download: true, Index: []int{2}, Cookie: "c", SkipRecorded: true}, ex.opts)
	})

	t.Run("empty data", func(t *testing.T) {
		svc := startedService(t, &fakeExtractor{links: []string{link}}, "en_US")
		d, err := svc.FetchDetail(ctx, Request{URL: link})
		require.NoError(t, err)
		assert.Equal(t, "Failed to fetch note data", d.Message)
		assert.Nil(t, d.Data)
	})

	t.Run("extraction error", func(t *testing.T) {
		ex := &fakeExtractor{links: []string{link}, data: map[string]any{KeyID: "n1"}, err: errors.New("boom")}
		svc := startedService(t, ex, "")
		d, err := svc.FetchDetail(ctx, Request{URL: link})
		require.NoError(t, err)
		assert.Equal(t, "获取小红书作品数据失败", d.Message)
		assert.Nil(t, d.Data)
	})
}
