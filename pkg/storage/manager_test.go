package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xhscrawler/pkg/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), "media", "excel")
	require.NoError(t, err)
	return m
}

func TestNewManagerCreatesRoots(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "spider")
	m, err := NewManager(base, "media", "excel")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(m.MediaDir()))
	assert.Equal(t, filepath.Join(base, "media"), m.MediaDir())
	assert.Equal(t, filepath.Join(base, "excel"), m.ExcelDir())
	for _, dir := range []string{m.MediaDir(), m.ExcelDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// idempotent
	_, err = NewManager(base, "media", "excel")
	assert.NoError(t, err)
}

func TestNewManagerExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	m, err := NewManager("~/data/spider_xhs", "media", "excel")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "spider_xhs", "media"), m.MediaDir())
}

func TestNormName(t *testing.T) {
	assert.Equal(t, "ab", NormName(`a/b`))
	assert.Equal(t, "露营装备清单", NormName("露营 装备:清单\n"))
	assert.Equal(t, "xyz", NormName("x\\y*?\"<>|z\r"))
	assert.Equal(t, "", NormName("  /  "))
}

func TestNoteDir(t *testing.T) {
	m := newTestManager(t)

	note := models.Note{
		NoteID:   "n1",
		UserID:   "u1",
		Nickname: "一二三四五六七八九十一二三四五六七八九十多余",
		Title:    strings.Repeat("标", 45),
	}
	dir := m.NoteDir(note)
	assert.Equal(t, filepath.Join(m.MediaDir(), "一二三四五六七八九十一二三四五六七八九十_u1", strings.Repeat("标", 40)+"_n1"), dir)

	note.Title = " / "
	assert.Equal(t, filepath.Join(m.MediaDir(), "一二三四五六七八九十一二三四五六七八九十_u1", "无标题_n1"), m.NoteDir(note))
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.txt")

	require.NoError(t, writeFile(path, []byte("first")))
	require.NoError(t, writeFile(path, []byte("second")))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	err = WriteAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content), "failed write must leave the old file")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestWriteUserDetail(t *testing.T) {
	m := newTestManager(t)
	u := models.User{UserID: "u1", Nickname: "阿 乐", Gender: models.GenderMale, Follows: 3, Tags: []string{"a", "b"}}

	dir, err := m.WriteUserDetail(u)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.MediaDir(), "阿乐_u1"), dir)

	content, err := os.ReadFile(filepath.Join(dir, "detail.txt"))
	require.NoError(t, err)
	lines := strings.Split(string(content), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "用户id: u1", lines[0])
	assert.Equal(t, "性别: 男", lines[5])
	assert.Equal(t, "关注数量: 3", lines[8])
	assert.Equal(t, "标签: [a b]", lines[11])
}
