package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/extractor"
	"xhscrawler/pkg/models"
)

func TestPrintNotes(t *testing.T) {
	var buf bytes.Buffer
	err := printNotes(&buf, models.NoteCollection{
		Notes: []models.NoteResult{
			{Note: models.Note{NoteID: "n1", NoteType: models.NoteTypeGallery, Title: "晚霞", Nickname: "阿乐", LikedCount: 15000}, MediaPath: "/data/media/阿乐_u1/晚霞_n1"},
			{Note: models.Note{NoteID: "n2", NoteType: models.NoteTypeVideo, Title: "vlog"}},
		},
		ExcelPath: "/data/excel/picks.xlsx",
	})
	if err != nil {
		t.Fatalf("printNotes failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"ID", "15000", "/data/media/阿乐_u1/晚霞_n1", "2 notes", "export: /data/excel/picks.xlsx"} {
		if !strings.Contains(got, want) {
			t.Errorf("Output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintDetailSortsFields(t *testing.T) {
	var buf bytes.Buffer
	err := printDetail(&buf, extractor.Detail{
		URL:     "https://www.xiaohongshu.com/explore/n1",
		Message: "获取小红书作品数据成功",
		Data: map[string]any{
			extractor.KeyID:        "n1",
			extractor.KeyDownloads: []string{"a", "b"},
			extractor.KeyLikes:     int64(3),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "https://www.xiaohongshu.com/explore/n1\n获取小红书作品数据成功\n") {
		t.Errorf("Unexpected header:\n%s", got)
	}
	if !strings.Contains(got, "a b") {
		t.Errorf("Expected joined download list:\n%s", got)
	}
	// 下载地址 < 作品ID < 点赞数量 in byte order
	d, id, likes := strings.Index(got, extractor.KeyDownloads), strings.Index(got, extractor.KeyID), strings.Index(got, extractor.KeyLikes)
	if !(d < id && id < likes) {
		t.Errorf("Fields not sorted:\n%s", got)
	}
}

func TestPromptSecretFromPipe(t *testing.T) {
	var prompt bytes.Buffer
	got, err := promptSecret(strings.NewReader("  a1=x; web_session=y \n"), &prompt, "Cookie: ")
	if err != nil {
		t.Fatalf("promptSecret failed: %v", err)
	}
	if got != "a1=x; web_session=y" {
		t.Errorf("Expected trimmed cookie, got %q", got)
	}
	if prompt.String() != "Cookie: " {
		t.Errorf("Unexpected prompt %q", prompt.String())
	}

	_, err = promptSecret(strings.NewReader("\n"), &prompt, "Cookie: ")
	if !errors.Is(err, xerrors.ErrCredentialsMissing) {
		t.Errorf("Expected credentials error, got %v", err)
	}
}

func TestStr(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]string{"a", "b"}, "a b"},
		{float64(2), "2"},
		{int64(7), "7"},
		{map[string]any{"k": 1}, `{"k":1}`},
	}
	for _, tt := range tests {
		if got := str(tt.in); got != tt.want {
			t.Errorf("str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
