package spider

import (
	"context"

	"github.com/tidwall/gjson"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/xhs"
)

// NoteAPI is the slice of the PC web client the service drives
type NoteAPI interface {
	GetNoteInfo(ctx context.Context, noteURL, cookies string, proxies xhs.Proxies) (gjson.Result, error)
	GetUserInfo(ctx context.Context, userURL, cookies string, proxies xhs.Proxies) (gjson.Result, error)
	GetUserAllNotes(ctx context.Context, userURL, cookies string, proxies xhs.Proxies) ([]gjson.Result, error)
	SearchNotes(ctx context.Context, query string, requireNum int, cookies string, filter xhs.SearchFilter, geo map[string]any, proxies xhs.Proxies) ([]gjson.Result, error)
	GetNoteComments(ctx context.Context, noteURL, cookies string, proxies xhs.Proxies) ([]gjson.Result, error)
}

// CreatorAPI lists the notes published by the cookie's own account
type CreatorAPI interface {
	GetAllPublishedNotes(ctx context.Context, cookies string) ([]gjson.Result, error)
}

// MediaSaver persists one note's side files and media
type MediaSaver interface {
	SaveNote(ctx context.Context, note models.Note, choice models.SaveChoice) (string, error)
}

// Exporter writes a batch of records as one table
type Exporter interface {
	ExportNotes(name string, notes []models.Note) (string, error)
	ExportUsers(name string, users []models.User) (string, error)
	ExportComments(name string, comments []models.Comment) (string, error)
}

var (
	_ NoteAPI    = (*xhs.Client)(nil)
	_ CreatorAPI = (*xhs.CreatorClient)(nil)
)
