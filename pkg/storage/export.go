package storage

import (
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/models"
)

// Format is a tabular export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"

	sheetName = "Sheet1"
	// exportTimeLayout is appended to fallback names, in UTC
	exportTimeLayout = "20060102150405"
)

// ParseFormat validates an export format. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", xerrors.New(xerrors.KindInvalidInput, "unknown export format %q", s)
}

// ExportName returns explicit, or fallback suffixed with the UTC time
func ExportName(explicit, fallback string, now time.Time) string {
	if explicit != "" {
		return explicit
	}
	return fallback + "_" + now.UTC().Format(exportTimeLayout)
}

// Row types carry the fixed column sets. The csv tag is the header.

type noteRow struct {
	NoteID         string `csv:"笔记id"`
	NoteURL        string `csv:"笔记url"`
	NoteType       string `csv:"笔记类型"`
	UserID         string `csv:"用户id"`
	HomeURL        string `csv:"用户主页url"`
	Nickname       string `csv:"昵称"`
	Avatar         string `csv:"头像url"`
	Title          string `csv:"标题"`
	Desc           string `csv:"描述"`
	LikedCount     string `csv:"点赞数量"`
	CollectedCount string `csv:"收藏数量"`
	CommentCount   string `csv:"评论数量"`
	ShareCount     string `csv:"分享数量"`
	VideoCover     string `csv:"视频封面url"`
	VideoAddr      string `csv:"视频地址url"`
	ImageList      string `csv:"图片地址url列表"`
	Tags           string `csv:"标签"`
	UploadTime     string `csv:"上传时间"`
	IPLocation     string `csv:"ip归属地"`
}

type userRow struct {
	UserID      string `csv:"用户id"`
	HomeURL     string `csv:"用户主页url"`
	Nickname    string `csv:"用户名"`
	Avatar      string `csv:"头像url"`
	RedID       string `csv:"小红书号"`
	Gender      string `csv:"性别"`
	IPLocation  string `csv:"ip地址"`
	Desc        string `csv:"介绍"`
	Follows     string `csv:"关注数量"`
	Fans        string `csv:"粉丝数量"`
	Interaction string `csv:"作品被赞和收藏数量"`
	Tags        string `csv:"标签"`
}

type commentRow struct {
	NoteID     string `csv:"笔记id"`
	NoteURL    string `csv:"笔记url"`
	CommentID  string `csv:"评论id"`
	UserID     string `csv:"用户id"`
	HomeURL    string `csv:"用户主页url"`
	Nickname   string `csv:"昵称"`
	Avatar     string `csv:"头像url"`
	Content    string `csv:"评论内容"`
	ShowTags   string `csv:"评论标签"`
	LikeCount  string `csv:"点赞数量"`
	UploadTime string `csv:"上传时间"`
	IPLocation string `csv:"ip归属地"`
	Pictures   string `csv:"图片地址url列表"`
}

func num(n int64) string {
	return strconv.FormatInt(n, 10)
}

func toNoteRow(n models.Note) noteRow {
	return noteRow{
		NoteID:         n.NoteID,
		NoteURL:        n.NoteURL,
		NoteType:       string(n.NoteType),
		UserID:         n.UserID,
		HomeURL:        n.HomeURL,
		Nickname:       n.Nickname,
		Avatar:         n.Avatar,
		Title:          n.Title,
		Desc:           n.Desc,
		LikedCount:     num(n.LikedCount),
		CollectedCount: num(n.CollectedCount),
		CommentCount:   num(n.CommentCount),
		ShareCount:     num(n.ShareCount),
		VideoCover:     n.VideoCover,
		VideoAddr:      n.VideoAddr,
		ImageList:      models.FormatList(n.ImageList),
		Tags:           models.FormatList(n.Tags),
		UploadTime:     n.UploadTime,
		IPLocation:     n.IPLocation,
	}
}

func toUserRow(u models.User) userRow {
	return userRow{
		UserID:      u.UserID,
		HomeURL:     u.HomeURL,
		Nickname:    u.Nickname,
		Avatar:      u.Avatar,
		RedID:       u.RedID,
		Gender:      u.Gender,
		IPLocation:  u.IPLocation,
		Desc:        u.Desc,
		Follows:     num(u.Follows),
		Fans:        num(u.Fans),
		Interaction: num(u.Interaction),
		Tags:        models.FormatList(u.Tags),
	}
}

func toCommentRow(c models.Comment) commentRow {
	return commentRow{
		NoteID:     c.NoteID,
		NoteURL:    c.NoteURL,
		CommentID:  c.CommentID,
		UserID:     c.UserID,
		HomeURL:    c.HomeURL,
		Nickname:   c.Nickname,
		Avatar:     c.Avatar,
		Content:    c.Content,
		ShowTags:   models.FormatList(c.ShowTags),
		LikeCount:  num(c.LikeCount),
		UploadTime: c.UploadTime,
		IPLocation: c.IPLocation,
		Pictures:   models.FormatList(c.Pictures),
	}
}

// NoteHeaders, UserHeaders and CommentHeaders are the fixed column sets
var (
	NoteHeaders    = headers(noteRow{})
	UserHeaders    = headers(userRow{})
	CommentHeaders = headers(commentRow{})
)

func headers(row any) []string {
	t := reflect.TypeOf(row)
	out := make([]string, t.NumField())
	for i := range out {
		out[i] = t.Field(i).Tag.Get("csv")
	}
	return out
}

// cleanRow strips illegal characters from every string field in place
func cleanRow(row any) []string {
	v := reflect.ValueOf(row).Elem()
	out := make([]string, v.NumField())
	for i := range out {
		f := v.Field(i)
		f.SetString(CleanCell(f.String()))
		out[i] = f.String()
	}
	return out
}

// Exporter writes batches of records into the export root
type Exporter struct {
	dir    string
	format Format
	logger logger.Logger
}

// NewExporter creates an exporter writing format files into dir
func NewExporter(dir string, format Format, log logger.Logger) *Exporter {
	if format == "" {
		format = FormatXLSX
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Exporter{dir: dir, format: format, logger: log}
}

// Format returns the export file format
func (e *Exporter) Format() Format {
	return e.format
}

// ExportNotes writes one header row plus one row per note
func (e *Exporter) ExportNotes(name string, notes []models.Note) (string, error) {
	rows := make([]*noteRow, 0, len(notes))
	for _, n := range notes {
		r := toNoteRow(n)
		rows = append(rows, &r)
	}
	return e.export(name, NoteHeaders, rows)
}

// ExportUsers writes one header row plus one row per user
func (e *Exporter) ExportUsers(name string, users []models.User) (string, error) {
	rows := make([]*userRow, 0, len(users))
	for _, u := range users {
		r := toUserRow(u)
		rows = append(rows, &r)
	}
	return e.export(name, UserHeaders, rows)
}

// ExportComments writes one header row plus one row per comment
func (e *Exporter) ExportComments(name string, comments []models.Comment) (string, error) {
	rows := make([]*commentRow, 0, len(comments))
	for _, c := range comments {
		r := toCommentRow(c)
		rows = append(rows, &r)
	}
	return e.export(name, CommentHeaders, rows)
}

func (e *Exporter) export(name string, header []string, rows any) (string, error) {
	path := filepath.Join(e.dir, name+"."+string(e.format))

	v := reflect.ValueOf(rows)
	cells := make([][]string, v.Len())
	for i := range cells {
		cells[i] = cleanRow(v.Index(i).Interface())
	}

	var err error
	switch e.format {
	case FormatCSV:
		err = WriteAtomic(path, func(w io.Writer) error {
			return gocsv.Marshal(rows, w)
		})
	default:
		err = WriteAtomic(path, func(w io.Writer) error {
			return writeSheet(w, header, cells)
		})
	}
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindExportFailed, err, "write %s", path)
	}

	logger.LogExport(e.logger, path, len(cells))
	return path, nil
}

func writeSheet(w io.Writer, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", n, err)
	}
	return nil
}
