package models

import (
	"fmt"
	"strings"

	xerrors "xhscrawler/pkg/errors"
)

// NoteType is the display label of a note kind
type NoteType string

const (
	NoteTypeGallery NoteType = "图集"
	NoteTypeVideo   NoteType = "视频"
)

const (
	// UntitledPlaceholder replaces a blank title
	UntitledPlaceholder = "无标题"
	// UnknownLocation is used when the upstream omits ip_location
	UnknownLocation = "未知"

	GenderMale    = "男"
	GenderFemale  = "女"
	GenderUnknown = "未知"
)

// Note is a normalized post. Counters default to 0 when absent.
type Note struct {
	NoteID         string   `json:"note_id"`
	NoteURL        string   `json:"note_url"`
	NoteType       NoteType `json:"note_type"`
	UserID         string   `json:"user_id"`
	HomeURL        string   `json:"home_url"`
	Nickname       string   `json:"nickname"`
	Avatar         string   `json:"avatar"`
	Title          string   `json:"title"`
	Desc           string   `json:"desc"`
	LikedCount     int64    `json:"liked_count"`
	CollectedCount int64    `json:"collected_count"`
	CommentCount   int64    `json:"comment_count"`
	ShareCount     int64    `json:"share_count"`
	VideoCover     string   `json:"video_cover"`
	VideoAddr      string   `json:"video_addr"`
	ImageList      []string `json:"image_list"`
	Tags           []string `json:"tags"`
	UploadTime     string   `json:"upload_time"`
	IPLocation     string   `json:"ip_location"`
}

// IsVideo reports whether the note carries a video stream
func (n Note) IsVideo() bool {
	return n.NoteType == NoteTypeVideo
}

// NoteResult is a note plus the directory its media was written to
type NoteResult struct {
	Note
	MediaPath string `json:"media_path,omitempty"`
}

// NoteCollection is the aggregate returned by the note flows
type NoteCollection struct {
	Notes     []NoteResult `json:"notes"`
	ExcelPath string       `json:"excel_path,omitempty"`
}

// User is a normalized profile
type User struct {
	UserID      string   `json:"user_id"`
	HomeURL     string   `json:"home_url"`
	Nickname    string   `json:"nickname"`
	Avatar      string   `json:"avatar"`
	RedID       string   `json:"red_id"`
	Gender      string   `json:"gender"`
	IPLocation  string   `json:"ip_location"`
	Desc        string   `json:"desc"`
	Follows     int64    `json:"follows"`
	Fans        int64    `json:"fans"`
	Interaction int64    `json:"interaction"`
	Tags        []string `json:"tags"`
}

// UserCollection is the aggregate returned by the user flow
type UserCollection struct {
	Users     []User `json:"users"`
	ExcelPath string `json:"excel_path,omitempty"`
}

// Comment is a normalized note comment
type Comment struct {
	NoteID     string   `json:"note_id"`
	NoteURL    string   `json:"note_url"`
	CommentID  string   `json:"comment_id"`
	UserID     string   `json:"user_id"`
	HomeURL    string   `json:"home_url"`
	Nickname   string   `json:"nickname"`
	Avatar     string   `json:"avatar"`
	Content    string   `json:"content"`
	ShowTags   []string `json:"show_tags"`
	LikeCount  int64    `json:"like_count"`
	UploadTime string   `json:"upload_time"`
	IPLocation string   `json:"ip_location"`
	Pictures   []string `json:"pictures"`
}

// CommentCollection is the aggregate returned by the comment flow
type CommentCollection struct {
	Comments  []Comment `json:"comments"`
	ExcelPath string    `json:"excel_path,omitempty"`
}

// SaveChoice selects which persistence targets a fetch writes
type SaveChoice string

const (
	SaveNone       SaveChoice = "none"
	SaveMedia      SaveChoice = "media"
	SaveMediaImage SaveChoice = "media-image"
	SaveMediaVideo SaveChoice = "media-video"
	SaveExcel      SaveChoice = "excel"
	SaveAll        SaveChoice = "all"
)

// SaveChoices lists every accepted value
var SaveChoices = []SaveChoice{SaveNone, SaveMedia, SaveMediaImage, SaveMediaVideo, SaveExcel, SaveAll}

// ParseSaveChoice validates s. An empty string means none.
func ParseSaveChoice(s string) (SaveChoice, error) {
	if strings.TrimSpace(s) == "" {
		return SaveNone, nil
	}
	for _, c := range SaveChoices {
		if string(c) == s {
			return c, nil
		}
	}
	return "", xerrors.New(xerrors.KindInvalidInput, "unknown save choice %q", s)
}

// Media reports whether any media target is selected
func (c SaveChoice) Media() bool {
	switch c {
	case SaveMedia, SaveMediaImage, SaveMediaVideo, SaveAll:
		return true
	}
	return false
}

// Excel reports whether the tabular export is selected
func (c SaveChoice) Excel() bool {
	return c == SaveExcel || c == SaveAll
}

// Images reports whether gallery images are downloaded
func (c SaveChoice) Images() bool {
	return c == SaveMedia || c == SaveMediaImage || c == SaveAll
}

// Video reports whether the cover and video stream are downloaded
func (c SaveChoice) Video() bool {
	return c == SaveMedia || c == SaveMediaVideo || c == SaveAll
}

func (c SaveChoice) String() string {
	return string(c)
}

// FormatList renders a list the way detail files and exports show it
func FormatList(items []string) string {
	return fmt.Sprint(items)
}
