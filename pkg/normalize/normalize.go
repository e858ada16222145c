// Package normalize flattens upstream note, user and comment payloads into
// the models used for storage and export.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/xhs"
)

// Positions inside the upstream arrays. The upstream does not name them.
const (
	// FollowsIndex, FansIndex and InteractionIndex address user interactions[]
	FollowsIndex     = 0
	FansIndex        = 1
	InteractionIndex = 2
	// ImageURLIndex addresses info_list[] of an image or comment picture
	ImageURLIndex = 1
)

// TimeLayout renders upload times
const TimeLayout = "2006-01-02 15:04:05"

// FormatTimestamp converts upstream epoch milliseconds to local time
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format(TimeLayout)
}

// Note maps one feed item (data.items[i], with "url" set by the caller)
func Note(item gjson.Result) models.Note {
	card := item.Get("note_card")
	user := card.Get("user")
	interact := card.Get("interact_info")

	noteType := models.NoteTypeVideo
	if card.Get("type").String() == "normal" {
		noteType = models.NoteTypeGallery
	}

	images := infoListURLs(card.Get("image_list"))

	note := models.Note{
		NoteID:         item.Get("id").String(),
		NoteURL:        item.Get("url").String(),
		NoteType:       noteType,
		UserID:         user.Get("user_id").String(),
		HomeURL:        xhs.ProfileURL(user.Get("user_id").String()),
		Nickname:       user.Get("nickname").String(),
		Avatar:         user.Get("avatar").String(),
		Title:          title(card.Get("title").String()),
		Desc:           card.Get("desc").String(),
		LikedCount:     Count(interact.Get("liked_count")),
		CollectedCount: Count(interact.Get("collected_count")),
		CommentCount:   Count(interact.Get("comment_count")),
		ShareCount:     Count(interact.Get("share_count")),
		ImageList:      []string{},
		Tags:           names(card.Get("tag_list")),
		UploadTime:     FormatTimestamp(card.Get("time").Int()),
		IPLocation:     location(card.Get("ip_location")),
	}

	// image_list is gallery-only; a video keeps its first image as the cover
	if noteType == models.NoteTypeGallery {
		note.ImageList = images
	} else {
		if len(images) > 0 {
			note.VideoCover = images[0]
		}
		if key := card.Get("video.consumer.origin_video_key").String(); key != "" {
			note.VideoAddr = xhs.VideoURL(key)
		}
	}
	return note
}

// User maps user/otherinfo data for userID
func User(data gjson.Result, userID string) models.User {
	basic := data.Get("basic_info")
	interactions := data.Get("interactions").Array()

	return models.User{
		UserID:      userID,
		HomeURL:     xhs.ProfileURL(userID),
		Nickname:    basic.Get("nickname").String(),
		Avatar:      basic.Get("imageb").String(),
		RedID:       basic.Get("red_id").String(),
		Gender:      Gender(basic.Get("gender")),
		IPLocation:  location(basic.Get("ip_location")),
		Desc:        basic.Get("desc").String(),
		Follows:     positional(interactions, FollowsIndex),
		Fans:        positional(interactions, FansIndex),
		Interaction: positional(interactions, InteractionIndex),
		Tags:        names(data.Get("tags")),
	}
}

// Comment maps one entry of comment/page data.comments. note_url is read
// from the item when the caller attached it.
func Comment(data gjson.Result) models.Comment {
	user := data.Get("user_info")
	return models.Comment{
		NoteID:     data.Get("note_id").String(),
		NoteURL:    data.Get("note_url").String(),
		CommentID:  data.Get("id").String(),
		UserID:     user.Get("user_id").String(),
		HomeURL:    xhs.ProfileURL(user.Get("user_id").String()),
		Nickname:   user.Get("nickname").String(),
		Avatar:     user.Get("image").String(),
		Content:    data.Get("content").String(),
		ShowTags:   strs(data.Get("show_tags")),
		LikeCount:  Count(data.Get("like_count")),
		UploadTime: FormatTimestamp(data.Get("create_time").Int()),
		IPLocation: location(data.Get("ip_location")),
		Pictures:   infoListURLs(data.Get("pictures")),
	}
}

// Gender maps 0 to male and 1 to female. Everything else is unknown.
func Gender(v gjson.Result) string {
	if v.Type != gjson.Number {
		return models.GenderUnknown
	}
	switch v.Int() {
	case 0:
		return models.GenderMale
	case 1:
		return models.GenderFemale
	}
	return models.GenderUnknown
}

// Count reads a counter sent as a JSON number or numeric string. Strings
// such as "1.2万" are expanded. Anything else is 0.
func Count(v gjson.Result) int64 {
	switch v.Type {
	case gjson.Number:
		return v.Int()
	case gjson.String:
		return parseCount(v.String())
	}
	return 0
}

func parseCount(s string) int64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "+"))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "万"):
		mult = 1e4
		s = strings.TrimSuffix(s, "万")
	case strings.HasSuffix(s, "亿"):
		mult = 1e8
		s = strings.TrimSuffix(s, "亿")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && mult == 1 {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f*mult + 0.5)
}

func positional(items []gjson.Result, index int) int64 {
	if index >= len(items) {
		return 0
	}
	return Count(items[index].Get("count"))
}

// infoListURLs takes info_list[ImageURLIndex].url of every entry, skipping
// entries where it is absent
func infoListURLs(list gjson.Result) []string {
	out := []string{}
	list.ForEach(func(_, entry gjson.Result) bool {
		infos := entry.Get("info_list").Array()
		if len(infos) <= ImageURLIndex {
			return true
		}
		url := infos[ImageURLIndex].Get("url")
		if url.Exists() && url.String() != "" {
			out = append(out, url.String())
		}
		return true
	})
	return out
}

func names(list gjson.Result) []string {
	out := []string{}
	list.ForEach(func(_, tag gjson.Result) bool {
		if tag.IsObject() {
			out = append(out, tag.Get("name").String())
		}
		return true
	})
	return out
}

func strs(list gjson.Result) []string {
	out := []string{}
	list.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}

func title(s string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return models.UntitledPlaceholder
}

func location(v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return models.UnknownLocation
	}
	return v.String()
}
