package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"xhscrawler/pkg/extractor"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/ui"
)

func printNotes(w io.Writer, res models.NoteCollection) error {
	t := ui.NewTable("ID", "TYPE", "TITLE", "AUTHOR", "LIKES", "MEDIA")
	for _, n := range res.Notes {
		t.Append(n.NoteID, string(n.NoteType), n.Title, n.Nickname, strconv.FormatInt(n.LikedCount, 10), n.MediaPath)
	}
	return finish(w, t, "notes", res.ExcelPath)
}

func printUsers(w io.Writer, res models.UserCollection) error {
	t := ui.NewTable("ID", "NICKNAME", "RED ID", "FANS", "LOCATION")
	for _, u := range res.Users {
		t.Append(u.UserID, u.Nickname, u.RedID, strconv.FormatInt(u.Fans, 10), u.IPLocation)
	}
	return finish(w, t, "users", res.ExcelPath)
}

func printComments(w io.Writer, res models.CommentCollection) error {
	t := ui.NewTable("ID", "USER", "LIKES", "TIME", "CONTENT")
	for _, c := range res.Comments {
		t.Append(c.CommentID, c.Nickname, strconv.FormatInt(c.LikeCount, 10), c.UploadTime, c.Content)
	}
	return finish(w, t, "comments", res.ExcelPath)
}

// printPublished shows the scalar fields every creator item carries
func printPublished(w io.Writer, items []map[string]any) error {
	t := ui.NewTable("ID", "TITLE", "TYPE", "TIME")
	for _, it := range items {
		t.Append(str(it["id"]), str(it["display_title"]), str(it["type"]), str(it["time"]))
	}
	return finish(w, t, "published notes", "")
}

func printDetail(w io.Writer, d extractor.Detail) error {
	fmt.Fprintf(w, "%s\n%s\n", d.URL, d.Message)
	if len(d.Data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.Data))
	for k := range d.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := ui.NewTable("FIELD", "VALUE")
	for _, k := range keys {
		t.Append(k, str(d.Data[k]))
	}
	return t.Render(w)
}

func finish(w io.Writer, t *ui.Table, what, exportPath string) error {
	if err := t.Render(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d %s\n", t.Len(), what)
	if exportPath != "" {
		fmt.Fprintf(w, "export: %s\n", exportPath)
	}
	return nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, " ")
	case float64, int, int64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
