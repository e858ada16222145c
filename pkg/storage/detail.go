package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"xhscrawler/pkg/models"
)

const (
	infoFile   = "info.json"
	detailFile = "detail.txt"
)

func noteDetail(n models.Note) string {
	lines := []string{
		fmt.Sprintf("笔记id: %s", n.NoteID),
		fmt.Sprintf("笔记url: %s", n.NoteURL),
		fmt.Sprintf("笔记类型: %s", n.NoteType),
		fmt.Sprintf("用户id: %s", n.UserID),
		fmt.Sprintf("用户主页url: %s", n.HomeURL),
		fmt.Sprintf("昵称: %s", n.Nickname),
		fmt.Sprintf("头像url: %s", n.Avatar),
		fmt.Sprintf("标题: %s", n.Title),
		fmt.Sprintf("描述: %s", n.Desc),
		fmt.Sprintf("点赞数量: %d", n.LikedCount),
		fmt.Sprintf("收藏数量: %d", n.CollectedCount),
		fmt.Sprintf("评论数量: %d", n.CommentCount),
		fmt.Sprintf("分享数量: %d", n.ShareCount),
		fmt.Sprintf("视频封面url: %s", n.VideoCover),
		fmt.Sprintf("视频地址url: %s", n.VideoAddr),
		fmt.Sprintf("图片地址url列表: %s", models.FormatList(n.ImageList)),
		fmt.Sprintf("标签: %s", models.FormatList(n.Tags)),
		fmt.Sprintf("上传时间: %s", n.UploadTime),
		fmt.Sprintf("ip归属地: %s", n.IPLocation),
	}
	return strings.Join(lines, "\n")
}

func userDetail(u models.User) string {
	lines := []string{
		fmt.Sprintf("用户id: %s", u.UserID),
		fmt.Sprintf("用户主页url: %s", u.HomeURL),
		fmt.Sprintf("用户名: %s", u.Nickname),
		fmt.Sprintf("头像url: %s", u.Avatar),
		fmt.Sprintf("小红书号: %s", u.RedID),
		fmt.Sprintf("性别: %s", u.Gender),
		fmt.Sprintf("ip地址: %s", u.IPLocation),
		fmt.Sprintf("介绍: %s", u.Desc),
		fmt.Sprintf("关注数量: %d", u.Follows),
		fmt.Sprintf("粉丝数量: %d", u.Fans),
		fmt.Sprintf("作品被赞和收藏数量: %d", u.Interaction),
		fmt.Sprintf("标签: %s", models.FormatList(u.Tags)),
	}
	return strings.Join(lines, "\n")
}

// encodeInfo renders v as JSON without escaping non-ASCII or HTML
func encodeInfo(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func writeNoteSideFiles(dir string, n models.Note) error {
	info, err := encodeInfo(n)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}
	if err := writeFile(filepath.Join(dir, infoFile), info); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, detailFile), []byte(noteDetail(n)))
}

// WriteUserDetail writes the user's detail.txt under its user directory and
// returns that directory
func (m *Manager) WriteUserDetail(u models.User) (string, error) {
	dir := m.UserDir(u)
	if err := writeFile(filepath.Join(dir, detailFile), []byte(userDetail(u))); err != nil {
		return "", err
	}
	return dir, nil
}
