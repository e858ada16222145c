package extractor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"xhscrawler/pkg/config"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/storage"
)

// LoadMapping merges the author alias table from config with the JSON
// object stored in file. File entries win. A missing or malformed file
// only produces a warning.
func LoadMapping(data map[string]string, file string, log logger.Logger) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	if file == "" {
		return out
	}

	path, err := config.ExpandPath(file)
	if err != nil {
		log.WithError(err).Warn("mapping file path not resolved")
		return out
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("mapping file not read")
		}
		return out
	}
	var fromFile map[string]string
	if err := json.Unmarshal(raw, &fromFile); err != nil {
		log.WithError(err).WithField("path", path).Warn("mapping file is not a JSON object")
		return out
	}
	for k, v := range fromFile {
		out[k] = v
	}
	return out
}

// alias returns the configured display name for an author
func (n *Native) alias(authorID, nickname string) string {
	if a := strings.TrimSpace(n.mapping[authorID]); a != "" {
		return a
	}
	return nickname
}

// authorDir returns root/{id}_{alias}. A folder left under an older
// nickname for the same id is renamed in place.
func (n *Native) authorDir(authorID, nickname string) (string, error) {
	if authorID == "" {
		return n.root, nil
	}
	name := authorID
	if a := storage.NormName(n.alias(authorID, nickname)); a != "" {
		name += "_" + a
	}
	dir := filepath.Join(n.root, name)
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}

	entries, err := os.ReadDir(n.root)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrap(err, "failed to list download directory")
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), authorID+"_") {
			continue
		}
		old := filepath.Join(n.root, e.Name())
		if err := os.Rename(old, dir); err != nil {
			return "", errors.Wrapf(err, "failed to rename author folder %s", e.Name())
		}
		n.logger.InfoWithFields("author folder renamed", map[string]interface{}{
			"from": e.Name(),
			"to":   name,
		})
		break
	}
	return dir, nil
}
