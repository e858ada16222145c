// Package cookie converts between raw Cookie header strings and key/value maps.
package cookie

import (
	"sort"
	"strings"
)

// AccountKey is the cookie that identifies the browser account for signing
const AccountKey = "a1"

// Parse splits a raw cookie string into a map. The pair delimiter is "; "
// when present anywhere in raw, otherwise ";". The first "=" separates key
// from value. Blank segments are skipped.
func Parse(raw string) map[string]string {
	cookies := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return cookies
	}

	delimiter := ";"
	if strings.Contains(raw, "; ") {
		delimiter = "; "
	}

	for _, item := range strings.Split(raw, delimiter) {
		if strings.TrimSpace(item) == "" {
			continue
		}
		key, value, _ := strings.Cut(item, "=")
		cookies[key] = value
	}
	return cookies
}

// Join renders cookies as "k=v" pairs separated by "; " in key order
func Join(cookies map[string]string) string {
	keys := Keys(cookies)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+cookies[k])
	}
	return strings.Join(parts, "; ")
}

// Header returns the value for an HTTP Cookie header
func Header(cookies map[string]string) string {
	return Join(cookies)
}

// Keys returns the sorted cookie names. Safe to log.
func Keys(cookies map[string]string) []string {
	keys := make([]string, 0, len(cookies))
	for k := range cookies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Account returns the a1 value, or "" when absent
func Account(cookies map[string]string) string {
	return cookies[AccountKey]
}
