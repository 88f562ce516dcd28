package file

import (
	"net/url"
	"path/filepath"
	"strings"
)

// IsSafe reports whether name can be used as an object key without escaping
// the storage directory. Callers must check it before touching the store.
func IsSafe(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	// NUL truncates paths on some filesystems
	return !strings.ContainsRune(name, 0)
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".bmp": {}, ".webp": {}, ".svg": {}, ".ico": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {}, ".webm": {},
	".mkv": {}, ".m4v": {}, ".3gp": {}, ".mpg": {}, ".mpeg": {},
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".txt":  "text/plain; charset=utf-8",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
}

const defaultContentType = "application/octet-stream"

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Classify maps a name to its preview category by extension.
func Classify(name string) Category {
	ext := extension(name)
	if _, ok := imageExtensions[ext]; ok {
		return CategoryImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return CategoryVideo
	}
	return CategoryOther
}

// ContentType returns the MIME type served for name.
func ContentType(name string) string {
	if ct, ok := contentTypes[extension(name)]; ok {
		return ct
	}
	return defaultContentType
}

// DownloadPath is the API path that retrieves name.
func DownloadPath(name string) string {
	return "/api/file-get?name=" + url.QueryEscape(name)
}
