// Package mime detects and classifies file mime types.
//
// The extension<->mime tables are hard-coded data per the processing
// pipeline's format-dispatch rules (spec.md §4.5): these are lookup
// tables, not algorithms. The convertible and image mime tables live in
// pkg/processing.
package mime

import (
	"mime"
	"path"
	"strings"
	"sync"
)

// DefaultMime is returned when detection fails entirely.
const DefaultMime = "application/octet-stream"

var extToMime sync.Map

// RegisterMime registers a custom extension -> mime mapping, overriding the
// stdlib table for that extension.
func RegisterMime(ext, m string) {
	extToMime.Store(strings.ToLower(ext), m)
}

// DetectFromName guesses a mime type from a file name's extension, falling
// back to DefaultMime when the extension is unknown or absent.
func DetectFromName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return DefaultMime
	}
	if v, ok := extToMime.Load(ext); ok {
		return v.(string)
	}
	if m := mime.TypeByExtension("." + ext); m != "" {
		// Strip parameters such as "; charset=utf-8".
		if idx := strings.IndexByte(m, ';'); idx >= 0 {
			m = strings.TrimSpace(m[:idx])
		}
		extToMime.Store(ext, m)
		return m
	}
	if m, ok := extMimeTable[ext]; ok {
		return m
	}
	return DefaultMime
}

// extMimeTable supplements the stdlib mime package for extensions it does
// not know about. Deliberately partial: spec.md Open Question (d).
var extMimeTable = map[string]string{
	"pdf":  "application/pdf",
	"eml":  "message/rfc822",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odt":  "application/vnd.oasis.opendocument.text",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"odp":  "application/vnd.oasis.opendocument.presentation",
	"rtf":  "application/rtf",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"ico":  "image/x-icon",
	"heic": "image/heic",
}

// mimeToExt is the inverse table used for generated-file key construction:
// a generated artifact's extension is taken from its mime type.
var mimeToExt = map[string]string{
	"application/pdf":      "pdf",
	"image/png":            "png",
	"image/jpeg":           "jpg",
	"image/gif":            "gif",
	"image/webp":           "webp",
	"image/bmp":            "bmp",
	"image/tiff":           "tiff",
	"image/x-icon":         "ico",
	"image/heic":           "heic",
	"application/json":     "json",
	"text/html":            "html",
	"text/plain":           "txt",
	"message/rfc822":       "eml",
	"application/xml":      "xml",
	"application/zip":      "zip",
	"application/msword":   "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
}

// ExtFor returns the file extension associated with m, or "bin" when m isn't
// in the table. Mirrors original_source's get_mime_ext fallback-to-bin
// behavior (spec.md Open Question d).
func ExtFor(m string) string {
	if ext, ok := mimeToExt[strings.ToLower(m)]; ok {
		return ext
	}
	return "bin"
}
