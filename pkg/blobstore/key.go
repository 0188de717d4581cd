package blobstore

import (
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/docboxhq/docbox/pkg/mime"
)

const allowedS3Chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// sanitizeName strips a display name down to the characters S3 keys tolerate
// well: whitespace and dashes fold to underscore, anything else outside
// [a-zA-Z0-9] is dropped, and the result is capped at 50 runes.
func sanitizeName(name string) string {
	var b strings.Builder
	count := 0
	for _, c := range name {
		if count >= 50 {
			break
		}
		switch {
		case isSpace(c) || c == '-':
			b.WriteRune('_')
			count++
		case strings.ContainsRune(allowedS3Chars, c):
			b.WriteRune(c)
			count++
		}
	}
	return b.String()
}

func isSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// fileNameExt returns a name's extension without the leading dot, or ""
// if it has none (a leading-dot-only "hidden file" name counts as none).
func fileNameExt(name string) string {
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// CreateFileKey builds the blob-store key for a newly uploaded file:
// "{scope}/{id}_{sanitized name}.{ext}". The extension prefers the name's
// own suffix, falls back to one derived from mime, then to "bin".
func CreateFileKey(scope, name, mimeType string, id uuid.UUID) string {
	ext := fileNameExt(name)
	if ext == "" {
		ext = mime.ExtFor(mimeType)
	}

	fileName := strings.TrimSuffix(name, ext)
	cleanName := sanitizeName(fileName)

	fileKey := id.String() + "_" + cleanName + "." + ext
	return scope + "/" + fileKey
}

// CreateGeneratedFileKey builds the key for a derived artifact of
// baseFileKey, suffixed ".generated.{ext}" with its own random id so
// repeated regeneration never collides.
func CreateGeneratedFileKey(baseFileKey, mimeType string) string {
	ext := mime.ExtFor(mimeType)
	return baseFileKey + "_" + uuid.New().String() + ".generated." + ext
}
