package blobstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"basic", "my file-name 123", "my_file_name_123"},
		{"only allowed chars", "abcXYZ0123", "abcXYZ0123"},
		{"removes disallowed chars", "file*name$with%chars!", "filenamewithchars"},
		{"max length", repeat("a", 60), repeat("a", 50)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, sanitizeName(c.input))
		})
	}
}

func TestFileNameExt(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"basic", "file.txt", "txt"},
		{"no ext", "file", ""},
		{"hidden file", ".hidden", ""},
		{"multiple dots", "archive.tar.gz", "gz"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, fileNameExt(c.input))
		})
	}
}

func TestCreateFileKey(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	got := CreateFileKey("scope", "report.pdf", "application/pdf", id)
	assert.Equal(t, "scope/"+id.String()+"_report.pdf", got)

	// Extension falls back to the mime type when the name has none.
	got = CreateFileKey("scope", "report", "image/png", id)
	assert.Equal(t, "scope/"+id.String()+"_report.png", got)

	// Unknown mime and no name extension falls back to "bin".
	got = CreateFileKey("scope", "blob", "application/x-unknown", id)
	assert.Equal(t, "scope/"+id.String()+"_blob.bin", got)
}

func TestCreateGeneratedFileKey(t *testing.T) {
	got := CreateGeneratedFileKey("scope/base_key.pdf", "image/jpeg")
	assert.Contains(t, got, "scope/base_key.pdf_")
	assert.Contains(t, got, ".generated.jpg")
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
