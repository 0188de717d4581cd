package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docboxhq/docbox/pkg/mime"
)

func TestReprocessSkipsFilesStillGuessingOctetStream(t *testing.T) {
	assert.Equal(t, octetStreamMime, mime.DetectFromName("noextension"))
	assert.Equal(t, octetStreamMime, mime.DetectFromName("mystery.xyz123"))
}

func TestReprocessGuessesKnownExtensions(t *testing.T) {
	cases := map[string]string{
		"report.pdf":   "application/pdf",
		"archive.docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"photo.jpg":    "image/jpeg",
	}
	for name, want := range cases {
		got := mime.DetectFromName(name)
		assert.Equal(t, want, got)
		assert.NotEqual(t, octetStreamMime, got)
	}
}
