package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docboxhq/docbox/pkg/db"
)

func TestProcessEmailRequiresSender(t *testing.T) {
	raw := "To: bob@example.com\r\nSubject: no sender\r\n\r\nbody\r\n"
	_, err := processEmail(nil, []byte(raw))
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrMalformed, pe.Kind)
}

// TestProcessEmailWithAttachment mirrors spec.md §8 scenario S2: a plain
// email with one attachment produces Metadata, HtmlContent, and
// TextContent generated artifacts plus one AdditionalFile re-entering the
// pipeline.
func TestProcessEmailWithAttachment(t *testing.T) {
	raw := "" +
		"From: Alice <alice@example.com>\r\n" +
		"To: Bob <bob@example.com>\r\n" +
		"Subject: Test email\r\n" +
		"Content-Type: multipart/mixed; boundary=\"B\"\r\n" +
		"\r\n" +
		"--B\r\n" +
		"Content-Type: multipart/alternative; boundary=\"A\"\r\n" +
		"\r\n" +
		"--A\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hello there\r\n" +
		"--A\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>hello there</p>\r\n" +
		"--A--\r\n" +
		"--B\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"sample.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.4 fake\r\n" +
		"--B--\r\n"

	out, err := processEmail(nil, []byte(raw))
	require.NoError(t, err)
	require.NotNil(t, out)

	require.Len(t, out.Index.Pages, 1)
	assert.Equal(t, "hello there", out.Index.Pages[0].Content)

	types := map[db.GeneratedFileType]bool{}
	for _, u := range out.UploadQueue {
		types[u.Type] = true
	}
	assert.True(t, types[db.GeneratedMetadata])
	assert.True(t, types[db.GeneratedHtmlContent])
	assert.True(t, types[db.GeneratedTextContent])
	assert.Len(t, out.UploadQueue, 3)

	require.Len(t, out.AdditionalFiles, 1)
	assert.Equal(t, "sample.pdf", out.AdditionalFiles[0].Name)
	assert.Equal(t, "application/pdf", out.AdditionalFiles[0].Mime)
}

func TestProcessEmailSkipAttachments(t *testing.T) {
	raw := "" +
		"From: Alice <alice@example.com>\r\n" +
		"Subject: no attachments please\r\n" +
		"Content-Type: multipart/mixed; boundary=\"B\"\r\n" +
		"\r\n" +
		"--B\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hi\r\n" +
		"--B\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"sample.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.4 fake\r\n" +
		"--B--\r\n"

	cfg := &Config{Email: &EmailConfig{SkipAttachments: true}}
	out, err := processEmail(cfg, []byte(raw))
	require.NoError(t, err)
	assert.Empty(t, out.AdditionalFiles)
}

func TestProcessEmailInlineImageRewrittenToDataURL(t *testing.T) {
	raw := "" +
		"From: Alice <alice@example.com>\r\n" +
		"Subject: inline image\r\n" +
		"Content-Type: multipart/related; boundary=\"R\"\r\n" +
		"\r\n" +
		"--R\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<img src=\"cid:logo123\">\r\n" +
		"--R\r\n" +
		"Content-Type: image/png\r\n" +
		"Content-Disposition: inline\r\n" +
		"Content-Id: <logo123>\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"aGVsbG8=\r\n" +
		"--R--\r\n"

	out, err := processEmail(nil, []byte(raw))
	require.NoError(t, err)

	var html string
	for _, u := range out.UploadQueue {
		if u.Type == db.GeneratedHtmlContent {
			html = string(u.Contents)
		}
	}
	assert.Contains(t, html, "data:image/png;base64,")
	assert.NotContains(t, html, "cid:logo123")
	assert.Empty(t, out.AdditionalFiles, "inline cid part must not also surface as an attachment")
}
