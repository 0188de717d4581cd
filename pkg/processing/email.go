package processing

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/db"
)

// EmailEntity is one address/name pair found in a header such as From, To,
// Cc, or Bcc.
type EmailEntity struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// EmailHeader is a single raw header line, kept verbatim for indexing.
type EmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EmailAttachment is the metadata recorded for an attachment, independent of
// whether it was actually re-entered into the pipeline as an AdditionalFile
// (spec.md Open Question (e): skip_attachments only suppresses re-ingestion,
// not the record of the attachment having existed).
type EmailAttachment struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
	Mime   string `json:"mime"`
}

// EmailMetadataDocument is the JSON artifact stored as a GeneratedMetadata
// file alongside the email's HTML/plain-text body artifacts (spec.md §4.5).
type EmailMetadataDocument struct {
	From        EmailEntity       `json:"from"`
	To          []EmailEntity     `json:"to"`
	Cc          []EmailEntity     `json:"cc"`
	Bcc         []EmailEntity     `json:"bcc"`
	Subject     *string           `json:"subject,omitempty"`
	Date        *string           `json:"date,omitempty"`
	MessageID   *string           `json:"message_id,omitempty"`
	Headers     []EmailHeader     `json:"headers"`
	Attachments []EmailAttachment `json:"attachments"`
}

// emailWalk accumulates state while walking a (possibly nested) multipart
// tree: the first text/plain and text/html bodies found, inline cid:
// parts kept aside for substitution into the HTML body, and every
// attachment-shaped part encountered.
type emailWalk struct {
	textBody   *string
	htmlBody   *string
	inlineData map[string][]byte
	inlineMime map[string]string

	attachments      []EmailAttachment
	allowAttachments bool
	additional       []AdditionalFile
}

// processEmail parses a message/rfc822 file into index text, a JSON
// metadata document, an HTML body artifact (inline cid: attachments
// rewritten to base64 data URLs), a plain-text body artifact, and
// (unless skipped) one AdditionalFile per attachment. An email with no
// parseable sender is malformed (spec.md §4.5): every email must have a
// From address.
func processEmail(cfg *Config, contents []byte) (*Output, error) {
	msg, err := mail.ReadMessage(strings.NewReader(string(contents)))
	if err != nil {
		return &Output{}, nil
	}

	fromAddrs, err := msg.Header.AddressList("From")
	if err != nil || len(fromAddrs) == 0 {
		return nil, malformed(errors.New("processing: email must have at least one sender"))
	}
	from := toEntity(fromAddrs[0])

	to := toEntities(msg.Header, "To")
	cc := toEntities(msg.Header, "Cc")
	bcc := toEntities(msg.Header, "Bcc")

	subject := strptr(msg.Header.Get("Subject"))
	date := strptr(msg.Header.Get("Date"))
	messageID := strptr(msg.Header.Get("Message-Id"))

	headers := make([]EmailHeader, 0, len(msg.Header))
	for name, values := range msg.Header {
		for _, v := range values {
			headers = append(headers, EmailHeader{Name: name, Value: v})
		}
	}

	state := &emailWalk{
		inlineData:       map[string][]byte{},
		inlineMime:       map[string]string{},
		allowAttachments: !(cfg != nil && cfg.Email != nil && cfg.Email.SkipAttachments),
	}
	if err := walkEmailPart(msg.Header, msg.Body, state); err != nil {
		return nil, internal(err)
	}
	resolveInlineContent(state)

	doc := EmailMetadataDocument{
		From: from, To: to, Cc: cc, Bcc: bcc,
		Subject: subject, Date: date, MessageID: messageID,
		Headers: headers, Attachments: state.attachments,
	}
	metadataJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, internal(err)
	}

	out := &Output{
		Index:           &IndexMetadata{},
		AdditionalFiles: state.additional,
	}
	if state.textBody != nil {
		out.Index.Pages = []IndexPage{{Page: 0, Content: *state.textBody}}
	}

	out.UploadQueue = append(out.UploadQueue, QueuedUpload{
		Type:     db.GeneratedMetadata,
		Mime:     "application/json",
		Contents: metadataJSON,
	})
	if state.htmlBody != nil {
		out.UploadQueue = append(out.UploadQueue, QueuedUpload{
			Type:     db.GeneratedHtmlContent,
			Mime:     "text/html",
			Contents: []byte(*state.htmlBody),
		})
	}
	if state.textBody != nil {
		out.UploadQueue = append(out.UploadQueue, QueuedUpload{
			Type:     db.GeneratedTextContent,
			Mime:     "text/plain",
			Contents: []byte(*state.textBody),
		})
	}

	return out, nil
}

// resolveInlineContent rewrites every "cid:<id>" reference in the HTML body
// found during the walk into a base64 data URL, per spec.md §4.5.
func resolveInlineContent(state *emailWalk) {
	if state.htmlBody == nil {
		return
	}
	body := *state.htmlBody
	for cid, data := range state.inlineData {
		dataURI := "data:" + state.inlineMime[cid] + ";base64," + base64.StdEncoding.EncodeToString(data)
		body = strings.ReplaceAll(body, "cid:"+cid, dataURI)
	}
	state.htmlBody = &body
}

func toEntity(addr *mail.Address) EmailEntity {
	e := EmailEntity{}
	if addr.Address != "" {
		e.Address = strptr(addr.Address)
	}
	if addr.Name != "" {
		e.Name = strptr(addr.Name)
	}
	return e
}

func toEntities(h mail.Header, field string) []EmailEntity {
	addrs, err := h.AddressList(field)
	if err != nil {
		return nil
	}
	out := make([]EmailEntity, len(addrs))
	for i, a := range addrs {
		out[i] = toEntity(a)
	}
	return out
}

func strptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// header is the subset of mail.Header / textproto.MIMEHeader walkEmailPart
// needs; both satisfy it without adaptation.
type header interface {
	Get(string) string
}

// walkEmailPart recurses through a MIME part tree (a plain message has none
// to recurse into), classifying each leaf as the plain-text body, the HTML
// body, an inline cid: part, or an attachment. Mirrors
// original_source's message.text_bodies()/html_bodies()/attachments()
// traversal without a full MIME parsing library, since none appears in the
// example pack and net/mail + mime/multipart cover RFC822 sufficiently.
func walkEmailPart(h header, body io.Reader, state *emailWalk) error {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, nextErr := mr.NextPart()
			if nextErr == io.EOF {
				return nil
			}
			if nextErr != nil {
				return nextErr
			}
			if err := walkEmailPart(part.Header, part, state); err != nil {
				return err
			}
		}
	}

	raw, err := decodeTransferEncoding(h.Get("Content-Transfer-Encoding"), body)
	if err != nil {
		return nil
	}

	disposition := h.Get("Content-Disposition")
	_, dispParams, _ := mime.ParseMediaType(disposition)
	name := params["name"]
	if name == "" {
		name = dispParams["filename"]
	}
	contentID := strings.Trim(h.Get("Content-Id"), "<>")
	isInline := strings.HasPrefix(strings.ToLower(strings.TrimSpace(disposition)), "inline")

	if isInline && contentID != "" {
		state.inlineData[contentID] = raw
		state.inlineMime[contentID] = mediaType
		return nil
	}

	isAttachmentShaped := name != "" || strings.HasPrefix(strings.ToLower(strings.TrimSpace(disposition)), "attachment")
	if !isAttachmentShaped {
		switch mediaType {
		case "text/plain":
			if state.textBody == nil {
				s := string(raw)
				state.textBody = &s
			}
			return nil
		case "text/html":
			if state.htmlBody == nil {
				s := string(raw)
				state.htmlBody = &s
			}
			return nil
		}
	}

	if name == "" {
		name = "attachment"
	}
	state.attachments = append(state.attachments, EmailAttachment{Name: name, Length: len(raw), Mime: mediaType})
	if state.allowAttachments {
		state.additional = append(state.additional, AdditionalFile{Name: name, Mime: mediaType, Bytes: raw})
	}
	return nil
}

func decodeTransferEncoding(encoding string, body io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(body))
	case "base64":
		return io.ReadAll(base64.NewDecoder(base64.StdEncoding, body))
	default:
		return io.ReadAll(body)
	}
}
