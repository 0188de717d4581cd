package processing

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/docboxhq/docbox/pkg/db"
)

// pageEndCharacter separates page text when pages are joined into one
// combined text-content artifact, mirroring the original's form-feed join
// so downstream viewers can still locate page boundaries in plain text.
const pageEndCharacter = "\f"

// processPDF extracts per-page text and renders the first page at cover,
// large-thumbnail, and small-thumbnail sizes (spec.md §4.5). A PDF that
// pdfcpu reports as encrypted produces an Output with Encrypted set and
// nothing else; a PDF with zero pages produces an empty Output.
func processPDF(contents []byte) (*Output, error) {
	conf := model.NewDefaultConfiguration()

	pageCount, err := api.PageCount(bytes.NewReader(contents), conf)
	if err != nil {
		if isEncryptedPDFError(err) {
			return &Output{Encrypted: true}, nil
		}
		return nil, malformed(errors.Wrap(err, "processing: read pdf info"))
	}
	if pageCount < 1 {
		return &Output{}, nil
	}

	var pages []string
	var cover, large, small []byte

	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		pages, err = extractPDFPageText(contents, conf)
		return err
	})
	g.Go(func() error {
		var err error
		cover, large, small, err = renderPDFFirstPageThumbnails(contents, conf)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internal(errors.Wrap(err, "processing: extract pdf text or render thumbnails"))
	}

	combined := bytes.Join(toByteSlices(pages), []byte(pageEndCharacter))

	indexPages := make([]IndexPage, len(pages))
	for i, text := range pages {
		indexPages[i] = IndexPage{Page: uint64(i), Content: text}
	}

	queue := []QueuedUpload{
		{Type: db.GeneratedTextContent, Mime: "text/plain", Contents: combined},
	}
	if cover != nil {
		queue = append(queue, QueuedUpload{Type: db.GeneratedCoverPage, Mime: "image/jpeg", Contents: cover})
	}
	if large != nil {
		queue = append(queue, QueuedUpload{Type: db.GeneratedLargeThumbnail, Mime: "image/jpeg", Contents: large})
	}
	if small != nil {
		queue = append(queue, QueuedUpload{Type: db.GeneratedSmallThumbnail, Mime: "image/jpeg", Contents: small})
	}

	return &Output{
		UploadQueue: queue,
		Index:       &IndexMetadata{Pages: indexPages},
	}, nil
}

func toByteSlices(pages []string) [][]byte {
	out := make([][]byte, len(pages))
	for i, p := range pages {
		out[i] = []byte(p)
	}
	return out
}

func isEncryptedPDFError(err error) bool {
	return err != nil && (bytesContainsFold(err.Error(), "password") || bytesContainsFold(err.Error(), "encrypt"))
}

func bytesContainsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	sl, subl := []rune(s), []rune(substr)
	for i := 0; i+len(subl) <= len(sl); i++ {
		match := true
		for j := range subl {
			a, b := sl[i+j], subl[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}
			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// extractPDFPageText pulls each page's raw content stream via pdfcpu and
// scrapes the text-showing operators out of it. pdfcpu does not expose a
// layout-aware text extractor, so this only recovers literal string
// operands of Tj/TJ — enough for full-text search indexing, not for
// preserving visual layout.
func extractPDFPageText(contents []byte, conf *model.Configuration) ([]string, error) {
	streams, err := api.ExtractContentRaw(bytes.NewReader(contents), conf)
	if err != nil {
		return nil, err
	}
	pages := make([]string, len(streams))
	for i, stream := range streams {
		pages[i] = scrapeShowTextOperators(stream)
	}
	return pages, nil
}

// scrapeShowTextOperators extracts the literal string operands of Tj/TJ
// text-showing operators from a decoded PDF content stream.
func scrapeShowTextOperators(content []byte) string {
	var out bytes.Buffer
	depth := 0
	var cur bytes.Buffer
	for i := 0; i < len(content); i++ {
		c := content[i]
		switch c {
		case '(':
			if depth == 0 {
				cur.Reset()
			}
			depth++
			if depth > 1 {
				cur.WriteByte(c)
			}
		case ')':
			depth--
			if depth == 0 {
				out.Write(cur.Bytes())
				out.WriteByte(' ')
			} else if depth > 0 {
				cur.WriteByte(c)
			}
		case '\\':
			if depth > 0 && i+1 < len(content) {
				i++
				cur.WriteByte(content[i])
			}
		default:
			if depth > 0 {
				cur.WriteByte(c)
			}
		}
	}
	return out.String()
}

// renderPDFFirstPageThumbnails produces the small (64x64), large (512x512),
// and cover-page (512x512) JPEG variants used as generated files (spec.md
// §4.3, §4.5). pdfcpu has no page rasterizer — api.ExtractImagesRaw pulls
// the raster images embedded in page 1's resources, not a rendering of the
// page itself, so a text/vector-only first page (no embedded photo or
// scanned image) yields no thumbnails here even though spec.md's flagship
// scenario expects one; see DESIGN.md for why no rasterizing dependency is
// wired instead. When a page does embed more than one image (e.g. a
// multi-image scan), the largest by encoded size is used as the best
// stand-in for "the page's picture".
func renderPDFFirstPageThumbnails(contents []byte, conf *model.Configuration) (cover, large, small []byte, err error) {
	images, err := api.ExtractImagesRaw(bytes.NewReader(contents), []string{"1"}, conf)
	if err != nil || len(images) == 0 {
		return nil, nil, nil, nil
	}

	raw := largestImage(images)
	img, _, decodeErr := image.Decode(bytes.NewReader(raw))
	if decodeErr != nil {
		return nil, nil, nil, nil
	}

	small, err = encodeThumbnail(img, 64, 64, "")
	if err != nil {
		return nil, nil, nil, err
	}
	large, err = encodeThumbnail(img, 512, 512, "")
	if err != nil {
		return nil, nil, nil, err
	}
	cover = large
	return cover, large, small, nil
}

func largestImage(images [][]byte) []byte {
	best := images[0]
	for _, img := range images[1:] {
		if len(img) > len(best) {
			best = img
		}
	}
	return best
}

func encodeThumbnail(img image.Image, w, h int, mimeType string) ([]byte, error) {
	thumb := fitThumbnail(img, w, h, mimeType)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
