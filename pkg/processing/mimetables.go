package processing

import "strings"

func essence(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func isPDFMime(mimeType string) bool {
	return essence(mimeType) == "application/pdf"
}

func isMailMime(mimeType string) bool {
	return essence(mimeType) == "message/rfc822"
}

// imageMimes are the raster formats process_image knows how to decode,
// orient, and thumbnail (spec.md §4.5).
var imageMimes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
	"image/x-icon": true,
}

func isImageMime(mimeType string) bool {
	return imageMimes[essence(mimeType)]
}

// convertibleMimes are formats the office converter can turn into a PDF
// (the teacher's office-convert-server document, mirrored from
// office/convert_server.rs's CONVERTABLE_FORMATS list).
var convertibleMimes = map[string]bool{
	"application/msword":                                                     true,
	"application/rtf":                                                        true,
	"application/vnd.ms-excel":                                               true,
	"application/vnd.ms-works":                                               true,
	"application/vnd.oasis.opendocument.text":                                true,
	"application/vnd.oasis.opendocument.text-template":                       true,
	"application/vnd.oasis.opendocument.spreadsheet":                         true,
	"application/vnd.oasis.opendocument.presentation":                       true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":      true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.template":   true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-excel.sheet.macroenabled.12":                         true,
	"application/vnd.ms-excel.sheet.binary.macroenabled.12":                  true,
	"application/vnd.ms-word.template.macroenabled.12":                       true,
	"text/html":       true,
	"text/spreadsheet": true,
	"application/epub+zip": true,
	"application/x-abiword": true,
	"application/vnd.wordperfect": true,
	"application/vnd.lotus-1-2-3": true,
	"application/vnd.lotus-wordpro": true,
	"application/x-hwp": true,
	"application/x-gnumeric": true,
}

// IsConvertible reports whether mimeType is in the fixed set the office
// converter accepts. Exported so pkg/processing/office's HTTP client can
// reuse the table without duplicating it.
func IsConvertible(mimeType string) bool {
	return convertibleMimes[essence(mimeType)]
}
