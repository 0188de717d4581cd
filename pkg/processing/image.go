package processing

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kovidgoyal/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/docboxhq/docbox/pkg/db"
)

// exifOrientedMimes are the formats EXIF orientation correction applies to;
// other raster formats have no EXIF segment to read (spec.md §4.5).
var exifOrientedMimes = map[string]bool{
	"image/jpeg": true,
	"image/tiff": true,
	"image/png":  true,
	"image/webp": true,
}

// processImage decodes an image file, applies its EXIF orientation if
// present, and produces the large (512x512) and small (64x64) thumbnail
// variants. No text is extracted from images, so the returned Output has
// no Index.
func processImage(contents []byte, mimeType string) (*Output, error) {
	img, _, err := image.Decode(bytes.NewReader(contents))
	if err != nil {
		return nil, malformed(err)
	}

	if exifOrientedMimes[essence(mimeType)] {
		if orientation, ok := readExifOrientation(contents); ok {
			img = applyExifOrientation(img, orientation)
		}
	}

	large, err := encodeThumbnail(img, 512, 512, mimeType)
	if err != nil {
		return nil, internal(err)
	}
	small, err := encodeThumbnail(img, 64, 64, mimeType)
	if err != nil {
		return nil, internal(err)
	}

	return &Output{
		UploadQueue: []QueuedUpload{
			{Type: db.GeneratedLargeThumbnail, Mime: "image/jpeg", Contents: large},
			{Type: db.GeneratedSmallThumbnail, Mime: "image/jpeg", Contents: small},
		},
	}, nil
}

// readExifOrientation reads the EXIF orientation tag (1-8) from contents,
// if present.
func readExifOrientation(contents []byte) (int, bool) {
	x, err := exif.Decode(bytes.NewReader(contents))
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, false
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return orientation, true
}

// applyExifOrientation rotates/flips img so its visual orientation matches
// what the EXIF tag describes, per the standard 1-8 orientation values.
func applyExifOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// fitThumbnail resizes img to fit within w x h, preserving aspect ratio,
// capped at 256x256 for a .ico source regardless of the requested size
// (spec.md §4.5: "for .ico the large variant caps at 256x256").
func fitThumbnail(img image.Image, w, h int, mimeType string) image.Image {
	if essence(mimeType) == "image/x-icon" {
		w, h = min(w, 256), min(h, 256)
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}
