package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	// maxImages bounds how many rendered pages are sent in one request.
	maxImages = 10
	// minWidth stops the shrink loop before the text becomes unreadable.
	minWidth    = 400
	jpegQuality = 85
)

// encodedImage is a JPEG ready to be sent to a vision model.
type encodedImage struct {
	Data      []byte
	MediaType string
}

// prepareImages renders every page of every file and encodes each one as a
// JPEG no larger than maxBytes, shrinking it until it fits.
func prepareImages(pages []Page, maxBytes int) ([]encodedImage, error) {
	var images []encodedImage
	for i, page := range pages {
		decoded, err := decodePage(page)
		if err != nil {
			return nil, fmt.Errorf("decoding file %d: %w", i, err)
		}
		for _, img := range decoded {
			if len(images) == maxImages {
				slog.Warn("Too many pages, dropping the rest", "max", maxImages)
				return images, nil
			}
			data, err := encodeWithin(img, maxBytes)
			if err != nil {
				return nil, err
			}
			images = append(images, encodedImage{Data: data, MediaType: "image/jpeg"})
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no pages to scan")
	}
	return images, nil
}

// decodePage returns one image per page: PDFs may yield several.
func decodePage(page Page) ([]image.Image, error) {
	mimeType := strings.ToLower(strings.TrimSpace(page.ContentType))

	switch {
	case mimeType == "application/pdf" || bytes.HasPrefix(page.Data, []byte("%PDF")):
		return renderPDF(page.Data)
	case isHEICFormat(page.Data) || isHEICMimeType(mimeType):
		img, err := heic.Decode(bytes.NewReader(page.Data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return []image.Image{img}, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(page.Data))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		return []image.Image{img}, nil
	}
}

func renderPDF(pdfData []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	images := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.Image(n)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", n+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// encodeWithin encodes img as JPEG, downscaling by a quarter each round
// until the result fits in maxBytes.
func encodeWithin(img image.Image, maxBytes int) ([]byte, error) {
	for {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return nil, fmt.Errorf("encoding JPEG: %w", err)
		}
		if maxBytes <= 0 || buf.Len() <= maxBytes {
			return buf.Bytes(), nil
		}

		width := img.Bounds().Dx() * 3 / 4
		if width < minWidth {
			return nil, fmt.Errorf("image does not fit in %d bytes", maxBytes)
		}
		slog.Debug("Shrinking image", "bytes", buf.Len(), "width", width)
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
}

// isHEICFormat checks for the ftyp box with a HEIC-related brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
