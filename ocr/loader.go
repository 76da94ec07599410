package ocr

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	// Image codecs for the formats the loader accepts.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Extensions the loader understands, mirroring the corpus formats scanned
// documents arrive in.
var (
	pdfExtensions   = map[string]bool{".pdf": true}
	imageExtensions = map[string]bool{
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".bmp":  true,
		".tiff": true,
	}
)

// IsSupported reports whether the loader can decode files with the given
// extension (including the leading dot, any case).
func IsSupported(ext string) bool {
	ext = strings.ToLower(ext)
	return pdfExtensions[ext] || imageExtensions[ext]
}

// LoadPages decodes a document file into its page images.
// Plain images yield a single page. PDFs yield one image per extracted
// scan page; a page that fails to decode is logged and skipped rather than
// failing the whole document.
func LoadPages(path string) ([]image.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		img, err := loadImageFile(path)
		if err != nil {
			return nil, err
		}
		return []image.Image{img}, nil
	case pdfExtensions[ext]:
		return loadPDFPages(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// loadPDFPages extracts the embedded scan images from a PDF. Scanned
// documents carry one full-page image per page, so extracting the embedded
// images recovers the page rasters without a renderer.
func loadPDFPages(path string) ([]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "docdex-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	if err := api.ExtractImagesFile(path, tempDir, nil, nil); err != nil {
		return nil, fmt.Errorf("extracting images from %s: %w", filepath.Base(path), err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, err
	}

	// Extracted files are named <base>_<page>_<id>.<ext>; lexicographic
	// order preserves page order for single-image pages.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var pages []image.Image
	for _, name := range names {
		img, err := loadImageFile(filepath.Join(tempDir, name))
		if err != nil {
			slog.Warn("skipping undecodable pdf page image",
				"document", filepath.Base(path), "page", name, "err", err)
			continue
		}
		pages = append(pages, img)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, filepath.Base(path))
	}
	return pages, nil
}
