package ocr

import "errors"

var (
	// ErrUnsupportedFormat indicates a file extension the loader cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoPages indicates a document that yielded no decodable page images.
	ErrNoPages = errors.New("document contains no decodable pages")

	// ErrEngineUnavailable indicates the recognition engine binary or model
	// could not be located at construction time.
	ErrEngineUnavailable = errors.New("recognition engine unavailable")
)
