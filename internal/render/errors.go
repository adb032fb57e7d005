package render

import "errors"

var (
	// ErrUnsupportedFormat is returned for raster formats other than png and jpg.
	ErrUnsupportedFormat = errors.New("unsupported raster format")

	// ErrInvalidColor is returned when the background colour is not a hex colour.
	ErrInvalidColor = errors.New("invalid background color")

	// ErrInvalidDimensions is returned when no output size can be determined.
	ErrInvalidDimensions = errors.New("invalid raster dimensions")
)
