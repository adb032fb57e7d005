// Package render persists generated SVG documents and rasterizes them to
// pixel-art bitmaps.
//
// Rasterization draws the document at PixelScale times the target size with
// oksvg and rasterx, then downscales it with nearest-neighbour sampling so
// edges stay hard.
package render
