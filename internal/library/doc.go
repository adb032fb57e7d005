// Package library stores reusable pixel-art elements on disk so composite
// scenes can substitute them for freshly generated fragments.
//
// The layout of a library directory is:
//
//	<dir>/index.json         JSON array of entries
//	<dir>/elements/<id>.svg  vector content of each entry
//
// An entry whose SVG file is missing is kept in the index but hidden from List.
package library
