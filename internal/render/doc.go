// Package render implements the last workflow stage. For every target
// language it lays out the overlay, lyric and translation tracks as an ASS
// script, burns it into the cut clip and copies the result into the export
// directory. Each language gets a render row, failed ones included.
package render
