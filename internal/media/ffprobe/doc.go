// Package ffprobe reads container metadata from downloaded and rendered
// videos through ffprobe's JSON output.
//
// Inspect returns a Result; DurationSeconds and VideoResolution are what the
// download and render stages record.
package ffprobe
