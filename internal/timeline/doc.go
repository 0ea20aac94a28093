// Package timeline enforces ordering and non-overlap on timed segment
// sequences and derives, rebases and crops cut windows.
//
// Every operation is generic over the segment type through Spanned, so
// transcripts, aligned segments and overlays share one implementation.
// Sanitize is the single place where timings are silently rewritten.
package timeline
