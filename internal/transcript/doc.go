// Package transcript ingests the untrusted JSON arrays returned by
// transcription providers and turns them into sanitized segments.
//
// Inline tags such as [REPEAT], [?] and [UNIDENTIFIED TEXT] (and their
// Portuguese forms) are parsed once into Markers so downstream code never
// rescans text.
package transcript
