// Package subtitles renders the subtitle files burned into a finished cut.
//
// Three tracks share one 1080x1920 ASS script: the overlay (context cards at
// the top of the frame), the lyrics in the song language and the translation
// beneath them. A plain SRT of the cropped lyric track is written alongside
// for editors that want to adjust timing by hand.
//
// Styles start from DefaultStyles and can be overridden per track by a YAML
// file; see LoadStyles.
package subtitles
