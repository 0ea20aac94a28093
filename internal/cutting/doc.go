// Package cutting implements the cut stage. It derives the clip window from
// the primary overlay track (or operator overrides), re-bases every overlay
// and the validated alignment onto the clip, cuts the video by stream copy
// and writes the lyric SRT.
package cutting
