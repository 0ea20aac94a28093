// Package download implements the first workflow stage: it fetches the
// source performance with yt-dlp, probes its duration and extracts the mono
// mp3 the transcription provider listens to.
package download
