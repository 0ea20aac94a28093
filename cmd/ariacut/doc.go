// Command ariacut aligns opera lyrics against transcriptions and runs the
// edition pipeline that turns a long recording into subtitled short clips.
//
// The engine commands (align, merge, sanitize, window, crop, timecode) work
// on local files and never touch the store. The edition commands manage the
// job store, and run starts the workflow runner in the foreground.
package main
