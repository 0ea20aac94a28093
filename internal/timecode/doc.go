// Package timecode converts between textual timestamps and float seconds.
//
// Every timestamp entering the engine goes through Parse (or ParseLenient)
// and every timestamp leaving it goes through Format, so the canonical
// external form is always HH:MM:SS,mmm and the internal form is always
// seconds on a millisecond grid, clamped to [0, 24h].
package timecode
