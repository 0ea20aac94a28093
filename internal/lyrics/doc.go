// Package lyrics models canonical lyric text and the chain of sources it can
// be obtained from (the local lyric bank first, then a generative model).
package lyrics
