// Package transcribe turns an edition's audio into timestamped segments by
// prompting a multimodal LLM. The guided pass is given the lyric and asked to
// time each verse; the blind pass hears the audio alone and serves as a
// timing reference for the merge.
//
// Stage wires both passes into the workflow: it resolves the lyric, aligns
// the guided pass, merges with the blind pass when the direct result is
// route C and stores the alignment for the cut stage.
package transcribe
