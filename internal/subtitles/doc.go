// Package subtitles implements the subtitle sync pipeline: locating
// reference and target subtitles on OpenSubtitles, downloading both, aligning
// the target against the reference timeline, and publishing the result into
// the immutable subtitle cache.
//
// Alignment prefers the external ffsubsync tool. When the binary is missing
// or fails, a built-in linear time-transform aligner matches cues between the
// two files by text similarity and refits the target timeline.
package subtitles
