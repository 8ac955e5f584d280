// Package ffmpeg drives the ffmpeg CLI for MP4 conversion.
//
// Client builds the encoder command line, runs it through an Executor and
// streams elapsed output time parsed from ffmpeg's machine-readable
// "-progress pipe:1" channel. The default executor puts ffmpeg in its own
// process group so a cancelled context terminates the whole tree.
package ffmpeg
