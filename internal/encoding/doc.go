// Package encoding runs one conversion job from claim to terminal status.
//
// Worker claims a queued job from the store, checks that the encoder is
// installed, probes the input duration, builds the ffmpeg plan from the job's
// resolution and quality, and streams progress back to the store while
// ffmpeg runs. Every outcome, including panics, ends with the job in
// complete or error; nothing escapes Run.
package encoding
