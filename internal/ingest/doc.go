// Package ingest admits uploaded video files into the staging directory.
//
// Stager validates the file extension, reserves storage capacity before any
// bytes are written, and stores the file under a collision-resistant name.
// Pending holds files staged for a two-step upload until they are confirmed
// or cancelled.
package ingest
