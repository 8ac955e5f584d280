// Package logs reads the daemon log file for the `vidconv logs` command.
//
// Reads are bounded: Tail keeps only the last N lines in memory and
// Follow polls forward from a byte offset until its context ends. A Filter
// narrows output to the lines of a single job.
package logs
