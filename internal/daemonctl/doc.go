// Package daemonctl starts and stops a background `vidconv serve` process
// for the start, stop and restart commands.
package daemonctl
