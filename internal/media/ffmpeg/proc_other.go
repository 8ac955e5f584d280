//go:build !unix

package ffmpeg

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}
