// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fixsource runs the external command that reports GPS fixes.
package fixsource

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/kballard/go-shellquote"
)

// Shell runs every fix-source command, so pipelines, redirects and
// variable expansion work as they would at a prompt.
const Shell = "/bin/sh"

// waitDelay bounds how long Fetch waits for the output pipes after the
// shell is killed, since its children may still hold them open.
const waitDelay = time.Second

// Command is an external fix-source command such as "gpspipe --json -n 5".
type Command struct {
	cmdstr string
}

// NewCommand checks cmdstr for shell quoting errors. Fetch hands the
// string to Shell unchanged.
func NewCommand(cmdstr string) (*Command, error) {
	cmdParts, err := shellquote.Split(cmdstr)
	if err != nil {
		return nil, fmt.Errorf("invalid fix source command %q: %w", cmdstr, err)
	}
	if len(cmdParts) == 0 {
		return nil, fmt.Errorf("fix source command is empty")
	}

	return &Command{cmdstr: cmdstr}, nil
}

// String returns the command as configured.
func (c *Command) String() string {
	return c.cmdstr
}

// Fetch runs the command to completion and returns its standard output.
// A command that fails to start or exits non-zero is not an error: the
// captured output, often empty, is returned as is. Only ctx cancellation
// is reported, so the caller can tell shutdown from "no data".
func (c *Command) Fetch(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, Shell, "-c", c.cmdstr)
	cmd.WaitDelay = waitDelay
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		glog.V(1).Infof("fix source: %q: %v %s", c.cmdstr, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
