package nntp

import (
	"bytes"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"
)

// handlePost handles POST: receive a dot-terminated article and hand it
// to the poster subprocess. The subprocess owns authentication and the
// forum round-trip; lord only reports its verdict.
func (c *ClientConnection) handlePost(args []string) error {
	if len(args) != 0 {
		return c.badSyntax()
	}
	if err := c.sendResponse(340, "Send article"); err != nil {
		return err
	}

	// DotReader un-stuffs leading dots and rewrites CRLF to LF.
	c.conn.SetReadDeadline(time.Now().Add(DefaultClientTimeout))
	article, err := io.ReadAll(c.textConn.DotReader())
	if err != nil {
		return err
	}

	fields := strings.Fields(c.server.PostCmd)
	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Stdin = bytes.NewReader(article)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := lastLine(stderr.String())
		if reason == "" {
			reason = "Something failed"
		}
		log.Printf("[NNTP] %s failed: %v: %s", c.server.PostCmd, err, reason)
		return c.sendResponse(441, reason)
	}
	return c.sendResponse(240, "Article posted at LOR")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
