package nntp

import (
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
)

var DefaultClientTimeout = 10 * time.Minute

// ClientConnection represents one client connection. The reader state
// (current group, current article number) is scoped here, never in
// process-wide variables.
type ClientConnection struct {
	conn     net.Conn
	textConn *textproto.Conn
	server   *Server

	currentGroup  *models.Group
	currentNumber int64 // 0 means invalid/unset
}

// NewClientConnection wraps an accepted connection.
func NewClientConnection(conn net.Conn, server *Server) *ClientConnection {
	return &ClientConnection{
		conn:     conn,
		textConn: textproto.NewConn(conn),
		server:   server,
	}
}

// Handle runs the per-connection command loop until QUIT, disconnect or an
// unrecoverable I/O error on the socket.
func (c *ClientConnection) Handle() error {
	defer c.textConn.Close()

	if err := c.sendResponse(200, "lord/"+config.AppVersion); err != nil {
		return fmt.Errorf("failed to send greeting: %w", err)
	}

	for {
		c.conn.SetReadDeadline(time.Now().Add(DefaultClientTimeout))
		line, err := c.textConn.ReadLine()
		if err != nil {
			return nil // client went away
		}
		quit, err := c.handleCommand(line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// handleCommand parses and dispatches one command line. Commands are
// case-insensitive. The returned bool requests connection close.
func (c *ClientConnection) handleCommand(line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, c.sendResponse(500, "Unknown command")
	}
	command := strings.ToUpper(parts[0])
	args := parts[1:]

	switch command {
	case "QUIT":
		c.sendResponse(205, "Bye")
		return true, nil
	case "HELP":
		return false, c.handleHelp(args)
	case "CAPABILITIES":
		return false, c.handleCapabilities(args)
	case "DATE":
		return false, c.handleDate(args)
	case "MODE":
		return false, c.handleMode(args)
	case "GROUP":
		return false, c.handleGroup(args)
	case "LISTGROUP":
		return false, c.handleListGroup(args)
	case "LAST":
		return false, c.handleLast(args)
	case "NEXT":
		return false, c.handleNext(args)
	case "ARTICLE":
		return false, c.retrieveArticleCommon(args, RetrievalArticle)
	case "HEAD":
		return false, c.retrieveArticleCommon(args, RetrievalHead)
	case "BODY":
		return false, c.retrieveArticleCommon(args, RetrievalBody)
	case "STAT":
		return false, c.retrieveArticleCommon(args, RetrievalStat)
	case "NEWGROUPS":
		return false, c.handleNewGroups(args)
	case "NEWNEWS":
		return false, c.handleNewNews(args)
	case "LIST":
		return false, c.handleList(args)
	case "OVER", "XOVER":
		return false, c.handleOver(args)
	case "POST":
		return false, c.handlePost(args)
	default:
		return false, c.sendResponse(500, "Unknown command")
	}
}

// sendResponse sends a single-line status response.
func (c *ClientConnection) sendResponse(code int, message string) error {
	c.conn.SetWriteDeadline(time.Now().Add(DefaultClientTimeout))
	return c.textConn.PrintfLine("%d %s", code, message)
}

// sendMultiline sends a status line followed by a dot-terminated block.
// The DotWriter applies dot-stuffing and CRLF endings.
func (c *ClientConnection) sendMultiline(code int, message string, lines []string) error {
	if err := c.sendResponse(code, message); err != nil {
		return err
	}
	dw := c.textConn.DotWriter()
	for _, line := range lines {
		if _, err := fmt.Fprintf(dw, "%s\n", line); err != nil {
			dw.Close()
			return err
		}
	}
	return dw.Close()
}

// badSyntax reports an argument-count or shape error.
func (c *ClientConnection) badSyntax() error {
	return c.sendResponse(501, "Bad syntax")
}

// parseRange parses the N / N- / N-M range grammar. hi falls back to the
// group's max for open-ended ranges.
func parseRange(arg string, max int64) (lo, hi int64, ok bool) {
	before, after, dashed := strings.Cut(arg, "-")
	lo, err := parseNumber(before)
	if err != nil {
		return 0, 0, false
	}
	if !dashed {
		return lo, lo, true
	}
	if after == "" {
		return lo, max, true
	}
	hi, err = parseNumber(after)
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func parseNumber(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int64(r-'0')
	}
	return n, nil
}
