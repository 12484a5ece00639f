package nntp

import (
	"strings"
	"time"

	"github.com/go-while/go-lornews/internal/config"
)

// handleHelp handles HELP
func (c *ClientConnection) handleHelp(args []string) error {
	helpLines := []string{
		"Commands supported:",
		"  ARTICLE [<msgid>|<num>]",
		"  BODY [<msgid>|<num>]",
		"  CAPABILITIES [keyword]",
		"  DATE",
		"  GROUP <group>",
		"  HEAD [<msgid>|<num>]",
		"  HELP",
		"  LAST",
		"  LIST [ACTIVE|NEWSGROUPS [pattern]|OVERVIEW.FMT]",
		"  LISTGROUP [<group> [range]]",
		"  MODE READER",
		"  NEWGROUPS yymmdd hhmmss [GMT]",
		"  NEWNEWS pattern yymmdd hhmmss [GMT]",
		"  NEXT",
		"  OVER [range]",
		"  POST",
		"  QUIT",
		"  STAT [<msgid>|<num>]",
		"  XOVER [range]",
	}
	return c.sendMultiline(100, "Help text follows", helpLines)
}

// handleCapabilities handles CAPABILITIES; the optional keyword argument
// is accepted and ignored, as RFC 3977 allows.
func (c *ClientConnection) handleCapabilities(args []string) error {
	capabilities := []string{
		"VERSION 2",
		"IMPLEMENTATION lord/" + config.AppVersion,
		"READER",
		"NEWNEWS",
		"LIST ACTIVE NEWSGROUPS OVERVIEW.FMT",
		"OVER",
		"POST",
	}
	return c.sendMultiline(101, "Capability list:", capabilities)
}

// handleDate handles DATE
func (c *ClientConnection) handleDate(args []string) error {
	return c.sendResponse(111, time.Now().UTC().Format("20060102150405"))
}

// handleMode handles MODE READER
func (c *ClientConnection) handleMode(args []string) error {
	if len(args) != 1 {
		return c.badSyntax()
	}
	switch strings.ToUpper(args[0]) {
	case "READER":
		return c.sendResponse(200, "Posting allowed")
	default:
		return c.sendResponse(500, "Unknown command")
	}
}
