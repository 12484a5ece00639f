package nntp

import (
	"strconv"
	"strings"

	"github.com/go-while/go-lornews/internal/common"
	"github.com/go-while/go-lornews/internal/models"
)

// handleOver handles OVER and XOVER. Records are emitted in LIST
// OVERVIEW.FMT order with MIME-encoded words decoded for transmission.
func (c *ClientConnection) handleOver(args []string) error {
	if len(args) > 1 {
		return c.badSyntax()
	}
	if len(args) == 1 && strings.HasPrefix(args[0], "<") {
		// Overview by message-id would need a cross-group scan per record;
		// not offered.
		return c.sendResponse(503, "Overview by message-id unsupported")
	}
	if c.currentGroup == nil {
		return c.sendResponse(412, "No newsgroup selected")
	}

	idx, err := c.server.openGroup(c.currentGroup.Name)
	if err != nil {
		return err
	}
	if idx == nil {
		return c.sendResponse(420, "Current article number is invalid")
	}
	defer idx.Close()

	lo, hi := c.currentNumber, c.currentNumber
	if len(args) == 1 {
		var ok bool
		if lo, hi, ok = parseRange(args[0], idx.Max); !ok {
			return c.badSyntax()
		}
	} else if c.currentNumber == 0 {
		return c.sendResponse(420, "Current article number is invalid")
	}

	nums, err := idx.Scan(lo, hi)
	if err != nil {
		return err
	}
	if len(nums) == 0 {
		return c.sendResponse(420, "No articles in that range")
	}

	lines := make([]string, 0, len(nums))
	for _, n := range nums {
		ov, err := idx.Overview(n)
		if err != nil {
			continue
		}
		lines = append(lines, overviewLine(n, ov))
	}
	return c.sendMultiline(224, "Overview information follows", lines)
}

// overviewLine formats one OVER record: number first, then the fields in
// the order LIST OVERVIEW.FMT announces them.
func overviewLine(n int64, ov *models.Overview) string {
	return strings.Join([]string{
		strconv.FormatInt(n, 10),
		common.DecodeHeaderValue(ov.Subject),
		common.DecodeHeaderValue(ov.FromHeader),
		ov.DateString,
		ov.MessageID,
		ov.References,
		strconv.FormatInt(ov.Bytes, 10),
		strconv.FormatInt(ov.Lines, 10),
		"X-Stars: " + ov.Stars,
	}, "\t")
}
