package nntp

import (
	"fmt"
	"strconv"
)

// handleGroup handles GROUP
func (c *ClientConnection) handleGroup(args []string) error {
	if len(args) != 1 {
		return c.badSyntax()
	}
	group := c.server.findGroup(args[0])
	if group == nil {
		return c.sendResponse(411, "No such newsgroup")
	}

	count, min, max, err := c.server.groupStatus(group.Name)
	if err != nil {
		return err
	}

	c.currentGroup = group
	if count > 0 {
		c.currentNumber = min
	} else {
		c.currentNumber = 0
	}
	return c.sendResponse(211, fmt.Sprintf("%d %d %d %s", count, min, max, group.Name))
}

// handleListGroup handles LISTGROUP [group] [range]
func (c *ClientConnection) handleListGroup(args []string) error {
	if len(args) > 2 {
		return c.badSyntax()
	}

	group := c.currentGroup
	if len(args) > 0 {
		group = c.server.findGroup(args[0])
		if group == nil {
			return c.sendResponse(411, "No such newsgroup")
		}
	}
	if group == nil {
		return c.sendResponse(412, "No newsgroup selected")
	}

	idx, err := c.server.openGroup(group.Name)
	if err != nil {
		return err
	}

	count, min, max := int64(0), int64(1), int64(0)
	var nums []int64
	if idx != nil {
		count, min, max = idx.Count, idx.Min, idx.Max
		lo, hi := min, max
		if len(args) == 2 {
			var ok bool
			if lo, hi, ok = parseRange(args[1], max); !ok {
				idx.Close()
				return c.badSyntax()
			}
		}
		nums, err = idx.Scan(lo, hi)
		idx.Close()
		if err != nil {
			return err
		}
	} else if len(args) == 2 {
		if _, _, ok := parseRange(args[1], 0); !ok {
			return c.badSyntax()
		}
	}

	c.currentGroup = group
	if count > 0 {
		c.currentNumber = min
	} else {
		c.currentNumber = 0
	}

	lines := make([]string, 0, len(nums))
	for _, n := range nums {
		lines = append(lines, strconv.FormatInt(n, 10))
	}
	return c.sendMultiline(211, fmt.Sprintf("%d %d %d %s", count, min, max, group.Name), lines)
}

// handleLast handles LAST: seek to the previous live number.
func (c *ClientConnection) handleLast(args []string) error {
	return c.seek(args, false)
}

// handleNext handles NEXT: seek to the next live number.
func (c *ClientConnection) handleNext(args []string) error {
	return c.seek(args, true)
}

func (c *ClientConnection) seek(args []string, forward bool) error {
	if len(args) != 0 {
		return c.badSyntax()
	}
	if c.currentGroup == nil {
		return c.sendResponse(412, "No newsgroup selected")
	}
	if c.currentNumber == 0 {
		return c.sendResponse(420, "Current article number is invalid")
	}

	idx, err := c.server.openGroup(c.currentGroup.Name)
	if err != nil {
		return err
	}
	if idx == nil {
		return c.sendResponse(420, "Current article number is invalid")
	}
	defer idx.Close()

	var n int64
	if forward {
		n, err = idx.NextLive(c.currentNumber)
	} else {
		n, err = idx.PrevLive(c.currentNumber)
	}
	if err != nil {
		if forward {
			return c.sendResponse(421, "No next article in this group")
		}
		return c.sendResponse(422, "No previous article in this group")
	}

	ov, err := idx.Overview(n)
	if err != nil {
		return err
	}
	c.currentNumber = n
	return c.sendResponse(223, fmt.Sprintf("%d %s", n, ov.MessageID))
}
