package nntp

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-while/go-lornews/internal/common"
	"github.com/go-while/go-lornews/internal/models"
)

// handleList handles LIST [ACTIVE [pattern]|NEWSGROUPS [pattern]|OVERVIEW.FMT]
func (c *ClientConnection) handleList(args []string) error {
	keyword := "ACTIVE"
	if len(args) > 0 {
		keyword = strings.ToUpper(args[0])
	}

	switch keyword {
	case "ACTIVE", "NEWSGROUPS":
		if len(args) > 2 {
			return c.badSyntax()
		}
		var pattern *common.Pattern
		if len(args) == 2 {
			var err error
			if pattern, err = common.ParsePattern(args[1]); err != nil {
				return c.badSyntax()
			}
		}
		var lines []string
		for _, g := range c.server.Catalog {
			if pattern != nil && !pattern.Match(g.Name) {
				continue
			}
			if keyword == "NEWSGROUPS" {
				lines = append(lines, fmt.Sprintf("%s %s", g.Name, g.Description))
				continue
			}
			_, min, max, err := c.server.groupStatus(g.Name)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("%s %d %d y", g.Name, max, min))
		}
		return c.sendMultiline(215, "Newsgroups follow", lines)

	case "OVERVIEW.FMT":
		if len(args) > 1 {
			return c.badSyntax()
		}
		return c.sendMultiline(215, "Order of fields in overview database", models.OverviewFields)

	default:
		return c.badSyntax()
	}
}

// handleNewGroups handles NEWGROUPS yymmdd hhmmss [GMT]. The whole catalog
// is reported when the stored creation-date is at or past the query time,
// nothing otherwise: groups only ever appear together with the install.
func (c *ClientConnection) handleNewGroups(args []string) error {
	since, err := parseNNTPDate(args)
	if err != nil {
		return c.badSyntax()
	}

	created, err := c.server.Cfg.CreationDate()
	if err != nil {
		return err
	}

	var lines []string
	if !created.Before(since) {
		for _, g := range c.server.Catalog {
			_, min, max, err := c.server.groupStatus(g.Name)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("%s %d %d y", g.Name, max, min))
		}
	}
	return c.sendMultiline(231, "New newsgroups follow", lines)
}

// handleNewNews handles NEWNEWS pattern yymmdd hhmmss [GMT].
func (c *ClientConnection) handleNewNews(args []string) error {
	if len(args) < 3 {
		return c.badSyntax()
	}
	pattern, err := common.ParsePattern(args[0])
	if err != nil {
		return c.badSyntax()
	}
	since, err := parseNNTPDate(args[1:])
	if err != nil {
		return c.badSyntax()
	}

	var lines []string
	for _, g := range c.server.Catalog {
		if !pattern.Match(g.Name) {
			continue
		}
		idx, err := c.server.openGroup(g.Name)
		if err != nil {
			return err
		}
		if idx == nil {
			continue
		}
		nums, err := idx.Scan(idx.Min, idx.Max)
		if err != nil {
			idx.Close()
			return err
		}
		for _, n := range nums {
			ts, err := idx.Timestamp(n)
			if err != nil {
				continue
			}
			if ts.Before(since) {
				continue
			}
			ov, err := idx.Overview(n)
			if err != nil {
				continue
			}
			lines = append(lines, ov.MessageID)
		}
		idx.Close()
	}
	return c.sendMultiline(230, "List of new articles follows", lines)
}

// parseNNTPDate parses the [yy]yymmdd hhmmss [GMT] argument pair used by
// NEWGROUPS and NEWNEWS. Two-digit years pick the century that keeps the
// date in the past or at most 50 years ahead, per RFC 3977.
func parseNNTPDate(args []string) (time.Time, error) {
	if len(args) < 2 || len(args) > 3 {
		return time.Time{}, fmt.Errorf("want date and time")
	}
	if len(args) == 3 && strings.ToUpper(args[2]) != "GMT" {
		return time.Time{}, fmt.Errorf("unknown timezone %q", args[2])
	}
	date, clock := args[0], args[1]
	if len(clock) != 6 {
		return time.Time{}, fmt.Errorf("bad time %q", clock)
	}

	switch len(date) {
	case 8:
		// four-digit year, nothing to do
	case 6:
		yy, err := parseNumber(date[:2])
		if err != nil {
			return time.Time{}, err
		}
		century := (int64(time.Now().UTC().Year()) / 100) * 100
		year := century + yy
		if year > int64(time.Now().UTC().Year())+50 {
			year -= 100
		}
		date = fmt.Sprintf("%04d%s", year, date[2:])
	default:
		return time.Time{}, fmt.Errorf("bad date %q", date)
	}

	t, err := time.ParseInLocation("20060102150405", date+clock, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
