package spool

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"time"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
)

// Overview returns the stored ":N" record for a live article number.
func (idx *GroupIndex) Overview(n int64) (*models.Overview, error) {
	v, ok, err := idx.get(":" + strconv.FormatInt(n, 10))
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	ov, err := models.UnmarshalOverview(v)
	if err != nil {
		return nil, fmt.Errorf("broken index %s: article %d: %w", idx.Dir, n, err)
	}
	return ov, nil
}

// Timestamp returns the injection timestamp ("+N") of a live article number.
func (idx *GroupIndex) Timestamp(n int64) (time.Time, error) {
	v, ok, err := idx.get("+" + strconv.FormatInt(n, 10))
	if err != nil {
		return time.Time{}, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	if !ok {
		return time.Time{}, ErrNotFound
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("broken index %s: bad timestamp for %d", idx.Dir, n)
	}
	return time.Unix(secs, 0), nil
}

// TopicCount returns the live-article counter of a topic, 0 if the topic
// has no articles in this group.
func (idx *GroupIndex) TopicCount(topic int64) int64 {
	v, ok, err := idx.get(strconv.FormatInt(topic, 10) + "/")
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Scan yields the live article numbers within [lo, hi], ascending. Dead
// numbers (expired holes) are skipped.
func (idx *GroupIndex) Scan(lo, hi int64) ([]int64, error) {
	all, err := idx.keys()
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	var nums []int64
	for k := range all {
		if !digitsRe.MatchString(k) {
			continue
		}
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		if n >= lo && n <= hi {
			nums = append(nums, n)
		}
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums, nil
}

// PrevLive returns the highest live number strictly below n, or ErrNotFound.
func (idx *GroupIndex) PrevLive(n int64) (int64, error) {
	nums, err := idx.Scan(idx.Min, n-1)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, ErrNotFound
	}
	return nums[len(nums)-1], nil
}

// NextLive returns the lowest live number strictly above n, or ErrNotFound.
func (idx *GroupIndex) NextLive(n int64) (int64, error) {
	nums, err := idx.Scan(n+1, idx.Max)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, ErrNotFound
	}
	return nums[0], nil
}

// Location is the result of a store-wide message-id lookup.
type Location struct {
	Group  string
	Number int64 // number within Group
	Path   string
}

// LookupByMessageID finds the article with the given message-id anywhere in
// the store. The id is parsed per the gateway scheme and each catalog
// group's index is scanned for the exact "{TOPIC}/{COMMENT}" value; the
// topic counter key short-circuits groups that never carried the thread.
// Returns ErrNotFound when no group has it; a malformed id is an error too.
func LookupByMessageID(cfg *config.Config, groups []*models.Group, id string) (*Location, error) {
	topic, comment, ok := models.ParseMessageID(id)
	if !ok {
		return nil, fmt.Errorf("malformed message-id %q", id)
	}
	target := fmt.Sprintf("%d/%d", topic, comment)

	for _, g := range groups {
		dir := cfg.GroupDir(g.Name)
		idx, err := OpenGroupIndex(dir, g.Name, ModeRead)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // group never pulled
			}
			return nil, err
		}
		loc, err := idx.findStorePath(topic, target)
		idx.Close()
		if err != nil {
			return nil, err
		}
		if loc != nil {
			loc.Group = g.Name
			return loc, nil
		}
	}
	return nil, ErrNotFound
}

func (idx *GroupIndex) findStorePath(topic int64, target string) (*Location, error) {
	if idx.TopicCount(topic) == 0 {
		return nil, nil
	}
	all, err := idx.keys()
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	for k, v := range all {
		if v != target || !digitsRe.MatchString(k) {
			continue
		}
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		path, err := idx.ArticleFile(n)
		if err != nil {
			return nil, err
		}
		return &Location{Number: n, Path: path}, nil
	}
	return nil, nil
}
