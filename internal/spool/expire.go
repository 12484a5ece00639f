package spool

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Expire deletes articles older than days*24h, walking numbers from min
// upward and stopping at the first live article newer than the threshold.
// days == 0 expires everything. Returns the number of deleted articles.
//
// min ends up one past the last deleted number even when that empties the
// group (min == max+1). Article numbers are never reassigned. File-removal
// failures are warnings, not fatal.
func (idx *GroupIndex) Expire(days int, now time.Time) (int64, error) {
	if idx.mode == ModeRead {
		return 0, fmt.Errorf("group %s: index opened read-only", idx.Dir)
	}
	unmask := maskInterrupt()
	defer unmask()

	threshold := now.Add(-time.Duration(days) * 24 * time.Hour)

	// Snapshot the key space before starting the write transaction: the
	// single SQLite connection is owned by the transaction once begun.
	all, err := idx.keys()
	if err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}

	var deleted int64
	newMin := idx.Max + 1
	topicCounts := make(map[int64]int64)
	var doomed []string

	for n := idx.Min; n <= idx.Max; n++ {
		key := strconv.FormatInt(n, 10)
		storePath, ok := all[key]
		if !ok {
			continue // hole left by an earlier expiry
		}
		if days != 0 {
			secs, err := strconv.ParseInt(all["+"+key], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("broken index %s: bad timestamp for %d", idx.Dir, n)
			}
			if !time.Unix(secs, 0).Before(threshold) {
				newMin = n
				break
			}
		}

		filePath := filepath.Join(idx.Dir, filepath.FromSlash(storePath))
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			log.Printf("expire %s: cannot remove %s: %v", idx.Group, filePath, err)
		}
		doomed = append(doomed, key, "+"+key, ":"+key)

		topic, _, perr := splitStorePath(storePath)
		if perr != nil {
			return 0, fmt.Errorf("broken index %s: %v", idx.Dir, perr)
		}
		if _, seen := topicCounts[topic]; !seen {
			cnt, err := strconv.ParseInt(all[strconv.FormatInt(topic, 10)+"/"], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("broken index %s: stale counter for topic %d", idx.Dir, topic)
			}
			topicCounts[topic] = cnt
		}
		topicCounts[topic]--
		deleted++
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	defer tx.Rollback()

	for _, k := range doomed {
		if err := txDel(tx, k); err != nil {
			return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
		}
	}

	for topic, cnt := range topicCounts {
		topicKey := strconv.FormatInt(topic, 10) + "/"
		if cnt < 0 {
			return 0, fmt.Errorf("broken index %s: stale counter for topic %d", idx.Dir, topic)
		}
		if cnt == 0 {
			if err := txDel(tx, topicKey); err != nil {
				return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
			}
			topicDir := filepath.Join(idx.Dir, strconv.FormatInt(topic, 10))
			if err := os.Remove(topicDir); err != nil && !os.IsNotExist(err) {
				log.Printf("expire %s: cannot remove %s: %v", idx.Group, topicDir, err)
			}
		} else {
			if err := txSet(tx, topicKey, strconv.FormatInt(cnt, 10)); err != nil {
				return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
			}
		}
	}

	if err := txSet(tx, "min", strconv.FormatInt(newMin, 10)); err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	if err := txSet(tx, "count", strconv.FormatInt(idx.Count-deleted, 10)); err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}

	idx.Min = newMin
	idx.Count -= deleted
	return deleted, nil
}

// splitStorePath splits a "{TOPIC}/{COMMENT}" index value.
func splitStorePath(v string) (topic, comment int64, err error) {
	var t, c string
	for i := 0; i < len(v); i++ {
		if v[i] == '/' {
			t, c = v[:i], v[i+1:]
			break
		}
	}
	if t == "" || c == "" {
		return 0, 0, fmt.Errorf("bad store path %q", v)
	}
	if topic, err = strconv.ParseInt(t, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("bad store path %q", v)
	}
	if comment, err = strconv.ParseInt(c, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("bad store path %q", v)
	}
	return topic, comment, nil
}
