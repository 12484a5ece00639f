package spool

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/go-while/go-lornews/internal/common"
	"github.com/go-while/go-lornews/internal/models"
)

// maskInterrupt blocks the interactive-interrupt signal for the duration of
// a write transaction so it cannot be torn between the article file write
// and the index update. The returned func restores default handling.
func maskInterrupt() func() {
	signal.Ignore(os.Interrupt)
	return func() { signal.Reset(os.Interrupt) }
}

// AppendArticle writes the article file and registers it in the index under
// the next article number, all inside the held group lock. Numbering is
// strictly monotone: max is incremented and never reused.
func (idx *GroupIndex) AppendArticle(a *models.Article) (int64, error) {
	if idx.mode == ModeRead {
		return 0, fmt.Errorf("group %s: index opened read-only", idx.Dir)
	}
	unmask := maskInterrupt()
	defer unmask()

	data := a.Render()

	topicDir := filepath.Join(idx.Dir, strconv.FormatInt(a.Topic, 10))
	if err := os.MkdirAll(topicDir, 0o700); err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	filePath := filepath.Join(topicDir, strconv.FormatInt(a.Comment, 10))
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}

	n := idx.Max + 1
	overview := models.OverviewFromFile(data, common.EncodeHeaderValue)
	topicKey := strconv.FormatInt(a.Topic, 10) + "/"

	topicCount := idx.TopicCount(a.Topic)

	tx, err := idx.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	defer tx.Rollback()

	steps := map[string]string{
		"max":   strconv.FormatInt(n, 10),
		"count": strconv.FormatInt(idx.Count+1, 10),
		strconv.FormatInt(n, 10): a.StorePath(),
		"+" + strconv.FormatInt(n, 10): strconv.FormatInt(a.Injected.Unix(), 10),
		":" + strconv.FormatInt(n, 10): overview.Marshal(),
		topicKey:                       strconv.FormatInt(topicCount+1, 10),
	}
	for k, v := range steps {
		if err := txSet(tx, k, v); err != nil {
			return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("group %s: %w", idx.Dir, err)
	}

	idx.Max = n
	idx.Count++
	// min needs no adjustment: an empty group already has min == max+1,
	// which is exactly the number just assigned.
	return n, nil
}

// ArticleFile returns the file path of a live article number.
func (idx *GroupIndex) ArticleFile(n int64) (string, error) {
	v, ok, err := idx.get(strconv.FormatInt(n, 10))
	if err != nil {
		return "", fmt.Errorf("group %s: %w", idx.Dir, err)
	}
	if !ok {
		return "", ErrNotFound
	}
	return filepath.Join(idx.Dir, filepath.FromSlash(v)), nil
}

// ReadArticle loads the on-disk bytes of a live article number.
func (idx *GroupIndex) ReadArticle(n int64) ([]byte, error) {
	path, err := idx.ArticleFile(n)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("group %s: article %d: %w", idx.Dir, n, err)
	}
	return data, nil
}
