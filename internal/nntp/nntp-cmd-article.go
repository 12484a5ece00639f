package nntp

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-while/go-lornews/internal/models"
	"github.com/go-while/go-lornews/internal/spool"
)

// ArticleRetrievalType selects what ARTICLE/HEAD/BODY/STAT send.
type ArticleRetrievalType int

const (
	RetrievalArticle ArticleRetrievalType = iota // headers + body
	RetrievalHead                                // headers only
	RetrievalBody                                // body only
	RetrievalStat                                // status line only
)

var retrievalCodes = map[ArticleRetrievalType]int{
	RetrievalArticle: 220,
	RetrievalHead:    221,
	RetrievalBody:    222,
	RetrievalStat:    223,
}

// retrieveArticleCommon handles the shared logic of ARTICLE, HEAD, BODY
// and STAT: resolve the target to a file, then send the selected part.
func (c *ClientConnection) retrieveArticleCommon(args []string, retrievalType ArticleRetrievalType) error {
	if len(args) > 1 {
		return c.badSyntax()
	}

	var (
		number int64
		data   []byte
	)

	switch {
	case len(args) == 1 && strings.HasPrefix(args[0], "<"):
		// Message-id lookup works without a selected group and across all
		// groups. The reported number is 0 unless the hit is in the
		// currently selected group.
		loc, err := spool.LookupByMessageID(c.server.Cfg, c.server.Catalog, args[0])
		if err != nil {
			return c.sendResponse(430, "No article with that message-id")
		}
		if c.currentGroup != nil && loc.Group == c.currentGroup.Name {
			number = loc.Number
		}
		if data, err = os.ReadFile(loc.Path); err != nil {
			return c.sendResponse(430, "No article with that message-id")
		}

	case len(args) == 1:
		if c.currentGroup == nil {
			return c.sendResponse(412, "No newsgroup selected")
		}
		n, err := parseNumber(args[0])
		if err != nil {
			return c.badSyntax()
		}
		if data, err = c.readByNumber(n); err != nil {
			return c.sendResponse(423, "No article with that number")
		}
		number = n
		c.currentNumber = n

	default:
		if c.currentGroup == nil {
			return c.sendResponse(412, "No newsgroup selected")
		}
		if c.currentNumber == 0 {
			return c.sendResponse(420, "Current article number is invalid")
		}
		var err error
		if data, err = c.readByNumber(c.currentNumber); err != nil {
			return c.sendResponse(420, "Current article number is invalid")
		}
		number = c.currentNumber
	}

	head, body := models.SplitArticle(data)
	msgid := models.HeaderValue(head, "Message-ID")
	status := fmt.Sprintf("%d %s", number, msgid)

	switch retrievalType {
	case RetrievalStat:
		return c.sendResponse(retrievalCodes[retrievalType], status)
	case RetrievalHead:
		return c.sendMultiline(retrievalCodes[retrievalType], status, head)
	case RetrievalBody:
		return c.sendMultiline(retrievalCodes[retrievalType], status, body)
	default:
		lines := make([]string, 0, len(head)+1+len(body))
		lines = append(lines, head...)
		lines = append(lines, "")
		lines = append(lines, body...)
		return c.sendMultiline(retrievalCodes[retrievalType], status, lines)
	}
}

// readByNumber loads the article file for a live number in the current
// group.
func (c *ClientConnection) readByNumber(n int64) ([]byte, error) {
	idx, err := c.server.openGroup(c.currentGroup.Name)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, spool.ErrNotFound
	}
	defer idx.Close()
	return idx.ReadArticle(n)
}
