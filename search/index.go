// Package search maintains a full-text index over message history. The
// index is a best-effort projection fed asynchronously by the index
// worker: it is never on the append path and losing an entry only degrades
// search results, never the durable log.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"

	"group-chat/domain"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Hit is one search result, rebuilt from the stored fields of the index.
type Hit struct {
	MessageID string  `json:"messageId"`
	GroupID   string  `json:"groupId"`
	AuthorID  string  `json:"authorId"`
	Text      string  `json:"text"`
	Language  string  `json:"language"`
	Score     float64 `json:"score"`
}

// Add indexes the text of a message together with its detected language.
// Messages without text (pure structured payloads) are skipped.
func (i *Index) Add(message domain.Message) error {
	if message.Payload.Text == "" {
		return nil
	}
	info := whatlanggo.Detect(message.Payload.Text)
	lang := whatlanggo.LangToString(info.Lang)

	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("text", message.Payload.Text).StoreValue()).
		AddField(bluge.NewKeywordField("group_id", string(message.GroupID)).StoreValue()).
		AddField(bluge.NewKeywordField("author_id", message.AuthorID).StoreValue()).
		AddField(bluge.NewKeywordField("language", lang).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.CreatedAt))

	return i.writer.Update(doc.ID(), doc)
}

// Search matches the query against message text, restricted to the given
// groups. The group restriction is a disjunction of term filters, so a
// caller can only ever see hits from logs it was allowed to name.
func (i *Index) Search(ctx context.Context, query string, groupIDs []domain.GroupID, limit int) ([]Hit, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	groupFilter := bluge.NewBooleanQuery().SetMinShould(1)
	for _, groupID := range groupIDs {
		groupFilter.AddShould(bluge.NewTermQuery(string(groupID)).SetField("group_id"))
	}
	fullQuery := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("text")).
		AddMust(groupFilter)

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader", "error", err)
		}
	}()

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, fullQuery))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	next, err := iterator.Next()
	for err == nil && next != nil {
		hit := Hit{Score: next.Score}
		visitErr := next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "group_id":
				hit.GroupID = string(value)
			case "author_id":
				hit.AuthorID = string(value)
			case "text":
				hit.Text = string(value)
			case "language":
				hit.Language = string(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		next, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
