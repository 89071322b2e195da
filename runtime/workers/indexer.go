package workers

import (
	"context"
	"log/slog"

	"group-chat/domain/event"
	"group-chat/search"
)

// IndexWorker drains posted-message events into the search index. It sits
// behind a buffered channel the send pipeline writes to without blocking:
// if the channel fills up, events are dropped upstream and the index
// simply misses them.
type IndexWorker struct {
	log    *slog.Logger
	events <-chan event.DomainEvent
	index  *search.Index
}

func NewIndexWorker(log *slog.Logger, events <-chan event.DomainEvent, index *search.Index) *IndexWorker {
	return &IndexWorker{log: log, events: events, index: index}
}

func (w *IndexWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping index worker")
			return nil
		case e, ok := <-w.events:
			if !ok {
				return nil
			}
			posted, isPosted := e.(event.MessagePosted)
			if !isPosted {
				continue
			}
			if err := w.index.Add(posted.Message); err != nil {
				w.log.Error("failed to index message",
					"message_id", posted.Message.ID,
					"group_id", posted.Message.GroupID,
					"error", err)
			}
		}
	}
}
