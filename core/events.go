package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type EventKind int

const (
	DocumentCreated EventKind = iota
	DocumentUpdated
	DocumentDeleted
	DocumentCopied    // Document is the copy, Source is the original
	DocumentMoved     // Document is at its new location, From is the old location
	DocumentPublished // Document is the published copy
)

func (k EventKind) String() string {
	switch k {
	case DocumentCreated:
		return "created"
	case DocumentUpdated:
		return "updated"
	case DocumentDeleted:
		return "deleted"
	case DocumentCopied:
		return "copied"
	case DocumentMoved:
		return "moved"
	case DocumentPublished:
		return "published"
	}
	return "unknown"
}

type Event struct {
	ID       string
	Kind     EventKind
	User     DBUser // can be nil
	Document *Document
	Source   *Document // DocumentCopied only
	From     Ref       // DocumentMoved only
}

type Handler func(ctx context.Context, ev *Event) error

// Bus dispatches events synchronously to its subscribers, in order of subscription.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventKind][]Handler),
	}
}

func (b *Bus) Subscribe(kind EventKind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Emit calls all handlers of the event kind. It stops at the first error.
func (b *Bus) Emit(ctx context.Context, ev *Event) error {

	if b == nil {
		return nil
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	b.mu.RLock()
	var handlers = b.handlers[ev.Kind]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
