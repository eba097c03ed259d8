package permission

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/dirgate/dirgate/internal/event"
	"github.com/dirgate/dirgate/internal/logging"
	"github.com/dirgate/dirgate/pkg/types"
)

// MaxQueue bounds the number of pending prompts. Submissions beyond the
// bound resolve immediately to deny, protecting the UI from runaway
// permission storms (e.g. a misbehaving bulk operation).
const MaxQueue = 32

// promptEntry is one queued prompt. Identical concurrent submissions share
// a single entry, each holding its own waiter channel; resolving the entry
// signals every waiter with the same decision.
type promptEntry struct {
	id        string
	key       string
	input     PromptInput
	createdAt time.Time
	timer     *time.Timer
	waiters   []chan types.Decision
}

// Queue is the process-wide ordered queue of pending user decisions. Only
// the head entry is ever presented; entries behind the head still expire
// on their own wall-clock schedule.
type Queue struct {
	mu      sync.Mutex
	timeout time.Duration
	entries []*promptEntry
	log     zerolog.Logger
}

// NewQueue creates a Queue whose entries expire after timeout.
func NewQueue(timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = types.DefaultPromptTimeout
	}
	return &Queue{
		timeout: timeout,
		log:     logging.Component("promptqueue"),
	}
}

// Request submits a prompt and returns a channel that yields exactly one
// Decision. A live entry with the same dedup key absorbs the request as an
// extra waiter; a full queue resolves the request to deny without
// enqueueing it.
func (q *Queue) Request(input PromptInput) <-chan types.Decision {
	ch := make(chan types.Decision, 1)
	key := dedupKey(input)

	q.mu.Lock()
	for _, e := range q.entries {
		if e.key == key {
			e.waiters = append(e.waiters, ch)
			q.mu.Unlock()
			q.log.Debug().Str("prompt", e.id).Str("action", input.Action).Msg("deduplicated prompt request")
			return ch
		}
	}

	if len(q.entries) >= MaxQueue {
		q.mu.Unlock()
		q.log.Warn().Str("action", input.Action).Int("max", MaxQueue).Msg("prompt queue full, denying request")
		ch <- types.DecisionDeny
		return ch
	}

	e := &promptEntry{
		id:        ulid.Make().String(),
		key:       key,
		input:     input,
		createdAt: time.Now().UTC(),
		waiters:   []chan types.Decision{ch},
	}
	e.timer = time.AfterFunc(q.timeout, func() { q.expire(e.id) })
	q.entries = append(q.entries, e)

	becameHead := len(q.entries) == 1
	view := viewOf(e)
	queued := len(q.entries)
	q.mu.Unlock()

	event.Publish(event.Event{
		Type: event.PromptEnqueued,
		Data: event.PromptEnqueuedData{Prompt: view, Queued: queued},
	})
	if becameHead {
		event.Publish(event.Event{
			Type: event.PromptUpdated,
			Data: event.PromptUpdatedData{Current: view, Queued: queued},
		})
	}
	return ch
}

// ResolveCurrent resolves the head entry with the user's decision. Returns
// false when the queue is empty or the decision is unknown.
func (q *Queue) ResolveCurrent(decision types.Decision) bool {
	if !decision.Valid() {
		return false
	}

	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return false
	}
	e := q.entries[0]
	e.timer.Stop()
	q.entries = q.entries[1:]
	next := q.headViewLocked()
	queued := len(q.entries)
	q.mu.Unlock()

	for _, w := range e.waiters {
		w <- decision
	}

	event.Publish(event.Event{
		Type: event.PromptResolved,
		Data: event.PromptResolvedData{ID: e.id, Decision: decision, Reason: "user"},
	})
	event.Publish(event.Event{
		Type: event.PromptUpdated,
		Data: event.PromptUpdatedData{Current: next, Queued: queued},
	})
	return true
}

// expire resolves one entry to deny after its timer fires, wherever it
// sits in the queue.
func (q *Queue) expire(id string) {
	q.mu.Lock()
	idx := -1
	for i, e := range q.entries {
		if e.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Already resolved by another path.
		q.mu.Unlock()
		return
	}
	e := q.entries[idx]
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	wasHead := idx == 0
	next := q.headViewLocked()
	queued := len(q.entries)
	q.mu.Unlock()

	q.log.Info().Str("prompt", e.id).Str("action", e.input.Action).Msg("prompt expired without decision")

	for _, w := range e.waiters {
		w <- types.DecisionDeny
	}

	event.Publish(event.Event{
		Type: event.PromptResolved,
		Data: event.PromptResolvedData{ID: e.id, Decision: types.DecisionDeny, Reason: "timeout"},
	})
	if wasHead {
		event.Publish(event.Event{
			Type: event.PromptUpdated,
			Data: event.PromptUpdatedData{Current: next, Queued: queued},
		})
	}
}

// CancelAll resolves every queued entry to deny and empties the queue.
// Intended for when the presentation surface disappears, so no prompt is
// left silently open. Returns the number of cancelled entries.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	for _, e := range entries {
		e.timer.Stop()
		for _, w := range e.waiters {
			w <- types.DecisionDeny
		}
		event.Publish(event.Event{
			Type: event.PromptResolved,
			Data: event.PromptResolvedData{ID: e.id, Decision: types.DecisionDeny, Reason: "cancel"},
		})
	}

	if len(entries) > 0 {
		event.Publish(event.Event{
			Type: event.QueueCleared,
			Data: event.QueueClearedData{Cancelled: len(entries)},
		})
		event.Publish(event.Event{
			Type: event.PromptUpdated,
			Data: event.PromptUpdatedData{Current: nil, Queued: 0},
		})
	}
	return len(entries)
}

// Pending returns a read-only snapshot of the queue in FIFO order.
func (q *Queue) Pending() []event.PromptView {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]event.PromptView, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, *viewOf(e))
	}
	return out
}

// Current returns the head entry, or nil when the queue is empty.
func (q *Queue) Current() *event.PromptView {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.headViewLocked()
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) headViewLocked() *event.PromptView {
	if len(q.entries) == 0 {
		return nil
	}
	return viewOf(q.entries[0])
}

func viewOf(e *promptEntry) *event.PromptView {
	blocked := make([]types.BlockedItem, len(e.input.Blocked))
	copy(blocked, e.input.Blocked)
	return &event.PromptView{
		ID:             e.id,
		Action:         e.input.Action,
		Title:          e.input.Title,
		Kind:           string(e.input.Kind),
		Blocked:        blocked,
		AllowAlways:    e.input.AllowAlways,
		AllowExactPath: e.input.AllowExactPath,
		CreatedAt:      e.createdAt.Format(time.RFC3339Nano),
	}
}

// dedupKey derives the signature that merges identical concurrent prompt
// requests: action, title, the two always-allow flags, and a stable
// serialization of the blocked items.
func dedupKey(input PromptInput) string {
	items := make([]string, 0, len(input.Blocked))
	for _, b := range input.Blocked {
		items = append(items, fmt.Sprintf("%s|%s|%s|%s", b.Path, b.Capability, b.Mode, b.ScopePath))
	}
	sort.Strings(items)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%t\x00%t\x00%s",
		input.Action, input.Title, input.AllowAlways, input.AllowExactPath, strings.Join(items, "\x00"))
	return hex.EncodeToString(h.Sum(nil))
}
