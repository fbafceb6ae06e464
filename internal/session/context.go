// Package session keeps per-conversation state: history, the last result
// list, the clarification counter and the dialogue state.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

// State is the dialogue state of a session.
type State string

const (
	StateGreeting       State = "GREETING"
	StateProductSearch  State = "PRODUCT_SEARCH"
	StateProductDetails State = "PRODUCT_DETAILS"
	StateClarification  State = "CLARIFICATION"
	StateGoodbye        State = "GOODBYE"
)

const (
	// MaxHistory is the number of turns kept per session.
	MaxHistory = 10
	// MaxClarificationAttempts caps the consecutive unclear counter.
	MaxClarificationAttempts = 3
)

// Turn is one entry of the session history.
type Turn struct {
	Message     string       `json:"message"`
	Intent      model.Intent `json:"intent"`
	Timestamp   time.Time    `json:"timestamp"`
	ResultCount int          `json:"result_count"`
}

// Context is the state of a single session. Callers hold the lock for the
// whole chat turn; none of the methods below lock on their own.
type Context struct {
	mu sync.Mutex

	ID                    string
	State                 State
	History               []Turn
	LastProducts          []model.Product
	LastQuery             string
	ClarificationAttempts int
	Preferences           map[string]string
	CreatedAt             time.Time

	seen atomic.Int64

	// RewriteDisabled is set once an LLM query rewrite ran over budget.
	RewriteDisabled bool

	now func() time.Time
}

func newContext(id string, now func() time.Time) *Context {
	t := now()
	c := &Context{
		ID:          id,
		State:       StateGreeting,
		Preferences: make(map[string]string),
		CreatedAt:   t,
		now:         now,
	}
	c.touch(t)
	return c
}

// LastSeen returns the time of the last message. Safe without the lock.
func (c *Context) LastSeen() time.Time {
	return time.Unix(0, c.seen.Load())
}

func (c *Context) touch(t time.Time) {
	c.seen.Store(t.UnixNano())
}

// Lock serializes chat turns of the session.
func (c *Context) Lock() { c.mu.Lock() }

// Unlock releases the session.
func (c *Context) Unlock() { c.mu.Unlock() }

// HistoryLen returns the number of recorded turns.
func (c *Context) HistoryLen() int { return len(c.History) }

// HasLastProducts reports whether a previous search returned products.
func (c *Context) HasLastProducts() bool { return len(c.LastProducts) > 0 }

// RecentMessages returns up to n of the most recent user messages, oldest first.
func (c *Context) RecentMessages(n int) []string {
	start := len(c.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(c.History)-start)
	for _, t := range c.History[start:] {
		out = append(out, t.Message)
	}
	return out
}

// Update records a completed turn and moves the dialogue state. It runs after
// the reply has been composed.
func (c *Context) Update(msg string, intent model.Intent, products []model.Product) {
	c.History = append(c.History, Turn{
		Message:     msg,
		Intent:      intent,
		Timestamp:   c.now(),
		ResultCount: len(products),
	})
	if len(c.History) > MaxHistory {
		c.History = append([]Turn(nil), c.History[len(c.History)-MaxHistory:]...)
	}

	switch {
	case intent == model.IntentGreeting:
		c.State = StateGreeting
	case intent.IsProductIntent():
		c.State = StateProductSearch
		if len(products) > 0 {
			c.LastProducts = products
			c.LastQuery = msg
		}
	case intent == model.IntentFollowUp:
		c.State = StateProductDetails
	case intent == model.IntentGoodbye, intent == model.IntentThanks:
		c.State = StateGoodbye
	}

	if intent == model.IntentUnclear || intent == model.IntentClarificationNeeded {
		if c.ClarificationAttempts < MaxClarificationAttempts {
			c.ClarificationAttempts++
		}
		if c.ClarificationAttempts >= MaxClarificationAttempts {
			c.State = StateClarification
		}
		return
	}
	if intent != model.IntentError {
		c.ClarificationAttempts = 0
	}
}

// Reset clears the conversation but keeps the session id.
func (c *Context) Reset() {
	c.State = StateGreeting
	c.History = nil
	c.LastProducts = nil
	c.LastQuery = ""
	c.ClarificationAttempts = 0
	c.Preferences = make(map[string]string)
	c.RewriteDisabled = false
}

// Snapshot is a read-only view of a session for diagnostics.
type Snapshot struct {
	ID                    string    `json:"session_id"`
	State                 State     `json:"state"`
	History               []Turn    `json:"history"`
	LastQuery             string    `json:"last_query,omitempty"`
	LastProducts          int       `json:"last_products"`
	ClarificationAttempts int       `json:"clarification_attempts"`
	CreatedAt             time.Time `json:"created_at"`
	LastSeen              time.Time `json:"last_seen"`
}

// Snapshot copies the session state.
func (c *Context) Snapshot() Snapshot {
	return Snapshot{
		ID:                    c.ID,
		State:                 c.State,
		History:               append([]Turn(nil), c.History...),
		LastQuery:             c.LastQuery,
		LastProducts:          len(c.LastProducts),
		ClarificationAttempts: c.ClarificationAttempts,
		CreatedAt:             c.CreatedAt,
		LastSeen:              c.LastSeen(),
	}
}
