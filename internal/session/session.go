// Package session aggregates accepted insertions into mascot reactions.
//
// Insertions arriving within the settle window are folded into one reaction
// whose quote depends on the total number of lines accepted. Clicking the
// mascot shows a click quote and mutes accepted-code reactions for a while.
package session

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phobologic/jimbo/internal/model"
	"github.com/phobologic/jimbo/internal/quotes"
)

const (
	DefaultSettle    = 3 * time.Second
	DefaultClickHold = 4 * time.Second
)

// Options configures a Session. Zero values take defaults.
type Options struct {
	Catalog   *quotes.Catalog
	Settle    time.Duration
	ClickHold time.Duration
	Picker    quotes.Picker
	// Sink receives every reaction. It is called without the session lock
	// held, from a timer goroutine or from Click.
	Sink   func(model.Reaction)
	Logger *zap.Logger
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Session is safe for concurrent use.
type Session struct {
	opts Options

	mu         sync.Mutex
	totalLines int
	gist       string
	settle     *time.Timer
	settleGen  uint64
	clicking   bool
	clickTimer *time.Timer
	clickGen   uint64
	closed     bool
}

// New creates a Session.
func New(opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = quotes.Default()
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.ClickHold <= 0 {
		opts.ClickHold = DefaultClickHold
	}
	if opts.Picker == nil {
		opts.Picker = globalRand{}
	}
	if opts.Sink == nil {
		opts.Sink = func(model.Reaction) {}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{opts: opts}
}

// Accept records an accepted insertion and restarts the settle window. It
// reports false when the insertion was dropped because a click quote is
// showing or the session is closed.
func (s *Session) Accept(gist string, lines int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.clicking {
		return false
	}
	if gist == "" {
		gist = "some mysterious code"
	}
	s.totalLines += lines
	s.gist = gist

	if s.settle != nil {
		s.settle.Stop()
	}
	s.settleGen++
	gen := s.settleGen
	s.settle = time.AfterFunc(s.opts.Settle, func() { s.fire(gen) })
	return true
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.settleGen {
		s.mu.Unlock()
		return
	}
	s.settle = nil
	if s.clicking {
		// Totals carry over to the next accepted insertion.
		s.mu.Unlock()
		s.opts.Logger.Debug("reaction suppressed by click quote")
		return
	}

	quote, mood := s.opts.Catalog.ForAccepted(s.totalLines, s.opts.Picker)
	r := model.Reaction{
		ID:    uuid.NewString(),
		Kind:  model.Accepted,
		Mood:  mood,
		Quote: quote,
		Gist:  s.gist,
		Lines: s.totalLines,
		Text:  quote + "\n\nSummary: " + s.gist,
		At:    time.Now(),
	}
	s.totalLines = 0
	s.gist = ""
	s.mu.Unlock()

	s.opts.Logger.Debug("reaction",
		zap.String("mood", string(r.Mood)),
		zap.Int("lines", r.Lines))
	s.opts.Sink(r)
}

// Click shows a click quote, muting accepted insertions for ClickHold.
func (s *Session) Click() model.Reaction {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Reaction{}
	}
	quote := s.opts.Catalog.ForClick(s.opts.Picker)
	s.clicking = true
	if s.clickTimer != nil {
		s.clickTimer.Stop()
	}
	s.clickGen++
	gen := s.clickGen
	s.clickTimer = time.AfterFunc(s.opts.ClickHold, func() { s.release(gen) })
	s.mu.Unlock()

	r := model.Reaction{
		ID:    uuid.NewString(),
		Kind:  model.Click,
		Mood:  model.Wisdom,
		Quote: quote,
		Text:  quote,
		At:    time.Now(),
	}
	s.opts.Sink(r)
	return r
}

func (s *Session) release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.clickGen {
		s.clicking = false
		s.clickTimer = nil
	}
}

// SetCatalog replaces the quote catalog used by later reactions. A nil
// catalog restores the built-in quotes.
func (s *Session) SetCatalog(c *quotes.Catalog) {
	if c == nil {
		c = quotes.Default()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Catalog = c
}

// Pending returns the lines accepted since the last reaction.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLines
}

// Close stops all timers. Later calls are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
	if s.clickTimer != nil {
		s.clickTimer.Stop()
		s.clickTimer = nil
	}
}
