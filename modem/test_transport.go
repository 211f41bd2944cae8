package modem

import (
	"strings"
	"sync"
	"time"

	"i4.energy/across/sim868/at"
)

// TestClock is a virtual Clock for tests. Sleep advances the clock instead
// of blocking, so procedures with multi-second delays run instantly.
// Exported for use in tests.
type TestClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	slept time.Duration
}

// NewTestClock creates a TestClock at a fixed instant.
func NewTestClock() *TestClock {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &TestClock{start: t0, now: t0}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
		c.slept += d
	}
}

// Advance moves the clock forward without counting as a sleep.
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Elapsed is the virtual time passed since the clock was created.
func (c *TestClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// Slept is the total duration passed to Sleep.
func (c *TestClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}

type chunk struct {
	at   time.Time
	data []byte
}

type rule struct {
	calls int
	reply func(n int) (time.Duration, string)
}

// TestTransport is a scripted modem for tests. Every write is recorded.
// A write that matches a rule (the written text without its CRLF) queues
// the rule's reply, which becomes readable once the clock reaches its
// delay. Writes without a rule get no reply.
// Exported for use in tests.
type TestTransport struct {
	mu       sync.Mutex
	clock    Clock
	rules    map[string]*rule
	pending  []chunk
	writes   [][]byte
	writeErr error
	closed   bool
}

// NewTestTransport creates a TestTransport whose reply delays are measured
// on clock.
func NewTestTransport(clock Clock) *TestTransport {
	return &TestTransport{
		clock: clock,
		rules: make(map[string]*rule),
	}
}

// Respond answers successive writes of cmd with replies in order. The last
// reply repeats. An empty reply sends nothing.
func (t *TestTransport) Respond(cmd string, replies ...string) *TestTransport {
	return t.RespondFunc(cmd, func(n int) string {
		if len(replies) == 0 {
			return ""
		}
		return replies[min(n, len(replies))-1]
	})
}

// RespondAfter answers every write of cmd with reply, readable after delay.
func (t *TestTransport) RespondAfter(cmd string, delay time.Duration, reply string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules[cmd] = &rule{reply: func(int) (time.Duration, string) { return delay, reply }}
	return t
}

// RespondFunc answers the n-th write of cmd (starting at 1) with fn(n).
func (t *TestTransport) RespondFunc(cmd string, fn func(n int) string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules[cmd] = &rule{reply: func(n int) (time.Duration, string) { return 0, fn(n) }}
	return t
}

// Inject makes data readable immediately, as if the modem sent it
// unsolicited.
func (t *TestTransport) Inject(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, chunk{at: t.clock.Now(), data: append([]byte(nil), data...)})
}

// FailWrites makes every following write return err.
func (t *TestTransport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writeErr != nil {
		return 0, t.writeErr
	}
	t.writes = append(t.writes, append([]byte(nil), p...))

	r, ok := t.rules[strings.TrimSuffix(string(p), at.CRLF)]
	if !ok {
		return len(p), nil
	}
	r.calls++
	delay, reply := r.reply(r.calls)
	if reply != "" {
		t.pending = append(t.pending, chunk{at: t.clock.Now().Add(delay), data: []byte(reply)})
	}
	return len(p), nil
}

// Buffered counts the bytes whose delay has passed. Replies are released in
// the order they were queued.
func (t *TestTransport) Buffered() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	n := 0
	for _, c := range t.pending {
		if c.at.After(now) {
			break
		}
		n += len(c.data)
	}
	return n, nil
}

func (t *TestTransport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for len(t.pending) > 0 && len(t.pending[0].data) == 0 {
		t.pending = t.pending[1:]
	}
	if len(t.pending) == 0 || t.pending[0].at.After(t.clock.Now()) {
		return 0, ErrNoData
	}
	b := t.pending[0].data[0]
	t.pending[0].data = t.pending[0].data[1:]
	return b, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Closed reports whether Close was called.
func (t *TestTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Writes returns every successful write in order.
func (t *TestTransport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.writes...)
}

// Commands returns the CRLF-terminated writes without their terminator.
func (t *TestTransport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var cmds []string
	for _, w := range t.writes {
		if s, ok := strings.CutSuffix(string(w), at.CRLF); ok {
			cmds = append(cmds, s)
		}
	}
	return cmds
}

// Payloads returns the writes that were not command lines.
func (t *TestTransport) Payloads() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out [][]byte
	for _, w := range t.writes {
		if !strings.HasSuffix(string(w), at.CRLF) {
			out = append(out, w)
		}
	}
	return out
}

// Count returns how many times cmd was written as a command line.
func (t *TestTransport) Count(cmd string) int {
	n := 0
	for _, c := range t.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}
