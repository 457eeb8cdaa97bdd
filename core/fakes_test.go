package orchestration

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-debate/core/audio"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if timer.fired || timer.stopped {
			return false
		}
		timer.stopped = true
		return true
	}
}

// Advance moves time forward, firing due timers in order. Timers scheduled
// by fired callbacks fire too when they fall inside the advanced span.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func (c *fakeClock) nextDue(target time.Time) *fakeTimer {
	pending := make([]*fakeTimer, 0, len(c.timers))
	for _, timer := range c.timers {
		if !timer.fired && !timer.stopped && !timer.at.After(target) {
			pending = append(pending, timer)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].at.Before(pending[j].at) })
	return pending[0]
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.fired && !timer.stopped {
			count++
		}
	}
	return count
}

func inlineSpawner(work func()) { work() }

type fakePlayer struct {
	mu      sync.Mutex
	loads   []string
	clips   []*fakeClip
	loadErr error
	playErr error
}

func (p *fakePlayer) Load(_ context.Context, url string) (audio.Clip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loads = append(p.loads, url)
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	clip := &fakeClip{url: url, playErr: p.playErr}
	p.clips = append(p.clips, clip)
	return clip, nil
}

func (p *fakePlayer) loadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loads)
}

func (p *fakePlayer) lastClip(t *testing.T) *fakeClip {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.clips) == 0 {
		t.Fatalf("expected a loaded clip, got none")
	}
	return p.clips[len(p.clips)-1]
}

type fakeClip struct {
	mu      sync.Mutex
	url     string
	playErr error
	plays   int
	stops   int
	onEnded func()
	onError func(error)
}

func (c *fakeClip) Play(onEnded func(), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays++
	if c.playErr != nil {
		return c.playErr
	}
	c.onEnded = onEnded
	c.onError = onError
	return nil
}

func (c *fakeClip) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *fakeClip) end() {
	c.mu.Lock()
	onEnded := c.onEnded
	c.mu.Unlock()
	if onEnded != nil {
		onEnded()
	}
}

func (c *fakeClip) fail(err error) {
	c.mu.Lock()
	onError := c.onError
	c.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

func (c *fakeClip) counts() (plays, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays, c.stops
}

type fakeResults struct {
	mu      sync.Mutex
	clock   *fakeClock
	errs    []error
	results debate.Results
	calls   []time.Time
}

func (f *fakeResults) FetchResults(_ context.Context, _ string) (debate.Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attempt := len(f.calls)
	f.calls = append(f.calls, f.clock.Now())
	if attempt < len(f.errs) && f.errs[attempt] != nil {
		return debate.Results{}, f.errs[attempt]
	}
	return f.results, nil
}

func (f *fakeResults) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, event := range r.events {
		if event.Kind() == kind {
			count++
		}
	}
	return count
}

func (r *eventRecorder) revealed() []debate.TurnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []debate.TurnID
	for _, event := range r.events {
		if revealed, ok := event.(events.TurnRevealed); ok {
			ids = append(ids, revealed.ID)
		}
	}
	return ids
}

func (r *eventRecorder) played() []events.TurnPlayed {
	r.mu.Lock()
	defer r.mu.Unlock()
	var played []events.TurnPlayed
	for _, event := range r.events {
		if turnPlayed, ok := event.(events.TurnPlayed); ok {
			played = append(played, turnPlayed)
		}
	}
	return played
}

type testSession struct {
	*Session
	clock    *fakeClock
	player   *fakePlayer
	results  *fakeResults
	recorder *eventRecorder
}

func newTestSession(t *testing.T, timing Timing, opts ...SessionOption) *testSession {
	t.Helper()

	clock := newFakeClock()
	player := &fakePlayer{}
	results := &fakeResults{clock: clock, results: debate.Results{Overall: "summary"}}
	recorder := &eventRecorder{}

	sessionOptions := SessionOptions{onEvent: recorder.record}
	for _, opt := range opts {
		opt(&sessionOptions)
	}
	if sessionOptions.onEvent == nil {
		sessionOptions.onEvent = recorder.record
	}

	session := newSession(context.Background(), SessionInfo{SessionID: "debate-1"}, sessionConfig{
		clock:        clock,
		spawn:        inlineSpawner,
		timing:       timing,
		player:       player,
		results:      results,
		audioBaseURL: "http://audio.test/clips/",
	}, newCallbackEventEmitter(sessionOptions))
	t.Cleanup(session.Close)

	return &testSession{Session: session, clock: clock, player: player, results: results, recorder: recorder}
}

func silentTurn(speaker string, round int) debate.Turn {
	return debate.Turn{SpeakerID: speaker, SpeakerName: speaker, Round: round, Text: speaker + " speaks"}
}

func voicedTurn(speaker string, round int) debate.Turn {
	turn := silentTurn(speaker, round)
	turn.VoiceClip = speaker + "-r1.mp3"
	return turn
}

func (s *testSession) receive(turns ...debate.Turn) {
	for _, turn := range turns {
		s.Handle(events.NewTurnReceived(turn))
	}
}

func (s *testSession) turnView(t *testing.T, arrivalIndex int) TurnView {
	t.Helper()
	turns := s.Snapshot().Turns
	if arrivalIndex >= len(turns) {
		t.Fatalf("expected turn %d to exist, got %d turns", arrivalIndex, len(turns))
	}
	return turns[arrivalIndex]
}

func isDone(session *Session) bool {
	select {
	case <-session.Done():
		return true
	default:
		return false
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}
