package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fetcherStub struct {
	data []byte
	err  error
	urls []string
}

func (f *fetcherStub) FetchClip(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

func TestSilentPlayerEndsAfterClipDuration(t *testing.T) {
	// 20ms of 24kHz mono audio.
	fetcher := &fetcherStub{data: buildWAV(t, pcm16Format(24000, 1), wavChunk{id: "data", body: make([]byte, 960)})}
	player := NewSilentPlayer(fetcher)

	clip, err := player.Load(context.Background(), "http://audio.test/a.wav")
	if err != nil {
		t.Fatalf("expected clip to load, got %v", err)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "http://audio.test/a.wav" {
		t.Fatalf("expected clip to be fetched, got %v", fetcher.urls)
	}

	ended := make(chan struct{})
	if err := clip.Play(func() { close(ended) }, func(err error) { t.Errorf("unexpected clip error: %v", err) }); err != nil {
		t.Fatalf("expected clip to play, got %v", err)
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for clip to end")
	}
}

func TestSilentClipStopDetachesCallback(t *testing.T) {
	fetcher := &fetcherStub{data: buildWAV(t, pcm16Format(24000, 1), wavChunk{id: "data", body: make([]byte, 4800)})}
	clip, err := NewSilentPlayer(fetcher).Load(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("expected clip to load, got %v", err)
	}

	ended := make(chan struct{}, 1)
	if err := clip.Play(func() { ended <- struct{}{} }, nil); err != nil {
		t.Fatalf("expected clip to play, got %v", err)
	}
	clip.Stop()
	clip.Stop()

	select {
	case <-ended:
		t.Fatalf("expected stopped clip not to end")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSilentPlayerReportsFetchErrors(t *testing.T) {
	fetchErr := errors.New("404")
	_, err := NewSilentPlayer(&fetcherStub{err: fetchErr}).Load(context.Background(), "a.wav")
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}
