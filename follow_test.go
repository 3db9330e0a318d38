package forma

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/clockz"
)

func profileConfig() Config {
	return Config{
		"name": NewField("", Use(MinLength(1, "Name is required"))),
		"age":  NewField(0),
	}
}

func TestFollow_AppliesInitialValues(t *testing.T) {
	ctx := context.Background()
	ch := make(chan []byte, 1)
	s := MustNew(profileConfig()).SyncMode()

	ch <- []byte(`{"name": "Ada", "age": 36}`)
	if err := s.Follow(ctx, NewSyncChannelWatcher(ch)); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	snap := s.Current()
	if diff := cmp.Diff(Values{"name": "Ada", "age": 36}, snap.Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
	if snap.Phase() != PhasePristine {
		t.Errorf("expected pristine after follow, got %s", snap.Phase())
	}
	if diff := cmp.Diff(Values{"name": "Ada", "age": 36}, s.ResetTarget()); diff != "" {
		t.Errorf("reset target mismatch (-want +got):\n%s", diff)
	}
}

func TestFollow_MissingKeysKeepTarget(t *testing.T) {
	ctx := context.Background()
	ch := make(chan []byte, 1)
	s := MustNew(Config{
		"name": NewField("initial"),
		"age":  NewField(3),
	}).SyncMode()

	ch <- []byte(`{"age": 4}`)
	if err := s.Follow(ctx, NewSyncChannelWatcher(ch)); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	if diff := cmp.Diff(Values{"name": "initial", "age": 4}, s.Current().Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestFollow_DirtyFormOnlyRebindsTarget(t *testing.T) {
	ctx := context.Background()
	ch := make(chan []byte, 2)
	s := MustNew(profileConfig()).SyncMode()

	ch <- []byte(`{"name": "Ada", "age": 36}`)
	if err := s.Follow(ctx, NewSyncChannelWatcher(ch)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetValue("name", "Grace"); err != nil {
		t.Fatal(err)
	}

	ch <- []byte(`{"name": "Ada Lovelace", "age": 37}`)
	if !s.Process(ctx) {
		t.Fatal("expected Process to apply a payload")
	}

	snap := s.Current()
	if snap.Value["name"] != "Grace" || !snap.Dirty {
		t.Errorf("edits were clobbered: %+v", snap.Value)
	}

	s.Reset()
	if diff := cmp.Diff(Values{"name": "Ada Lovelace", "age": 37}, s.Current().Value); diff != "" {
		t.Errorf("reset did not restore followed values (-want +got):\n%s", diff)
	}
}

func TestFollow_InvalidPayload(t *testing.T) {
	ctx := context.Background()
	ch := make(chan []byte, 3)
	s := MustNew(profileConfig()).SyncMode().FailureHistorySize(2)

	ch <- []byte(`{"name": "Ada", "age": 36}`)
	if err := s.Follow(ctx, NewSyncChannelWatcher(ch)); err != nil {
		t.Fatal(err)
	}

	ch <- []byte(`{"unknown": true}`)
	s.Process(ctx)
	if !errors.Is(s.LastError(), ErrKeyMismatch) {
		t.Errorf("expected ErrKeyMismatch, got %v", s.LastError())
	}

	ch <- []byte(`{"age": "old"}`)
	s.Process(ctx)
	if !errors.Is(s.LastError(), ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", s.LastError())
	}

	if got := len(s.FailureHistory()); got != 2 {
		t.Errorf("expected 2 failures in history, got %d", got)
	}
	if diff := cmp.Diff(Values{"name": "Ada", "age": 36}, s.Current().Value); diff != "" {
		t.Errorf("invalid payloads must not change values (-want +got):\n%s", diff)
	}
}

func TestFollow_InitialError(t *testing.T) {
	ch := make(chan []byte, 1)
	s := MustNew(profileConfig()).SyncMode()

	ch <- []byte(`{not json}`)
	if err := s.Follow(context.Background(), NewSyncChannelWatcher(ch)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if s.LastError() == nil {
		t.Error("expected LastError to be set")
	}
}

func TestFollow_YAMLCodec(t *testing.T) {
	ch := make(chan []byte, 1)
	s := MustNew(profileConfig()).Codec(YAMLCodec{}).SyncMode()

	ch <- []byte("name: Ada\nage: 36\n")
	if err := s.Follow(context.Background(), NewSyncChannelWatcher(ch)); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if diff := cmp.Diff(Values{"name": "Ada", "age": 36}, s.Current().Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestFollow_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	ch := make(chan []byte, 1)
	s := MustNew(profileConfig()).SyncMode()

	ch <- []byte(`{}`)
	if err := s.Follow(ctx, NewSyncChannelWatcher(ch)); err != nil {
		t.Fatal(err)
	}
	if err := s.Follow(ctx, NewSyncChannelWatcher(ch)); !errors.Is(err, ErrFollowing) {
		t.Errorf("expected ErrFollowing, got %v", err)
	}
}

func TestFollow_ClosedBeforeInitial(t *testing.T) {
	ch := make(chan []byte)
	close(ch)
	s := MustNew(profileConfig())

	if err := s.Follow(context.Background(), NewChannelWatcher(ch)); !errors.Is(err, ErrWatcherClosed) {
		t.Fatalf("expected ErrWatcherClosed, got %v", err)
	}
	// The store can follow again after a failed start.
	ch2 := make(chan []byte, 1)
	ch2 <- []byte(`{}`)
	if err := s.SyncMode().Follow(context.Background(), NewSyncChannelWatcher(ch2)); err != nil {
		t.Errorf("expected second Follow to succeed, got %v", err)
	}
}

func TestFollow_ProcessOutsideSyncMode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan []byte, 1)
	ch <- []byte(`{}`)
	s := MustNew(profileConfig())

	if err := s.Follow(ctx, NewChannelWatcher(ch)); err != nil {
		t.Fatal(err)
	}
	if s.Process(ctx) {
		t.Error("expected Process to return false when not in sync mode")
	}
}

func TestFollow_Debounce_CoalescesRapidChanges(t *testing.T) {
	clock := clockz.NewFakeClock()
	ch := make(chan []byte, 10)
	ch <- []byte(`{"age": 1}`)

	var applied atomic.Int32
	s := MustNew(profileConfig()).Debounce(100 * time.Millisecond).Clock(clock)
	s.Subscribe(func(Snapshot) { applied.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Follow(ctx, NewChannelWatcher(ch)); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if applied.Load() != 1 {
		t.Errorf("expected 1 apply after start, got %d", applied.Load())
	}

	ch <- []byte(`{"age": 2}`)
	ch <- []byte(`{"age": 3}`)
	ch <- []byte(`{"age": 4}`)

	time.Sleep(10 * time.Millisecond)
	if applied.Load() != 1 {
		t.Errorf("expected still 1 apply (debouncing), got %d", applied.Load())
	}

	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if applied.Load() != 2 {
		t.Errorf("expected 2 applies after debounce, got %d", applied.Load())
	}
	if got := s.Current().Value["age"]; got != 4 {
		t.Errorf("expected latest age 4, got %v", got)
	}
}

func TestFollow_OnStop(t *testing.T) {
	ch := make(chan []byte, 1)
	ch <- []byte(`{}`)

	stopped := make(chan Phase, 1)
	s := MustNew(profileConfig()).OnStop(func(p Phase) { stopped <- p })

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Follow(ctx, NewChannelWatcher(ch)); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case p := <-stopped:
		if p != PhasePristine {
			t.Errorf("expected pristine at stop, got %s", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for OnStop")
	}
}

func TestFollow_FileWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.json")
	if err := os.WriteFile(path, []byte(`{"name": "Ada", "age": 36}`), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := MustNew(profileConfig()).Debounce(10 * time.Millisecond)
	if err := s.Follow(ctx, NewFileWatcher(path)); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if got := s.Current().Value["name"]; got != "Ada" {
		t.Fatalf("expected initial name Ada, got %v", got)
	}

	if err := os.WriteFile(path, []byte(`{"name": "Grace", "age": 45}`), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.Current().Value["name"] == "Grace" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected followed name Grace, got %v", s.Current().Value["name"])
}

func TestFileWatcher_NonexistentFile(t *testing.T) {
	w := NewFileWatcher("/nonexistent/path/draft.json")
	if _, err := w.Watch(context.Background()); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
