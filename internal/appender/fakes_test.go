package appender

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akave-ai/appendlog/internal/storage"
)

var errInjected = errors.New("injected failure")

// faultyStore counts calls to a Memory store and fails on demand.
type faultyStore struct {
	*storage.Memory

	mu            sync.Mutex
	ensureCalls   int
	existsCalls   int
	createCalls   int
	appendCalls   int
	failExists    bool
	failCreate    bool
	failAppendAt  int // 1-based append call to fail; 0 never fails
	appendedNames []string

	// blocked, when set, makes AppendBlock announce itself on the channel
	// and hang until its context ends.
	blocked chan struct{}
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: storage.NewMemory()}
}

func (s *faultyStore) EnsureContainer(ctx context.Context, container string) error {
	s.mu.Lock()
	s.ensureCalls++
	s.mu.Unlock()
	return s.Memory.EnsureContainer(ctx, container)
}

func (s *faultyStore) Exists(ctx context.Context, container, blob string) (bool, error) {
	s.mu.Lock()
	s.existsCalls++
	fail := s.failExists
	s.mu.Unlock()
	if fail {
		return false, errInjected
	}
	return s.Memory.Exists(ctx, container, blob)
}

func (s *faultyStore) CreateEmpty(ctx context.Context, container, blob string) error {
	s.mu.Lock()
	s.createCalls++
	fail := s.failCreate
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	return s.Memory.CreateEmpty(ctx, container, blob)
}

func (s *faultyStore) AppendBlock(ctx context.Context, container, blob string, data []byte) error {
	s.mu.Lock()
	s.appendCalls++
	fail := s.failAppendAt > 0 && s.appendCalls == s.failAppendAt
	s.appendedNames = append(s.appendedNames, blob)
	blocked := s.blocked
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	if blocked != nil {
		select {
		case blocked <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}
	return s.Memory.AppendBlock(ctx, container, blob, data)
}

func (s *faultyStore) calls() (ensure, exists, create, appends int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureCalls, s.existsCalls, s.createCalls, s.appendCalls
}

func (s *faultyStore) lines(t *testing.T, container, blob string) []string {
	t.Helper()
	data, err := s.ReadBlob(context.Background(), container, blob)
	require.NoError(t, err)
	if len(data) == 0 {
		return nil
	}
	return strings.Split(string(data), "\n")
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
