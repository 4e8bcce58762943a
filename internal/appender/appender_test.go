package appender

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/appendlog/internal/config"
	"github.com/akave-ai/appendlog/internal/model"
)

func validConfig() config.AppenderConfig {
	return config.AppenderConfig{
		Backend:          "memory",
		ConnectionString: "memory",
		ContainerName:    "AppLogs",
		DirectoryName:    "logs",
		DatePattern:      "yyyy_MM_dd",
		FileNameSuffix:   ".entry.log",
		UTC:              true,
		BufferSize:       512,
		FlushLevel:       "error",
	}
}

func activate(t *testing.T, cfg config.AppenderConfig, store *faultyStore, opts ...Option) *Appender {
	t.Helper()
	opts = append([]Option{WithClock(newFakeClock(jan15).Now), WithNewline("\n")}, opts...)
	a, err := Activate(context.Background(), cfg, store, messageLayout(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func event(msg string, level zerolog.Level) model.LogEvent {
	return model.LogEvent{Level: level, Logger: "test", Message: msg}
}

const todayBlob = "logs/2024_01_15.entry.log"

func TestActivateRejectsMissingSettingsWithoutStorageCalls(t *testing.T) {
	cases := map[string]func(*config.AppenderConfig){
		"connection_string": func(c *config.AppenderConfig) { c.ConnectionString = "" },
		"container_name":    func(c *config.AppenderConfig) { c.ContainerName = "  " },
		"directory_name":    func(c *config.AppenderConfig) { c.DirectoryName = "/" },
		"date_pattern":      func(c *config.AppenderConfig) { c.DatePattern = "yyyy'" },
		"flush_level":       func(c *config.AppenderConfig) { c.FlushLevel = "loud" },
		"buffer_size":       func(c *config.AppenderConfig) { c.BufferSize = -1 },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			store := newFaultyStore()

			a, err := Activate(context.Background(), cfg, store, messageLayout())
			require.Nil(t, a)
			require.ErrorIs(t, err, ErrConfig)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, field, cerr.Field)
			require.Contains(t, err.Error(), field)

			ensure, exists, create, appends := store.calls()
			require.Zero(t, ensure+exists+create+appends)
		})
	}
}

func TestValidateReportsUnresolvedConnectionName(t *testing.T) {
	cfg := validConfig()
	cfg.ConnectionString = ""
	cfg.ConnectionStringName = "primary"
	err := Validate(cfg)
	require.ErrorIs(t, err, ErrConfig)
	require.Contains(t, err.Error(), `"primary"`)
}

func TestActivateNormalizesContainer(t *testing.T) {
	store := newFaultyStore()
	a := activate(t, validConfig(), store)
	require.Equal(t, "applogs", a.Container())
	require.Equal(t, todayBlob, a.CurrentBlob())
	require.Equal(t, "logs/", a.BlobPrefix())

	ensure, _, _, _ := store.calls()
	require.Equal(t, 1, ensure)
	ok, err := store.Memory.Exists(context.Background(), "applogs", "nothing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExplicitFlush(t *testing.T) {
	store := newFaultyStore()
	a := activate(t, validConfig(), store)

	require.True(t, a.Accept(event("a", zerolog.InfoLevel)))
	require.True(t, a.Accept(event("b", zerolog.InfoLevel)))
	require.Equal(t, 2, a.Pending())

	_, _, _, appends := store.calls()
	require.Zero(t, appends, "accept must not write")

	rep, err := a.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rep.Appended)
	require.Zero(t, a.Pending())
	require.Equal(t, []string{"a", "b"}, store.lines(t, "applogs", todayBlob))

	rep, err = a.Flush(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.Events)
}

func TestSizeTriggerFlushesInBackground(t *testing.T) {
	cfg := validConfig()
	cfg.BufferSize = 3
	store := newFaultyStore()
	a := activate(t, cfg, store)

	for _, m := range []string{"a", "b", "c"} {
		a.Accept(event(m, zerolog.InfoLevel))
	}
	require.Eventually(t, func() bool {
		_, _, _, appends := store.calls()
		return appends == 3
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"a", "b", "c"}, store.lines(t, "applogs", todayBlob))
}

func TestLevelTriggerFlushesOnError(t *testing.T) {
	store := newFaultyStore()
	a := activate(t, validConfig(), store)

	a.Accept(event("info", zerolog.InfoLevel))
	a.Accept(event("boom", zerolog.ErrorLevel))
	require.Eventually(t, func() bool { return a.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, _, _, appends := store.calls()
		return appends == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestIntervalTriggerFlushes(t *testing.T) {
	cfg := validConfig()
	cfg.FlushInterval = 10 * time.Millisecond
	cfg.FlushLevel = "none"
	store := newFaultyStore()
	a := activate(t, cfg, store)

	a.Accept(event("tick", zerolog.InfoLevel))
	require.Eventually(t, func() bool {
		_, _, _, appends := store.calls()
		return appends == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBackgroundFailureReachesErrorHandler(t *testing.T) {
	cfg := validConfig()
	cfg.BufferSize = 1
	store := newFaultyStore()
	store.failAppendAt = 1

	errs := make(chan error, 1)
	var reports []FlushReport
	var mu sync.Mutex
	a := activate(t, cfg, store,
		WithErrorHandler(func(err error) { errs <- err }),
		WithOnFlush(func(r FlushReport) {
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		}),
	)

	a.Accept(event("lost", zerolog.InfoLevel))
	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrFlush)
		require.ErrorIs(t, err, errInjected)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reports, 1)
	require.Error(t, reports[0].Err)
}

func TestCustomTrigger(t *testing.T) {
	store := newFaultyStore()
	a := activate(t, validConfig(), store, WithTrigger(TriggerFunc(func(ev *model.LogEvent, _ int) bool {
		return ev.Message == "now"
	})))

	a.Accept(event("later", zerolog.FatalLevel))
	a.Accept(event("now", zerolog.DebugLevel))
	require.Eventually(t, func() bool {
		_, _, _, appends := store.calls()
		return appends == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseFlushesRemainderAndRejectsLateEvents(t *testing.T) {
	store := newFaultyStore()
	a, err := Activate(context.Background(), validConfig(), store, messageLayout(),
		WithClock(newFakeClock(jan15).Now), WithNewline("\n"))
	require.NoError(t, err)

	a.Accept(event("a", zerolog.InfoLevel))
	a.Accept(event("b", zerolog.InfoLevel))
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	require.False(t, a.Accept(event("late", zerolog.InfoLevel)))
	require.Equal(t, uint64(1), a.Dropped())
	require.Equal(t, []string{"a", "b"}, store.lines(t, "applogs", todayBlob))
}

func TestCloseTimeoutCancelsFlushAndCountsBufferedEvents(t *testing.T) {
	cfg := validConfig()
	cfg.BufferSize = 1
	cfg.FlushLevel = "none"
	store := newFaultyStore()
	store.blocked = make(chan struct{}, 1)

	errs := make(chan error, 1)
	a := activate(t, cfg, store, WithErrorHandler(func(err error) { errs <- err }))

	require.True(t, a.Accept(event("a", zerolog.InfoLevel)))
	select {
	case <-store.blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("background flush never reached storage")
	}
	require.True(t, a.Accept(event("b", zerolog.InfoLevel)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := a.Close(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "1 buffered events not flushed")
	require.Equal(t, uint64(1), a.Dropped())
	require.Zero(t, a.Pending())

	// The in-flight flush is cancelled and reported.
	select {
	case ferr := <-errs:
		require.ErrorIs(t, ferr, ErrFlush)
		require.ErrorIs(t, ferr, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled flush not reported")
	}

	require.Equal(t, err, a.Close(context.Background()))
	require.False(t, a.Accept(event("late", zerolog.InfoLevel)))
	require.Equal(t, uint64(2), a.Dropped())
}

func TestConcurrentAcceptLosesAndDuplicatesNothing(t *testing.T) {
	cfg := validConfig()
	cfg.BufferSize = 16
	store := newFaultyStore()
	a, err := Activate(context.Background(), cfg, store, messageLayout(),
		WithClock(newFakeClock(jan15).Now), WithNewline("\n"))
	require.NoError(t, err)

	const writers, perWriter = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				a.Accept(event(fmt.Sprintf("w%d-%04d", w, i), zerolog.InfoLevel))
				if i%50 == 0 {
					_, _ = a.Flush(context.Background())
				}
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, a.Close(context.Background()))

	lines := store.lines(t, "applogs", todayBlob)
	require.Len(t, lines, writers*perWriter)

	seen := make(map[string]bool, len(lines))
	perWriterOrder := make(map[byte][]string)
	for _, l := range lines {
		require.False(t, seen[l], "duplicate %s", l)
		seen[l] = true
		perWriterOrder[l[1]] = append(perWriterOrder[l[1]], l)
	}
	// Events from one writer keep their submission order.
	for _, got := range perWriterOrder {
		require.True(t, sort.StringsAreSorted(got))
	}
}
