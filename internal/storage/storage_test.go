package storage

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/eugenenazirov/sessionconf/internal/dao"
	"github.com/eugenenazirov/sessionconf/internal/session"
)

func newSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storages(t *testing.T) map[string]Storage {
	t.Helper()
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"sqlite": newSQLite(t),
	}
}

func TestNewStorageReturnsDefaultDescriptor(t *testing.T) {
	for name, store := range storages(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			d, err := store.GetDescriptor(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Commands.CacheSync() {
				t.Fatalf("expected cache sync disabled")
			}
			if url, ok := d.NamingService.URL(); ok {
				t.Fatalf("expected URL unset, got %q", url)
			}
		})
	}
}

func TestSetAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range storages(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			commands := session.NewCommandsConfig()
			commands.SetCacheSync(true)
			if err := store.SetCommands(ctx, *commands); err != nil {
				t.Fatalf("SetCommands: %v", err)
			}

			naming := session.NewRMIRegistryNamingServiceConfig()
			naming.SetURL("")
			if err := store.SetNamingService(ctx, *naming); err != nil {
				t.Fatalf("SetNamingService: %v", err)
			}

			d, err := store.GetDescriptor(ctx)
			if err != nil {
				t.Fatalf("GetDescriptor: %v", err)
			}
			if !d.Commands.CacheSync() {
				t.Fatalf("expected cache sync enabled")
			}
			if url, ok := d.NamingService.URL(); !ok || url != "" {
				t.Fatalf("expected explicit empty URL, got %q (set=%v)", url, ok)
			}

			naming.ClearURL()
			if err := store.SetNamingService(ctx, *naming); err != nil {
				t.Fatalf("SetNamingService: %v", err)
			}
			d, err = store.GetDescriptor(ctx)
			if err != nil {
				t.Fatalf("GetDescriptor: %v", err)
			}
			if _, ok := d.NamingService.URL(); ok {
				t.Fatalf("expected cleared URL to read back as unset")
			}
		})
	}
}

func TestMemoryStorageReturnsDefensiveCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStorage()

	naming := session.NewRMIRegistryNamingServiceConfig()
	naming.SetURL("rmi://a:1099")
	if err := store.SetNamingService(ctx, *naming); err != nil {
		t.Fatalf("SetNamingService: %v", err)
	}
	naming.SetURL("rmi://mutated:1099")

	got, _ := store.GetDescriptor(ctx)
	got.NamingService.SetURL("rmi://also-mutated:1099")

	again, _ := store.GetDescriptor(ctx)
	if url, _ := again.NamingService.URL(); url != "rmi://a:1099" {
		t.Fatalf("expected stored URL to be isolated, got %q", url)
	}
}

func TestSQLiteURLRoundTripProperty(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("stored URL reads back unchanged", prop.ForAll(
		func(url string) bool {
			naming := session.NewRMIRegistryNamingServiceConfig()
			naming.SetURL(url)
			if err := store.SetNamingService(ctx, *naming); err != nil {
				t.Logf("SetNamingService: %v", err)
				return false
			}
			d, err := store.GetDescriptor(ctx)
			if err != nil {
				t.Logf("GetDescriptor: %v", err)
				return false
			}
			got, ok := d.NamingService.URL()
			return ok && got == url
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestSQLiteURLRoundTripEdgeCases(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()

	cases := map[string]string{
		"embedded NUL":      "a\x00b",
		"invalid UTF-8":     "\xff\xfe",
		"surrounding space": " rmi://x ",
		"non-ASCII":         "日本語",
		"1 MiB":             strings.Repeat("a", 1<<20),
	}

	for name, url := range cases {
		url := url
		t.Run(name, func(t *testing.T) {
			naming := session.NewRMIRegistryNamingServiceConfig()
			naming.SetURL(url)
			if err := store.SetNamingService(ctx, *naming); err != nil {
				t.Fatalf("SetNamingService: %v", err)
			}

			d, err := store.GetDescriptor(ctx)
			if err != nil {
				t.Fatalf("GetDescriptor: %v", err)
			}
			got, ok := d.NamingService.URL()
			if !ok {
				t.Fatalf("expected URL to be set")
			}
			if got != url {
				t.Fatalf("URL changed in storage: got %d bytes, want %d bytes", len(got), len(url))
			}
		})
	}
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestUpdatedAtFollowsWrites(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	build := map[string]func(t *testing.T, clock *steppingClock) Storage{
		"memory": func(t *testing.T, clock *steppingClock) Storage {
			return NewMemoryStorage(WithClock(clock.Now))
		},
		"sqlite": func(t *testing.T, clock *steppingClock) Storage {
			store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "session.db"), WithClock(clock.Now))
			if err != nil {
				t.Fatalf("NewSQLiteStorage: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}

	for name, newStore := range build {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			clock := &steppingClock{now: start}
			store := newStore(t, clock)

			got, err := store.UpdatedAt(ctx)
			if err != nil {
				t.Fatalf("UpdatedAt: %v", err)
			}
			if !got.Equal(start) {
				t.Fatalf("expected initial timestamp %v, got %v", start, got)
			}

			clock.Advance(time.Minute)
			if err := store.SetCommands(ctx, session.CommandsConfig{}); err != nil {
				t.Fatalf("SetCommands: %v", err)
			}
			got, _ = store.UpdatedAt(ctx)
			if want := start.Add(time.Minute); !got.Equal(want) {
				t.Fatalf("expected %v after SetCommands, got %v", want, got)
			}

			clock.Advance(time.Minute)
			if err := store.SetNamingService(ctx, *session.NewRMIRegistryNamingServiceConfig()); err != nil {
				t.Fatalf("SetNamingService: %v", err)
			}
			got, _ = store.UpdatedAt(ctx)
			if want := start.Add(2 * time.Minute); !got.Equal(want) {
				t.Fatalf("expected %v after SetNamingService, got %v", want, got)
			}
		})
	}
}

func TestSQLiteUpdatedAtSharedAcrossHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	writerClock := &steppingClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	writer, err := NewSQLiteStorage(path, WithClock(writerClock.Now))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer writer.Close()

	// The reader's own clock is far from the writer's and must not leak into results.
	readerClock := &steppingClock{now: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	reader, err := NewSQLiteStorage(path, WithClock(readerClock.Now))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer reader.Close()

	writerClock.Advance(time.Hour)
	commands := session.NewCommandsConfig()
	commands.SetCacheSync(true)
	if err := writer.SetCommands(ctx, *commands); err != nil {
		t.Fatalf("SetCommands: %v", err)
	}

	got, err := reader.UpdatedAt(ctx)
	if err != nil {
		t.Fatalf("UpdatedAt: %v", err)
	}
	if want := writerClock.Now(); !got.Equal(want) {
		t.Fatalf("expected reader to see writer timestamp %v, got %v", want, got)
	}
}

func TestDSNKeepsExistingQuery(t *testing.T) {
	cases := map[string]string{
		"/tmp/session.db":                   "/tmp/session.db?" + driverParams,
		"file:/tmp/session.db?cache=shared": "file:/tmp/session.db?cache=shared&" + driverParams,
	}
	for path, want := range cases {
		if got := dsn(path); got != want {
			t.Fatalf("dsn(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSQLiteOpensURIWithQuery(t *testing.T) {
	path := "file:" + filepath.Join(t.TempDir(), "session.db") + "?cache=shared"
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("NewSQLiteStorage(%q): %v", path, err)
	}
	defer store.Close()

	if _, err := store.GetDescriptor(context.Background()); err != nil {
		t.Fatalf("GetDescriptor: %v", err)
	}
}

func TestSQLiteFailuresAreDaoErrors(t *testing.T) {
	t.Run("closed database", func(t *testing.T) {
		store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "session.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStorage: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		_, err = store.GetDescriptor(context.Background())
		de, ok := dao.AsDaoError(err)
		if !ok {
			t.Fatalf("expected dao error, got %v", err)
		}
		if de.Message() != "read session config" {
			t.Fatalf("unexpected message %q", de.Message())
		}
		if de.Cause() == nil {
			t.Fatalf("expected driver error as cause")
		}
	})

	t.Run("unreachable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "session.db")
		_, err := NewSQLiteStorage(path)
		if !dao.IsDaoError(err) {
			t.Fatalf("expected dao error, got %v", err)
		}
	})
}

func TestOpenSelectsImplementation(t *testing.T) {
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := store.(*MemoryStorage); !ok {
		t.Fatalf("expected memory storage for empty path, got %T", store)
	}

	store, err = Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStorage); !ok {
		t.Fatalf("expected sqlite storage for path, got %T", store)
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(enabled bool) {
			defer wg.Done()
			commands := session.NewCommandsConfig()
			commands.SetCacheSync(enabled)
			if err := store.SetCommands(ctx, *commands); err != nil {
				t.Errorf("SetCommands failed: %v", err)
			}
		}(i%2 == 0)

		go func() {
			defer wg.Done()
			if _, err := store.GetDescriptor(ctx); err != nil {
				t.Errorf("GetDescriptor failed: %v", err)
			}
		}()
	}

	wg.Wait()

	// final read should succeed
	if _, err := store.GetDescriptor(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
