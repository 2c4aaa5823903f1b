package state

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

const selfURL = "http://self:8001"

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeClock returns a manager whose clock is advanced by calling the returned
// function.
func newTestManager(t *testing.T, snapshotPath string) (*Manager, func(time.Duration)) {
	t.Helper()
	current := time.Unix(1_700_000_000, 0)
	m := NewManager(ManagerConfig{
		SelfURL:      selfURL,
		SnapshotPath: snapshotPath,
		Logger:       testLogger(),
		Now:          func() time.Time { return current },
	})
	return m, func(d time.Duration) { current = current.Add(d) }
}

func TestSelfAlwaysHealthy(t *testing.T) {
	m, _ := newTestManager(t, "")

	m.MarkFailed(selfURL)
	if !m.IsHealthy(selfURL) {
		t.Fatalf("self was marked failed")
	}

	healthy := m.ListHealthyPeers()
	if len(healthy) == 0 || healthy[0] != selfURL {
		t.Fatalf("healthy list = %v, want self first", healthy)
	}
}

func TestRegisterPreservesInsertionOrder(t *testing.T) {
	m, _ := newTestManager(t, "")

	m.RegisterPeer("http://b:8002")
	m.RegisterPeer("http://a:8003")
	m.RegisterPeer("http://b:8002") // refresh, not reorder

	peers := m.ListPeers()
	want := []string{selfURL, "http://b:8002", "http://a:8003"}
	if len(peers) != len(want) {
		t.Fatalf("peers = %v, want %v", peers, want)
	}
	for i := range want {
		if peers[i] != want[i] {
			t.Fatalf("peers = %v, want %v", peers, want)
		}
	}
}

func TestHealthyListOrdering(t *testing.T) {
	m, _ := newTestManager(t, "")

	m.RegisterPeer("http://b:8002")
	m.RegisterPeer("http://c:8003")
	m.MarkHealthy("http://c:8003")
	m.MarkHealthy("http://b:8002")
	m.MarkFailed("http://c:8003")

	healthy := m.ListHealthyPeers()
	if len(healthy) != 2 || healthy[0] != selfURL || healthy[1] != "http://b:8002" {
		t.Fatalf("healthy = %v", healthy)
	}
}

func TestCheckRateLimit_SlidingWindow(t *testing.T) {
	m, advance := newTestManager(t, "")

	for i := 0; i < 3; i++ {
		if !m.CheckRateLimit("1.2.3.4", "requests", 3) {
			t.Fatalf("request %d rejected under limit", i+1)
		}
	}
	if m.CheckRateLimit("1.2.3.4", "requests", 3) {
		t.Fatalf("request over limit admitted")
	}

	// Other clients and other buckets are independent.
	if !m.CheckRateLimit("5.6.7.8", "requests", 3) {
		t.Fatalf("unrelated client rejected")
	}
	if !m.CheckRateLimit("1.2.3.4", "downloads", 3) {
		t.Fatalf("unrelated bucket rejected")
	}

	advance(61 * time.Second)
	if !m.CheckRateLimit("1.2.3.4", "requests", 3) {
		t.Fatalf("request rejected after window expired")
	}
}

func TestCheckRateLimit_RejectedNotRecorded(t *testing.T) {
	m, advance := newTestManager(t, "")

	if !m.CheckRateLimit("c", "requests", 1) {
		t.Fatalf("first request rejected")
	}
	for i := 0; i < 5; i++ {
		if m.CheckRateLimit("c", "requests", 1) {
			t.Fatalf("over-limit request admitted")
		}
	}

	// Only the one admitted request occupies the window.
	advance(61 * time.Second)
	if !m.CheckRateLimit("c", "requests", 1) {
		t.Fatalf("window did not clear")
	}
}

func TestShouldSearchAgain(t *testing.T) {
	m, advance := newTestManager(t, "")

	if !m.ShouldSearchAgain("abc") {
		t.Fatalf("first sighting suppressed")
	}
	if m.ShouldSearchAgain("abc") {
		t.Fatalf("repeat inside dedup window admitted")
	}
	if !m.ShouldSearchAgain("def") {
		t.Fatalf("unrelated hash suppressed")
	}

	advance(11 * time.Second)
	if !m.ShouldSearchAgain("abc") {
		t.Fatalf("repeat after dedup window suppressed")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	m, advance := newTestManager(t, "")

	files := []FileEntry{{Name: "a.txt", Size: 1}}
	m.CacheFiles("http://b:8002", files)

	got, ok := m.GetCachedFiles("http://b:8002", 60*time.Second)
	if !ok || len(got) != 1 || got[0].Name != "a.txt" {
		t.Fatalf("cache miss for fresh entry: %v %v", got, ok)
	}

	advance(61 * time.Second)
	if _, ok := m.GetCachedFiles("http://b:8002", 60*time.Second); ok {
		t.Fatalf("stale cache entry served")
	}
	if _, ok := m.GetCachedFiles("http://never:1", 60*time.Second); ok {
		t.Fatalf("unknown peer served from cache")
	}
}

func TestPrune(t *testing.T) {
	m, advance := newTestManager(t, "")

	m.RegisterPeer("http://old:8002")
	m.CacheFiles("http://old:8002", []FileEntry{{Name: "x"}})
	advance(10 * time.Minute)
	m.RegisterPeer("http://fresh:8003")

	if got := m.Prune(5 * time.Minute); got != 1 {
		t.Fatalf("pruned = %d, want 1", got)
	}

	peers := m.ListPeers()
	if len(peers) != 2 || peers[0] != selfURL || peers[1] != "http://fresh:8003" {
		t.Fatalf("peers after prune = %v", peers)
	}
	if _, ok := m.GetCachedFiles("http://old:8002", time.Hour); ok {
		t.Fatalf("pruned peer still cached")
	}
}

func TestPrune_SweepsRateBuckets(t *testing.T) {
	m, advance := newTestManager(t, "")

	m.CheckRateLimit("stale-client", "requests", 10)
	advance(61 * time.Second)
	m.CheckRateLimit("live-client", "downloads", 10)

	m.Prune(5 * time.Minute)

	stats := m.Stats()
	if stats["rate_limited_clients"] != 1 {
		t.Fatalf("rate_limited_clients = %d, want 1 (stale bucket swept)", stats["rate_limited_clients"])
	}

	// The swept client starts a fresh window on its next request.
	if !m.CheckRateLimit("stale-client", "requests", 1) {
		t.Fatalf("swept client rejected on fresh request")
	}
}

func TestPruneNeverDropsSelf(t *testing.T) {
	m, advance := newTestManager(t, "")

	advance(24 * time.Hour)
	m.Prune(time.Minute)

	peers := m.ListPeers()
	if len(peers) != 1 || peers[0] != selfURL {
		t.Fatalf("peers = %v, want only self", peers)
	}
	if !m.IsHealthy(selfURL) {
		t.Fatalf("self unhealthy after prune")
	}
}

func TestStats(t *testing.T) {
	m, _ := newTestManager(t, "")

	m.RegisterPeer("http://b:8002")
	m.RegisterPeer("http://c:8003")
	m.MarkHealthy("http://b:8002")
	m.CacheFiles("http://b:8002", nil)
	m.CheckRateLimit("1.2.3.4", "requests", 10)

	stats := m.Stats()
	if stats["total_peers"] != 3 {
		t.Errorf("total_peers = %d, want 3", stats["total_peers"])
	}
	if stats["healthy_peers"] != 2 {
		t.Errorf("healthy_peers = %d, want 2 (self + b)", stats["healthy_peers"])
	}
	if stats["failed_peers"] != 1 {
		t.Errorf("failed_peers = %d, want 1", stats["failed_peers"])
	}
	if stats["cached_file_lists"] != 1 {
		t.Errorf("cached_file_lists = %d, want 1", stats["cached_file_lists"])
	}
	if stats["rate_limited_clients"] != 1 {
		t.Errorf("rate_limited_clients = %d, want 1", stats["rate_limited_clients"])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "peer_state.json")

	m, _ := newTestManager(t, path)
	m.RegisterPeer("http://b:8002")
	m.MarkHealthy("http://b:8002")
	m.CacheFiles("http://b:8002", []FileEntry{{Name: "a.txt", Checksum: "deadbeef"}})

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	var snap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	for _, key := range []string{"known_peers", "file_cache", "cache_timestamps"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("snapshot missing key %q", key)
		}
	}

	restored, _ := newTestManager(t, path)
	peers := restored.ListPeers()
	if len(peers) != 2 {
		t.Fatalf("restored peers = %v", peers)
	}
	// Liveness must be re-proved after a restart.
	if restored.IsHealthy("http://b:8002") {
		t.Errorf("restored neighbour healthy without a probe")
	}
	if !restored.IsHealthy(selfURL) {
		t.Errorf("restored self not healthy")
	}
	if files, ok := restored.GetCachedFiles("http://b:8002", time.Hour); !ok || files[0].Checksum != "deadbeef" {
		t.Errorf("file cache not restored: %v %v", files, ok)
	}
}

func TestCorruptSnapshotIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, _ := newTestManager(t, path)
	peers := m.ListPeers()
	if len(peers) != 1 || peers[0] != selfURL {
		t.Fatalf("peers = %v, want fresh state", peers)
	}
}
