// Package state holds the peer's mutable view of the overlay: the neighbour
// table, remote file caches, per-client rate buckets and the recent-query
// ledger. All access goes through a single mutex; critical sections stay
// short and never perform network I/O.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"peermesh/pkg/logging"
)

const (
	// rateWindow is the sliding window for per-client rate buckets.
	rateWindow = 60 * time.Second

	// dedupWindow is how long a query hash suppresses a repeat search.
	dedupWindow = 10 * time.Second

	// ledgerTTL is how long finished query hashes are retained.
	ledgerTTL = time.Hour
)

// FileEntry is one remote or local file as it travels between peers. It
// extends the on-disk metadata with the endpoints a consumer needs to fetch
// the file.
type FileEntry struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MTime     int64  `json:"mtime"`
	Checksum  string `json:"checksum"`
	Extension string `json:"extension"`
	Type      string `json:"type"`
	RestURL   string `json:"rest_url,omitempty"`
	GRPC      string `json:"grpc,omitempty"`
}

// neighbour is the tracked liveness of one peer URL.
type neighbour struct {
	LastSeen int64 `json:"last_seen"`
	Healthy  bool  `json:"healthy"`
}

// snapshot is the durable representation written to the storage directory.
type snapshot struct {
	KnownPeers      map[string]neighbour   `json:"known_peers"`
	FileCache       map[string][]FileEntry `json:"file_cache"`
	CacheTimestamps map[string]int64       `json:"cache_timestamps"`
}

// ManagerConfig configures a state Manager.
type ManagerConfig struct {
	SelfURL      string
	SnapshotPath string
	Logger       logging.Logger

	// Now overrides the clock, used by tests. Defaults to time.Now.
	Now func() time.Time
}

// Manager owns all mutable peer state behind one mutex.
type Manager struct {
	mu sync.Mutex

	selfURL      string
	snapshotPath string
	logger       logging.Logger
	now          func() time.Time

	order      []string
	peers      map[string]*neighbour
	fileCache  map[string][]FileEntry
	cacheTimes map[string]int64

	// rateBuckets holds per-client, per-kind request timestamps inside the
	// sliding window.
	rateBuckets map[string]map[string][]time.Time

	// queryLedger maps query hashes to the time they were last handled.
	queryLedger map[string]time.Time
}

// NewManager builds a Manager seeded with the self peer and, when a snapshot
// exists at the configured path, the neighbours and caches from the previous
// run. A corrupt snapshot is discarded, never fatal. Reloaded neighbours
// start out failed until the next health probe confirms them.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		selfURL:      cfg.SelfURL,
		snapshotPath: cfg.SnapshotPath,
		logger:       cfg.Logger,
		now:          cfg.Now,
		peers:        make(map[string]*neighbour),
		fileCache:    make(map[string][]FileEntry),
		cacheTimes:   make(map[string]int64),
		rateBuckets:  make(map[string]map[string][]time.Time),
		queryLedger:  make(map[string]time.Time),
	}
	if m.now == nil {
		m.now = time.Now
	}

	m.restore()

	// Self is always present and permanently healthy.
	if _, ok := m.peers[m.selfURL]; !ok {
		m.order = append([]string{m.selfURL}, m.order...)
	}
	m.peers[m.selfURL] = &neighbour{LastSeen: m.now().Unix(), Healthy: true}

	return m
}

func (m *Manager) restore() {
	if m.snapshotPath == "" {
		return
	}
	raw, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		if m.logger != nil {
			m.logger.WithError(err).WithField("path", m.snapshotPath).Warn("Discarding corrupt state snapshot")
		}
		return
	}

	urls := make([]string, 0, len(snap.KnownPeers))
	for url := range snap.KnownPeers {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	for _, url := range urls {
		entry := snap.KnownPeers[url]
		// Liveness is stale after a restart; peers must re-prove it.
		m.peers[url] = &neighbour{LastSeen: entry.LastSeen, Healthy: false}
		m.order = append(m.order, url)
	}
	for url, files := range snap.FileCache {
		m.fileCache[url] = files
	}
	for url, ts := range snap.CacheTimestamps {
		m.cacheTimes[url] = ts
	}

	if m.logger != nil {
		m.logger.WithField("peers", len(urls)).Info("Restored peer state snapshot")
	}
}

// persistLocked writes the snapshot best-effort. Callers hold the mutex.
func (m *Manager) persistLocked() {
	if m.snapshotPath == "" {
		return
	}

	snap := snapshot{
		KnownPeers:      make(map[string]neighbour, len(m.peers)),
		FileCache:       m.fileCache,
		CacheTimestamps: m.cacheTimes,
	}
	for url, entry := range m.peers {
		snap.KnownPeers[url] = *entry
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err == nil {
		err = os.MkdirAll(filepath.Dir(m.snapshotPath), 0o755)
	}
	if err == nil {
		err = os.WriteFile(m.snapshotPath, raw, 0o644)
	}
	if err != nil && m.logger != nil {
		m.logger.WithError(err).WithField("path", m.snapshotPath).Warn("Failed to persist peer state")
	}
}

// RegisterPeer adds url to the neighbour table, or refreshes its last-seen
// time when already present. Insertion order is preserved across refreshes.
func (m *Manager) RegisterPeer(url string) {
	if url == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.peers[url]; ok {
		entry.LastSeen = m.now().Unix()
	} else {
		m.peers[url] = &neighbour{LastSeen: m.now().Unix(), Healthy: false}
		m.order = append(m.order, url)
	}
	m.persistLocked()
}

// MarkHealthy records a successful liveness probe for url, registering it
// when unseen.
func (m *Manager) MarkHealthy(url string) {
	if url == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.peers[url]
	if !ok {
		entry = &neighbour{}
		m.peers[url] = entry
		m.order = append(m.order, url)
	}
	entry.Healthy = true
	entry.LastSeen = m.now().Unix()
	m.persistLocked()
}

// MarkFailed records a failed probe for url. The self peer is never marked
// failed.
func (m *Manager) MarkFailed(url string) {
	if url == m.selfURL {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.peers[url]; ok {
		entry.Healthy = false
		m.persistLocked()
	}
}

// ListPeers returns every known peer URL in insertion order.
func (m *Manager) ListPeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// ListHealthyPeers returns the self URL first, then every other healthy peer
// in insertion order.
func (m *Manager) ListHealthyPeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []string{m.selfURL}
	for _, url := range m.order {
		if url == m.selfURL {
			continue
		}
		if entry, ok := m.peers[url]; ok && entry.Healthy {
			out = append(out, url)
		}
	}
	return out
}

// IsHealthy reports whether url is currently marked healthy.
func (m *Manager) IsHealthy(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.peers[url]
	return ok && entry.Healthy
}

// CheckRateLimit admits or rejects one request from client in the named
// bucket kind under a sliding one-minute window. Admitted requests are
// recorded; rejected ones are not.
func (m *Manager) CheckRateLimit(client, kind string, limit int) bool {
	now := m.now()
	cutoff := now.Add(-rateWindow)

	m.mu.Lock()
	defer m.mu.Unlock()

	buckets, ok := m.rateBuckets[client]
	if !ok {
		buckets = make(map[string][]time.Time)
		m.rateBuckets[client] = buckets
	}

	kept := buckets[kind][:0]
	for _, ts := range buckets[kind] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= limit {
		buckets[kind] = kept
		return false
	}
	buckets[kind] = append(kept, now)
	return true
}

// ShouldSearchAgain reports whether a query hash is outside the dedup window
// and, when it is, records it in the ledger.
func (m *Manager) ShouldSearchAgain(hash string) bool {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.queryLedger[hash]; ok && now.Sub(last) < dedupWindow {
		return false
	}
	m.queryLedger[hash] = now
	return true
}

// CacheFiles stores the file list most recently observed for peer.
func (m *Manager) CacheFiles(peer string, files []FileEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fileCache[peer] = files
	m.cacheTimes[peer] = m.now().Unix()
	m.persistLocked()
}

// GetCachedFiles returns the cached file list for peer when the cache entry
// is younger than maxAge.
func (m *Manager) GetCachedFiles(peer string, maxAge time.Duration) ([]FileEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts, ok := m.cacheTimes[peer]
	if !ok {
		return nil, false
	}
	if m.now().Unix()-ts > int64(maxAge.Seconds()) {
		return nil, false
	}

	files := make([]FileEntry, len(m.fileCache[peer]))
	copy(files, m.fileCache[peer])
	return files, true
}

// Prune drops neighbours not seen within ttl, their cached file lists, stale
// query-ledger entries and rate buckets with no timestamps left inside the
// sliding window. The self peer is never pruned.
func (m *Manager) Prune(ttl time.Duration) int {
	now := m.now()
	cutoff := now.Unix() - int64(ttl.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	kept := m.order[:0]
	for _, url := range m.order {
		entry := m.peers[url]
		if url != m.selfURL && entry != nil && entry.LastSeen < cutoff {
			delete(m.peers, url)
			delete(m.fileCache, url)
			delete(m.cacheTimes, url)
			pruned++
			continue
		}
		kept = append(kept, url)
	}
	m.order = kept

	for hash, last := range m.queryLedger {
		if now.Sub(last) > ledgerTTL {
			delete(m.queryLedger, hash)
		}
	}

	rateCutoff := now.Add(-rateWindow)
	for client, buckets := range m.rateBuckets {
		for kind, stamps := range buckets {
			live := stamps[:0]
			for _, ts := range stamps {
				if ts.After(rateCutoff) {
					live = append(live, ts)
				}
			}
			if len(live) == 0 {
				delete(buckets, kind)
			} else {
				buckets[kind] = live
			}
		}
		if len(buckets) == 0 {
			delete(m.rateBuckets, client)
		}
	}

	if pruned > 0 {
		m.persistLocked()
	}
	return pruned
}

// Stats summarises the current state for the control surface.
func (m *Manager) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	healthy := 0
	for _, entry := range m.peers {
		if entry.Healthy {
			healthy++
		}
	}
	return map[string]int{
		"total_peers":          len(m.peers),
		"healthy_peers":        healthy,
		"failed_peers":         len(m.peers) - healthy,
		"cached_file_lists":    len(m.fileCache),
		"rate_limited_clients": len(m.rateBuckets),
	}
}
