package federation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"peermesh/internal/indexer"
	"peermesh/internal/state"
	"peermesh/pkg/logging"
)

const (
	// selfCacheAge is how long this peer's own indexed file list stays
	// servable on the deduplicated path.
	selfCacheAge = 60 * time.Second

	// neighbourCacheAge is how long a neighbour's cached file list is used
	// instead of refetching.
	neighbourCacheAge = 5 * time.Minute

	// fetchTimeout bounds each remote file-list fetch during fan-out.
	fetchTimeout = 10 * time.Second
)

// PeerResult is one peer's contribution to a search response. Entries are
// keyed by peer URL.
type PeerResult struct {
	Peer   string            `json:"peer"`
	Files  []state.FileEntry `json:"files"`
	Cached bool              `json:"cached,omitempty"`
}

// SearchResponse is the payload served by the /search endpoint. Cached marks
// a response answered entirely from this peer's cache on the dedup path.
type SearchResponse struct {
	Query      string       `json:"query"`
	TTL        int          `json:"ttl"`
	FanoutUsed int          `json:"fanout_used"`
	Cached     bool         `json:"cached,omitempty"`
	Results    []PeerResult `json:"results"`
}

// searchState is the slice of the state manager the searcher drives.
type searchState interface {
	ShouldSearchAgain(hash string) bool
	CacheFiles(peer string, files []state.FileEntry)
	GetCachedFiles(peer string, maxAge time.Duration) ([]state.FileEntry, bool)
	ListHealthyPeers() []string
	MarkFailed(url string)
}

// searchMetrics receives search accounting.
type searchMetrics interface {
	RecordSearch(matches int)
}

// fileFetcher fetches a remote peer's file list.
type fileFetcher interface {
	FetchFiles(ctx context.Context, peerURL string, ttl int) (*FilesResponse, error)
}

// SearcherConfig configures a Searcher.
type SearcherConfig struct {
	SelfURL   string
	GRPCAddr  string
	SharedDir string
	MaxFanout int

	State   searchState
	Metrics searchMetrics
	Fetcher fileFetcher
	Logger  logging.Logger
}

// Searcher answers federated file searches: local index plus a bounded
// fan-out to healthy neighbours.
type Searcher struct {
	cfg SearcherConfig
}

// NewSearcher builds a Searcher.
func NewSearcher(cfg SearcherConfig) *Searcher {
	return &Searcher{cfg: cfg}
}

// queryHash identifies a (query, fanout) pair in the recent-query ledger.
func queryHash(query string, fanout int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", query, fanout)))
	return hex.EncodeToString(sum[:])
}

// matches reports whether name contains query, case-insensitively. An empty
// query matches everything.
func matches(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func filterEntries(files []state.FileEntry, query string) []state.FileEntry {
	out := make([]state.FileEntry, 0, len(files))
	for _, f := range files {
		if matches(f.Name, query) {
			out = append(out, f)
		}
	}
	return out
}

// matchCount totals the matching files across all result entries.
func matchCount(results []PeerResult) int {
	total := 0
	for _, r := range results {
		total += len(r.Files)
	}
	return total
}

// localEntries indexes the shared directory and annotates each file with this
// peer's fetch endpoints.
func (s *Searcher) localEntries() []state.FileEntry {
	metas := indexer.List(s.cfg.SharedDir)
	out := make([]state.FileEntry, 0, len(metas))
	for _, m := range metas {
		out = append(out, state.FileEntry{
			Name:      m.Name,
			Size:      m.Size,
			MTime:     m.MTime,
			Checksum:  m.Checksum,
			Extension: m.Extension,
			Type:      m.Type,
			RestURL:   s.cfg.SelfURL,
			GRPC:      s.cfg.GRPCAddr,
		})
	}
	return out
}

// Search runs one federated search. The fan-out is clamped to the configured
// maximum; a repeat of the same (query, fanout) inside the dedup window is
// answered from this peer's cached index without fanning out.
func (s *Searcher) Search(ctx context.Context, query string, fanout, ttl int) *SearchResponse {
	fanoutUsed := fanout
	if fanoutUsed > s.cfg.MaxFanout {
		fanoutUsed = s.cfg.MaxFanout
	}
	if fanoutUsed < 0 {
		fanoutUsed = 0
	}

	resp := &SearchResponse{
		Query:      query,
		TTL:        ttl,
		FanoutUsed: fanoutUsed,
		Results:    []PeerResult{},
	}

	if !s.cfg.State.ShouldSearchAgain(queryHash(query, fanout)) {
		if cached, ok := s.cfg.State.GetCachedFiles(s.cfg.SelfURL, selfCacheAge); ok {
			resp.Cached = true
			resp.Results = append(resp.Results, PeerResult{
				Peer:   s.cfg.SelfURL,
				Files:  filterEntries(cached, query),
				Cached: true,
			})
			s.cfg.Metrics.RecordSearch(matchCount(resp.Results))
			return resp
		}
		// Cache expired under the dedup window; fall through and search.
	}

	local := s.localEntries()
	s.cfg.State.CacheFiles(s.cfg.SelfURL, local)
	resp.Results = append(resp.Results, PeerResult{
		Peer:  s.cfg.SelfURL,
		Files: filterEntries(local, query),
	})

	if ttl > 0 && fanoutUsed > 0 {
		resp.Results = append(resp.Results, s.fanOut(ctx, query, fanoutUsed, ttl)...)
	}

	s.cfg.Metrics.RecordSearch(matchCount(resp.Results))
	return resp
}

// fanOut queries up to fanout healthy neighbours. Cached neighbours are
// answered inline; the rest are fetched in parallel. Failed neighbours are
// marked and omitted. Result order follows neighbour selection order.
func (s *Searcher) fanOut(ctx context.Context, query string, fanout, ttl int) []PeerResult {
	candidates := make([]string, 0, fanout)
	for _, url := range s.cfg.State.ListHealthyPeers() {
		if url == s.cfg.SelfURL {
			continue
		}
		candidates = append(candidates, url)
		if len(candidates) == fanout {
			break
		}
	}

	slots := make([]*PeerResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)

	for i, url := range candidates {
		if cached, ok := s.cfg.State.GetCachedFiles(url, neighbourCacheAge); ok {
			slots[i] = &PeerResult{Peer: url, Files: filterEntries(cached, query), Cached: true}
			continue
		}

		i, url := i, url
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, fetchTimeout)
			defer cancel()

			remote, err := s.cfg.Fetcher.FetchFiles(fetchCtx, url, ttl-1)
			if err != nil {
				s.cfg.Logger.WithError(err).WithField("peer", url).Warn("Neighbour unreachable during search")
				s.cfg.State.MarkFailed(url)
				return nil
			}

			s.cfg.State.CacheFiles(url, remote.Files)
			peer := remote.Base
			if peer == "" {
				peer = url
			}
			slots[i] = &PeerResult{Peer: peer, Files: filterEntries(remote.Files, query)}
			return nil
		})
	}
	g.Wait()

	results := make([]PeerResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}
