// Package handlers wires the peer's REST control surface.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"peermesh/internal/config"
	"peermesh/internal/federation"
	"peermesh/internal/indexer"
	"peermesh/internal/state"
	"peermesh/pkg/logging"
	"peermesh/pkg/version"
)

// registerTimeout bounds each outbound friend registration during bootstrap.
const registerTimeout = 10 * time.Second

// defaultFanout applies when a search request omits the fanout parameter.
const defaultFanout = 2

// PeerState is the slice of the state manager the handlers drive.
type PeerState interface {
	RegisterPeer(url string)
	MarkHealthy(url string)
	MarkFailed(url string)
	ListPeers() []string
	ListHealthyPeers() []string
	Stats() map[string]int
}

// Prober fires an immediate liveness probe.
type Prober interface {
	ProbeNow(url string) bool
}

// Searcher answers federated searches.
type Searcher interface {
	Search(ctx context.Context, query string, fanout, ttl int) *federation.SearchResponse
}

// Registrar announces this peer to a friend.
type Registrar interface {
	Register(ctx context.Context, peerURL, selfURL string) error
}

// MetricsExposer serves the Prometheus exposition endpoint and accepts gauge
// refreshes.
type MetricsExposer interface {
	Handler() http.Handler
	UpdatePeerCounts(known, healthy int)
}

// HandlersConfig configures the control surface.
type HandlersConfig struct {
	Config  *config.Config
	State   PeerState
	Prober  Prober
	Search  Searcher
	Friends Registrar
	Metrics MetricsExposer
	Logger  logging.Logger

	// Start anchors the uptime reported by /status.
	Start time.Time
}

// Handlers holds the REST endpoint implementations.
type Handlers struct {
	cfg HandlersConfig
}

// New builds the control surface handlers.
func New(cfg HandlersConfig) *Handlers {
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	return &Handlers{cfg: cfg}
}

// RegisterRoutes attaches every endpoint to the router.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics)
	r.POST("/register", h.Register)
	r.GET("/peers", h.Peers)
	r.GET("/files", h.Files)
	r.GET("/search", h.SearchFiles)
	r.POST("/bootstrap", h.Bootstrap)
	r.GET("/status", h.Status)
}

// Health reports liveness plus a state summary. Neighbours probe this
// endpoint, so it stays cheap and unauthenticated.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"peer":   h.cfg.Config.Name,
		"url":    h.cfg.Config.SelfURL,
		"stats":  h.cfg.State.Stats(),
	})
}

// Metrics serves the Prometheus exposition format. The peer-count gauges are
// refreshed on every scrape so they never lag behind the sweep interval.
func (h *Handlers) Metrics(c *gin.Context) {
	if h.cfg.Metrics == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "metrics collector not configured"})
		return
	}
	stats := h.cfg.State.Stats()
	h.cfg.Metrics.UpdatePeerCounts(stats["total_peers"], stats["healthy_peers"])
	h.cfg.Metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

type registerRequest struct {
	URL string `json:"url" binding:"required"`
}

// Register admits a peer into the neighbour table and probes it immediately
// so the caller learns our healthy view in the same round trip.
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "url is required"})
		return
	}

	h.cfg.State.RegisterPeer(req.URL)
	if h.cfg.Prober.ProbeNow(req.URL) {
		h.cfg.State.MarkHealthy(req.URL)
	} else {
		h.cfg.State.MarkFailed(req.URL)
	}

	h.cfg.Logger.WithField("peer", req.URL).Info("Peer registered")
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"peers": h.cfg.State.ListHealthyPeers(),
	})
}

// Peers lists the healthy and complete neighbour views.
func (h *Handlers) Peers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"peers":     h.cfg.State.ListHealthyPeers(),
		"all_peers": h.cfg.State.ListPeers(),
		"stats":     h.cfg.State.Stats(),
	})
}

// fileEntries indexes the shared directory and annotates each file with this
// peer's fetch endpoints.
func (h *Handlers) fileEntries() []state.FileEntry {
	grpcAddr := fmt.Sprintf("grpc://%s:%d", h.cfg.Config.IP, h.cfg.Config.GRPCPort)
	metas := indexer.List(h.cfg.Config.SharedDir)
	out := make([]state.FileEntry, 0, len(metas))
	for _, m := range metas {
		out = append(out, state.FileEntry{
			Name:      m.Name,
			Size:      m.Size,
			MTime:     m.MTime,
			Checksum:  m.Checksum,
			Extension: m.Extension,
			Type:      m.Type,
			RestURL:   h.cfg.Config.SelfURL,
			GRPC:      grpcAddr,
		})
	}
	return out
}

// Files serves this peer's shared file list. A ttl query parameter is
// accepted for compatibility with relaying callers but not acted upon.
func (h *Handlers) Files(c *gin.Context) {
	c.JSON(http.StatusOK, federation.FilesResponse{
		Peer:  h.cfg.Config.Name,
		Base:  h.cfg.Config.SelfURL,
		Files: h.fileEntries(),
	})
}

// intQuery parses a query parameter, falling back on absence or garbage.
func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// SearchFiles runs a federated search across this peer and its healthy
// neighbours.
func (h *Handlers) SearchFiles(c *gin.Context) {
	query := c.Query("query")
	fanout := intQuery(c, "fanout", defaultFanout)
	ttl := intQuery(c, "ttl", h.cfg.Config.SearchTTL)

	resp := h.cfg.Search.Search(c.Request.Context(), query, fanout, ttl)
	c.JSON(http.StatusOK, resp)
}

// Bootstrap registers with the configured friends and seeds the neighbour
// table. Friends that cannot be reached are reported, not fatal.
func (h *Handlers) Bootstrap(c *gin.Context) {
	registered := []string{}
	failed := []string{}

	for _, friend := range []string{h.cfg.Config.FriendPrimary, h.cfg.Config.FriendSecondary} {
		if friend == "" || friend == h.cfg.Config.SelfURL {
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), registerTimeout)
		err := h.cfg.Friends.Register(ctx, friend, h.cfg.Config.SelfURL)
		cancel()

		if err != nil {
			h.cfg.Logger.WithError(err).WithField("friend", friend).Warn("Bootstrap registration failed")
			failed = append(failed, friend)
			continue
		}

		h.cfg.State.RegisterPeer(friend)
		if h.cfg.Prober.ProbeNow(friend) {
			h.cfg.State.MarkHealthy(friend)
			registered = append(registered, friend)
		} else {
			h.cfg.State.MarkFailed(friend)
			failed = append(failed, friend)
		}
	}

	h.cfg.State.RegisterPeer(h.cfg.Config.SelfURL)
	h.cfg.State.MarkHealthy(h.cfg.Config.SelfURL)

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"peer":        h.cfg.Config.Name,
		"registered":  registered,
		"failed":      failed,
		"known_peers": h.cfg.State.ListHealthyPeers(),
	})
}

// Status reports the running configuration, state summary and uptime.
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"peer": h.cfg.Config.Name,
		"url":  h.cfg.Config.SelfURL,
		"config": gin.H{
			"rest_port":  h.cfg.Config.RestPort,
			"grpc_port":  h.cfg.Config.GRPCPort,
			"shared_dir": h.cfg.Config.SharedDir,
			"max_fanout": h.cfg.Config.MaxFanout,
			"search_ttl": h.cfg.Config.SearchTTL,
		},
		"stats":          h.cfg.State.Stats(),
		"healthy_peers":  h.cfg.State.ListHealthyPeers(),
		"all_peers":      h.cfg.State.ListPeers(),
		"uptime_seconds": time.Since(h.cfg.Start).Seconds(),
		"version":        version.Version,
	})
}
