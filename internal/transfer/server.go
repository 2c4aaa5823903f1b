// Package transfer implements the gRPC file transfer surface: chunked
// streaming downloads out of the shared directory and chunked uploads.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"peermesh/pkg/logging"
	pb "peermesh/pkg/proto"
)

const (
	// chunkSize is the payload size of each streamed FileChunk.
	chunkSize = 64 * 1024

	// maxUploadBytes caps the total accepted upload size.
	maxUploadBytes = 100 * 1024 * 1024

	// chunkPause throttles the stream between chunks while staying
	// cancellable.
	chunkPause = time.Millisecond
)

// RateLimiter admits or rejects transfer requests per client.
type RateLimiter interface {
	CheckRateLimit(client, kind string, limit int) bool
}

// MetricsSink receives transfer accounting.
type MetricsSink interface {
	RecordFileTransfer(operation string, bytes int64)
	RecordRateLimitHit(bucket string)
}

// ServiceConfig configures the transfer Service.
type ServiceConfig struct {
	PeerName           string
	SharedDir          string
	DownloadsPerMinute int

	Limiter RateLimiter
	Metrics MetricsSink
	Logger  logging.Logger
}

// Service implements the FileTransfer gRPC service.
type Service struct {
	pb.UnimplementedFileTransferServer
	cfg ServiceConfig
}

// NewService builds the transfer Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{cfg: cfg}
}

// NewServer builds the gRPC server hosting svc plus the standard health
// service, with keepalive tuned for long-lived transfer streams.
func NewServer(svc *Service) *grpc.Server {
	srv := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			PermitWithoutStream: true,
		}),
	)

	pb.RegisterFileTransferServer(srv, svc)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return srv
}

// clientIdentity extracts the caller's host address for rate accounting.
func clientIdentity(stream grpc.ServerStream) string {
	p, ok := peer.FromContext(stream.Context())
	if !ok || p.Addr == nil {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
		return host
	}
	return p.Addr.String()
}

// validFilename rejects names that could escape the shared directory.
func validFilename(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return !strings.Contains(name, "..")
}

// Download streams the requested file in 64 KiB chunks. A missing file is
// reported in-band as a single text chunk so scripted clients see a readable
// message instead of a stream error.
func (s *Service) Download(req *pb.FileRequest, stream pb.FileTransfer_DownloadServer) error {
	ctx := stream.Context()
	client := clientIdentity(stream)
	log := s.cfg.Logger.WithField("client", client).WithField("filename", req.GetFilename())

	if !s.cfg.Limiter.CheckRateLimit(client, "downloads", s.cfg.DownloadsPerMinute) {
		s.cfg.Metrics.RecordRateLimitHit("downloads")
		log.Warn("Download rejected by rate limit")
		return status.Error(codes.ResourceExhausted, "download rate limit exceeded")
	}

	filename := req.GetFilename()
	if !validFilename(filename) {
		return status.Error(codes.InvalidArgument, "invalid filename")
	}

	path := filepath.Join(s.cfg.SharedDir, filename)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		log.Info("Requested file not found")
		return stream.Send(&pb.FileChunk{
			Data: []byte(fmt.Sprintf("File %s not found on %s", filename, s.cfg.PeerName)),
			Seq:  1,
		})
	}

	f, err := os.Open(path)
	if err != nil {
		return status.Errorf(codes.Internal, "open %s: %v", filename, err)
	}
	defer f.Close()

	var total int64
	buf := make([]byte, chunkSize)
	for seq := uint32(1); ; seq++ {
		n, readErr := f.Read(buf)
		if n > 0 {
			chunk := &pb.FileChunk{Data: append([]byte(nil), buf[:n]...), Seq: seq}
			if err := stream.Send(chunk); err != nil {
				return err
			}
			total += int64(n)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(chunkPause):
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			log.WithError(readErr).Error("Read failed mid-transfer")
			return stream.Send(&pb.FileChunk{
				Data: []byte(fmt.Sprintf("Error reading %s: %v", filename, readErr)),
				Seq:  seq + 1,
			})
		}
	}

	s.cfg.Metrics.RecordFileTransfer("download", total)
	log.WithField("bytes", total).Info("Download complete")
	return nil
}

// Upload receives a chunked file and reports what arrived. Uploads admit
// against the same downloads bucket as Download.
func (s *Service) Upload(stream pb.FileTransfer_UploadServer) error {
	ctx := stream.Context()
	client := clientIdentity(stream)
	log := s.cfg.Logger.WithField("client", client)

	if !s.cfg.Limiter.CheckRateLimit(client, "downloads", s.cfg.DownloadsPerMinute) {
		s.cfg.Metrics.RecordRateLimitHit("downloads")
		log.Warn("Upload rejected by rate limit")
		return status.Error(codes.ResourceExhausted, "upload rate limit exceeded")
	}

	var (
		total   uint64
		chunks  uint32
		lastSeq uint32
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			s.cfg.Metrics.RecordFileTransfer("upload", int64(total))
			log.WithField("bytes", total).WithField("chunks", chunks).Info("Upload complete")
			return stream.SendAndClose(&pb.UploadStatus{
				ReceivedBytes: total,
				Chunks:        chunks,
			})
		}
		if err != nil {
			return err
		}

		if len(chunk.GetData()) == 0 {
			continue
		}
		if chunk.GetSeq() < lastSeq {
			log.WithField("seq", chunk.GetSeq()).WithField("last_seq", lastSeq).Warn("Out-of-order upload chunk")
		}
		lastSeq = chunk.GetSeq()

		chunks++
		total += uint64(len(chunk.GetData()))
		if total > maxUploadBytes {
			return status.Error(codes.ResourceExhausted, "upload exceeds size limit")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(chunkPause):
		}
	}
}
