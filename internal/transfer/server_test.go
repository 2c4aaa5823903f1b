package transfer

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	pb "peermesh/pkg/proto"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeLimiter struct {
	allow bool
	calls int
}

func (f *fakeLimiter) CheckRateLimit(client, kind string, limit int) bool {
	f.calls++
	return f.allow
}

type fakeMetrics struct {
	transfers map[string]int64
	hits      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{transfers: make(map[string]int64), hits: make(map[string]int)}
}

func (f *fakeMetrics) RecordFileTransfer(operation string, bytes int64) {
	f.transfers[operation] += bytes
}

func (f *fakeMetrics) RecordRateLimitHit(bucket string) {
	f.hits[bucket]++
}

// fakeServerStream satisfies grpc.ServerStream for handler-level tests.
type fakeServerStream struct {
	ctx context.Context
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(any) error            { return nil }
func (f *fakeServerStream) RecvMsg(any) error            { return nil }

type downloadStream struct {
	fakeServerStream
	chunks []*pb.FileChunk
}

func (d *downloadStream) Send(c *pb.FileChunk) error {
	d.chunks = append(d.chunks, c)
	return nil
}

type uploadStream struct {
	fakeServerStream
	incoming []*pb.FileChunk
	pos      int
	closed   *pb.UploadStatus
}

func (u *uploadStream) Recv() (*pb.FileChunk, error) {
	if u.pos >= len(u.incoming) {
		return nil, io.EOF
	}
	c := u.incoming[u.pos]
	u.pos++
	return c, nil
}

func (u *uploadStream) SendAndClose(s *pb.UploadStatus) error {
	u.closed = s
	return nil
}

func peerContext() context.Context {
	return peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 9), Port: 40000},
	})
}

func newTestService(t *testing.T, limiter *fakeLimiter, m *fakeMetrics, files map[string][]byte) *Service {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return NewService(ServiceConfig{
		PeerName:           "peer1",
		SharedDir:          dir,
		DownloadsPerMinute: 10,
		Limiter:            limiter,
		Metrics:            m,
		Logger:             testLogger(),
	})
}

func TestDownload_Chunking(t *testing.T) {
	content := make([]byte, chunkSize+100)
	for i := range content {
		content[i] = byte(i % 251)
	}
	m := newFakeMetrics()
	s := newTestService(t, &fakeLimiter{allow: true}, m, map[string][]byte{"big.bin": content})

	stream := &downloadStream{fakeServerStream: fakeServerStream{ctx: peerContext()}}
	if err := s.Download(&pb.FileRequest{Filename: "big.bin"}, stream); err != nil {
		t.Fatalf("Download: %v", err)
	}

	if len(stream.chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(stream.chunks))
	}
	if stream.chunks[0].GetSeq() != 1 || stream.chunks[1].GetSeq() != 2 {
		t.Errorf("seqs = %d, %d; want 1, 2", stream.chunks[0].GetSeq(), stream.chunks[1].GetSeq())
	}
	if len(stream.chunks[0].GetData()) != chunkSize || len(stream.chunks[1].GetData()) != 100 {
		t.Errorf("chunk sizes = %d, %d", len(stream.chunks[0].GetData()), len(stream.chunks[1].GetData()))
	}
	var got []byte
	for _, c := range stream.chunks {
		got = append(got, c.GetData()...)
	}
	if string(got) != string(content) {
		t.Errorf("reassembled content differs from source")
	}
	if m.transfers["download"] != int64(len(content)) {
		t.Errorf("recorded bytes = %d, want %d", m.transfers["download"], len(content))
	}
}

func TestDownload_NotFoundInBand(t *testing.T) {
	s := newTestService(t, &fakeLimiter{allow: true}, newFakeMetrics(), nil)

	stream := &downloadStream{fakeServerStream: fakeServerStream{ctx: peerContext()}}
	if err := s.Download(&pb.FileRequest{Filename: "ghost.txt"}, stream); err != nil {
		t.Fatalf("Download: %v", err)
	}

	if len(stream.chunks) != 1 || stream.chunks[0].GetSeq() != 1 {
		t.Fatalf("chunks = %+v, want single seq-1 message", stream.chunks)
	}
	got := string(stream.chunks[0].GetData())
	if got != "File ghost.txt not found on peer1" {
		t.Fatalf("message = %q", got)
	}
}

func TestDownload_InvalidFilename(t *testing.T) {
	s := newTestService(t, &fakeLimiter{allow: true}, newFakeMetrics(), nil)

	for _, name := range []string{"", "../secret", "a/b.txt", `a\b.txt`} {
		stream := &downloadStream{fakeServerStream: fakeServerStream{ctx: peerContext()}}
		err := s.Download(&pb.FileRequest{Filename: name}, stream)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("filename %q: code = %v, want InvalidArgument", name, status.Code(err))
		}
	}
}

func TestDownload_RateLimited(t *testing.T) {
	m := newFakeMetrics()
	s := newTestService(t, &fakeLimiter{allow: false}, m, nil)

	stream := &downloadStream{fakeServerStream: fakeServerStream{ctx: peerContext()}}
	err := s.Download(&pb.FileRequest{Filename: "x.txt"}, stream)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("code = %v, want ResourceExhausted", status.Code(err))
	}
	if m.hits["downloads"] != 1 {
		t.Fatalf("rate limit hits = %d, want 1", m.hits["downloads"])
	}
}

func TestDownload_Cancelled(t *testing.T) {
	content := make([]byte, 3*chunkSize)
	s := newTestService(t, &fakeLimiter{allow: true}, newFakeMetrics(), map[string][]byte{"big.bin": content})

	ctx, cancel := context.WithCancel(peerContext())
	cancel()
	stream := &downloadStream{fakeServerStream: fakeServerStream{ctx: ctx}}
	if err := s.Download(&pb.FileRequest{Filename: "big.bin"}, stream); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestUpload_Accounting(t *testing.T) {
	m := newFakeMetrics()
	s := newTestService(t, &fakeLimiter{allow: true}, m, nil)

	stream := &uploadStream{
		fakeServerStream: fakeServerStream{ctx: peerContext()},
		incoming: []*pb.FileChunk{
			{Data: []byte("hello "), Seq: 1},
			{Data: nil, Seq: 2}, // empty chunks carry no payload
			{Data: []byte("world"), Seq: 3},
		},
	}
	if err := s.Upload(stream); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if stream.closed == nil {
		t.Fatalf("SendAndClose never called")
	}
	if stream.closed.GetReceivedBytes() != 11 || stream.closed.GetChunks() != 2 {
		t.Fatalf("status = %+v, want 11 bytes over 2 chunks", stream.closed)
	}
	if m.transfers["upload"] != 11 {
		t.Fatalf("recorded bytes = %d, want 11", m.transfers["upload"])
	}
}

func TestUpload_SizeLimit(t *testing.T) {
	s := newTestService(t, &fakeLimiter{allow: true}, newFakeMetrics(), nil)

	big := make([]byte, chunkSize)
	var incoming []*pb.FileChunk
	for i := 0; i < maxUploadBytes/chunkSize+1; i++ {
		incoming = append(incoming, &pb.FileChunk{Data: big, Seq: uint32(i + 1)})
	}
	stream := &uploadStream{fakeServerStream: fakeServerStream{ctx: peerContext()}, incoming: incoming}

	err := s.Upload(stream)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("code = %v, want ResourceExhausted", status.Code(err))
	}
}

func TestUpload_RateLimited(t *testing.T) {
	m := newFakeMetrics()
	s := newTestService(t, &fakeLimiter{allow: false}, m, nil)

	stream := &uploadStream{fakeServerStream: fakeServerStream{ctx: peerContext()}}
	err := s.Upload(stream)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("code = %v, want ResourceExhausted", status.Code(err))
	}
	if m.hits["downloads"] != 1 {
		t.Fatalf("hits = %v, want shared downloads bucket", m.hits)
	}
}

func TestValidFilename(t *testing.T) {
	if !validFilename("report.txt") {
		t.Errorf("plain name rejected")
	}
	if validFilename(strings.Repeat(".", 2) + "/x") {
		t.Errorf("traversal accepted")
	}
}
