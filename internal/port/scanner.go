package port

import (
	"context"
	"io"
	"net"
	"net/netip"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/tcpscan/internal/model"
)

// ProgressMarker is written once per open port while the scan runs.
const ProgressMarker = "."

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Scanner runs TCP connect scans.
//
// A Scanner is safe to reuse for several runs, but each run creates its
// own workers and result channel; nothing is pooled across runs.
type Scanner struct {
	dialer   Dialer
	progress io.Writer
	logger   *zap.Logger

	// progressMu serializes progress writes so that markers from
	// different workers never interleave inside a single write.
	progressMu sync.Mutex
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDialer replaces the default *net.Dialer.
func WithDialer(d Dialer) Option {
	return func(s *Scanner) { s.dialer = d }
}

// WithProgress sets where progress markers are written. Defaults to os.Stdout.
func WithProgress(w io.Writer) Option {
	return func(s *Scanner) { s.progress = w }
}

// WithLogger sets the logger used for worker-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// NewScanner creates a Scanner. Without options it dials with a zero
// net.Dialer (platform default connect timeout), writes progress markers to
// standard output and logs nothing.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		dialer:   &net.Dialer{},
		progress: os.Stdout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans cfg and returns the sorted Report.
//
// Exactly cfg.Threads workers are started. The call blocks until all of
// them have finished; there is no early abort. Per-port connect failures
// are not errors and never surface. The only error returned is an invalid
// configuration, detected before any worker starts.
func (s *Scanner) Run(ctx context.Context, cfg model.ScanConfig) (*model.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	part, err := NewPartition(cfg)
	if err != nil {
		return nil, err
	}

	results := make(chan int)

	// Workers never return an error, so a plain Group is used only as a
	// countdown: the channel is closed once the last worker is done.
	var g errgroup.Group
	for offset := 0; offset < cfg.Threads; offset++ {
		offset := offset
		g.Go(func() error {
			s.scanStride(ctx, cfg, part, offset, results)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	open := make([]int, 0)
	for p := range results {
		open = append(open, p)
	}
	sort.Ints(open)

	s.logger.Debug("scan finished",
		zap.Stringer("target", cfg.Address),
		zap.Int("scanned", cfg.PortCount()),
		zap.Int("open", len(open)),
	)

	return &model.Report{Config: cfg, OpenPorts: open}, nil
}

// scanStride is the worker loop for one stride offset.
func (s *Scanner) scanStride(ctx context.Context, cfg model.ScanConfig, part Partition, offset int, results chan<- int) {
	s.logger.Debug("worker started",
		zap.Int("offset", offset),
		zap.Int("ports", part.Size(offset)),
	)

	part.each(offset, func(port int) {
		if !s.IsOpen(ctx, netip.AddrPortFrom(cfg.Address, uint16(port)), cfg.Timeout) {
			return
		}
		results <- port
		s.markProgress()
	})
}

// IsOpen reports whether target accepts a TCP connection.
//
// The connection is closed immediately; no data is exchanged. Refused,
// unreachable and timed-out attempts all return false without distinction.
// A positive timeout bounds the attempt, otherwise the platform default
// connect timeout applies.
func (s *Scanner) IsOpen(ctx context.Context, target netip.AddrPort, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// markProgress writes one progress marker. Write errors are ignored; the
// marker is informational only.
func (s *Scanner) markProgress() {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	_, _ = io.WriteString(s.progress, ProgressMarker)
}
