package port

import (
	"fmt"

	"github.com/shinji-kodama/tcpscan/internal/model"
)

// Partition splits the half-open port range [Start, End) across Stride
// workers.
//
// The assignment is deterministic and needs no coordination between
// workers: worker offset i scans
//
//	Start+i, Start+i+Stride, Start+i+2*Stride, ... while < End
//
// so port p is owned by exactly one worker, (p-Start) mod Stride.
type Partition struct {
	// Start is the first port of the range (inclusive).
	Start int

	// End is the end of the range (exclusive).
	End int

	// Stride is the worker count. It is always >= 1.
	Stride int
}

// NewPartition builds the Partition for a scan configuration.
func NewPartition(cfg model.ScanConfig) (Partition, error) {
	if cfg.Threads < 1 {
		return Partition{}, fmt.Errorf("stride %d must be positive", cfg.Threads)
	}
	if cfg.StartPort > cfg.EndPort {
		return Partition{}, fmt.Errorf("start port %d exceeds end port %d", cfg.StartPort, cfg.EndPort)
	}
	return Partition{Start: cfg.StartPort, End: cfg.EndPort, Stride: cfg.Threads}, nil
}

// Owner returns the worker offset responsible for port.
// Returns -1 if the port lies outside [Start, End).
func (p Partition) Owner(port int) int {
	if port < p.Start || port >= p.End {
		return -1
	}
	return (port - p.Start) % p.Stride
}

// Size returns how many ports worker offset scans. Offsets at or beyond
// the range length get zero ports.
func (p Partition) Size(offset int) int {
	first := p.Start + offset
	if offset < 0 || first >= p.End {
		return 0
	}
	return (p.End - first + p.Stride - 1) / p.Stride
}

// Ports returns the ascending sequence of ports assigned to worker offset.
func (p Partition) Ports(offset int) []int {
	ports := make([]int, 0, p.Size(offset))
	p.each(offset, func(port int) {
		ports = append(ports, port)
	})
	return ports
}

// each calls fn for every port of worker offset in ascending order.
// The worker loop and Ports share it so both walk the same sequence.
func (p Partition) each(offset int, fn func(port int)) {
	if offset < 0 {
		return
	}
	for port := p.Start + offset; port < p.End; port += p.Stride {
		fn(port)
	}
}
