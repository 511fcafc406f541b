// Package port implements the stride-partitioned TCP connect scan for the
// tcpscan CLI.
//
// The core assignment rule is:
//
//	owner(port) = (port - startPort) mod workerCount
//
// Every port in [startPort, endPort) is scanned by exactly one worker and
// no port is scanned twice. The Scanner fans results from all workers into
// one channel and sorts them once the last worker has exited.
package port
