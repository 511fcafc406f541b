// Package docker provides Docker Engine API access for the tcpscan CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Resolving a container name to the IP address that is scanned
//     when --container is given instead of -i
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
