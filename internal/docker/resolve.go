package docker

import (
	"context"
	"fmt"
	"net/netip"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"

	"github.com/shinji-kodama/tcpscan/internal/model"
)

// containerInspector is the subset of the Docker API used for resolution.
// *client.Client satisfies it.
type containerInspector interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// ContainerAddress returns the IP address of the named container.
//
// The container's attached networks are visited in name order and the
// first IPv4 address found wins, falling back to the first global IPv6
// address. A stopped container has no addresses and yields an error.
func (c *Client) ContainerAddress(ctx context.Context, name string) (netip.Addr, error) {
	return containerAddress(ctx, c.inner, name)
}

func containerAddress(ctx context.Context, api containerInspector, name string) (netip.Addr, error) {
	resp, err := api.ContainerInspect(ctx, name)
	if err != nil {
		return netip.Addr{}, model.WrapCLIError(
			model.ExitDockerError,
			fmt.Sprintf("failed to inspect container %q", name),
			err,
		)
	}

	var networks map[string]*network.EndpointSettings
	if resp.NetworkSettings != nil {
		networks = resp.NetworkSettings.Networks
	}

	addr, err := AddressFromNetworks(networks)
	if err != nil {
		return netip.Addr{}, model.WrapCLIError(
			model.ExitDockerError,
			fmt.Sprintf("container %q has no usable address; is it running?", name),
			err,
		)
	}
	return addr, nil
}

// AddressFromNetworks picks the scan address from a container's network
// endpoints. IPv4 is preferred over IPv6; ties are broken by network name
// so the result is stable across calls.
func AddressFromNetworks(networks map[string]*network.EndpointSettings) (netip.Addr, error) {
	names := make([]string, 0, len(networks))
	for name, ep := range networks {
		if ep != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if ip := networks[name].IPAddress; ip != "" {
			addr, err := netip.ParseAddr(ip)
			if err != nil {
				return netip.Addr{}, fmt.Errorf("network %s: invalid IPv4 address %q: %w", name, ip, err)
			}
			return addr, nil
		}
	}
	for _, name := range names {
		if ip := networks[name].GlobalIPv6Address; ip != "" {
			addr, err := netip.ParseAddr(ip)
			if err != nil {
				return netip.Addr{}, fmt.Errorf("network %s: invalid IPv6 address %q: %w", name, ip, err)
			}
			return addr, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("no IP address on %d attached network(s)", len(names))
}
