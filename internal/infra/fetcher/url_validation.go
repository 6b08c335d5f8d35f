package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
)

// checkTarget accepts absolute http(s) item links. With denyPrivate set, every
// address the host resolves to must be publicly routable, so an item link
// scraped from the source cannot point the fetcher at the relay's own network.
func checkTarget(ctx context.Context, raw string, denyPrivate bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if !denyPrivate {
		return nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if internalAddr(addr) {
			return fmt.Errorf("%w: %s", ErrPrivateIP, addr)
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrInvalidURL, host, err)
	}
	for _, addr := range addrs {
		if internalAddr(addr) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateIP, host, addr)
		}
	}
	return nil
}

func internalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}
