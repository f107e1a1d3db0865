package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// ProxyTrust decides whether X-Forwarded-For / X-Real-IP may replace the
// peer address. The zero value trusts nobody.
type ProxyTrust struct {
	Enabled bool
	// Proxies limits trust to these peers. Empty means every peer when
	// Enabled is set.
	Proxies []netip.Prefix
}

// ParseProxyTrust accepts CIDRs and bare addresses.
func ParseProxyTrust(enabled bool, proxies []string) (ProxyTrust, error) {
	trust := ProxyTrust{Enabled: enabled}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				return ProxyTrust{}, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
			}
			trust.Proxies = append(trust.Proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return ProxyTrust{}, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		addr = addr.Unmap()
		trust.Proxies = append(trust.Proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return trust, nil
}

func (t ProxyTrust) trusts(remoteAddr string) bool {
	if !t.Enabled {
		return false
	}
	if len(t.Proxies) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t.Proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// RealIP applies chimiddleware.RealIP only to requests arriving from a
// trusted proxy. Everyone else keeps their network peer address, so a
// forged header cannot mint a fresh rate-limit key.
func RealIP(trust ProxyTrust) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !trust.Enabled {
			return next
		}
		forwarded := chimiddleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if trust.trusts(r.RemoteAddr) {
				forwarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
