package main

import (
	"log"
	"net"
	"net/http"
	"strings"
)

// allowNetworks serves next only to clients inside one of nets. With no
// networks the endpoint is open; config.Load rejects invalid entries, so an
// empty list always means none were configured.
func allowNetworks(nets []*net.IPNet, next http.Handler) http.Handler {
	if len(nets) == 0 {
		return next
	}

	allowed := make([]string, 0, len(nets))
	for _, n := range nets {
		allowed = append(allowed, n.String())
	}
	log.Printf("[http] status endpoint restricted to %s", strings.Join(allowed, ", "))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := requestAddr(r)
		if !containsIP(nets, net.ParseIP(addr)) {
			log.Printf("[http] status access denied for %q", addr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// requestAddr is the caller's address: the first X-Forwarded-For hop when a
// load balancer set one, otherwise the connection's remote host.
func requestAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
