package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"conti/internal/log"
)

const (
	maxURLLength = 2048
	maxProxyHops = 6
)

// DetectionMetrics counts what the detector has seen since start.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// rule reports a reason when the request matches, "" otherwise.
type rule func(r *http.Request) string

var (
	probeFragments = []string{
		"../", "..\\", ".env", ".git", ".ssh", "etc/passwd", "cmd.exe",
		"wp-admin", "phpmyadmin", "admin.php", "config.php",
	}
	injectionFragments = []string{"eval(", "javascript:", "<script", "union select"}
	scannerAgents      = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab", "scanner"}
	oddMethods         = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

var rules = []rule{
	func(r *http.Request) string {
		target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
		if containsAny(target, probeFragments) {
			return "path_probe"
		}
		if containsAny(target, injectionFragments) {
			return "injection"
		}
		return ""
	},
	func(r *http.Request) string {
		if containsAny(strings.ToLower(r.UserAgent()), scannerAgents) {
			return "scanner_agent"
		}
		return ""
	},
	func(r *http.Request) string {
		if oddMethods[r.Method] {
			return "method"
		}
		return ""
	},
	func(r *http.Request) string {
		if len(r.URL.String()) > maxURLLength {
			return "long_url"
		}
		return ""
	},
	func(r *http.Request) string {
		if strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxProxyHops {
			return "forward_chain"
		}
		return ""
	},
}

// Detector flags requests that look like probes and resolves the client
// address behind trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	invalidIP  atomic.Int64

	mu      sync.RWMutex
	proxies []*net.IPNet
}

// NewDetector trusts loopback and the private ranges as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128", "fc00::/7"} {
		_, n, _ := net.ParseCIDR(cidr)
		d.proxies = append(d.proxies, n)
	}
	return d
}

// Inspect returns the first matching reason, or "" for a clean request.
func (d *Detector) Inspect(r *http.Request) string {
	for _, match := range rules {
		if reason := match(r); reason != "" {
			d.suspicious.Add(1)
			return reason
		}
	}
	return ""
}

func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return d.Inspect(r) != ""
}

// ExtractClientIP returns the peer address unless the peer is a trusted
// proxy, in which case the forwarded chain is walked from the right and the
// first untrusted hop wins. X-Real-IP is the fallback.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil || !d.trusted(ip) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			hopIP := net.ParseIP(hop)
			if hopIP == nil {
				d.invalidIP.Add(1)
				break
			}
			if !d.trusted(hopIP) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		d.invalidIP.Add(1)
	}
	return peer
}

func (d *Detector) trusted(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range d.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy accepts a CIDR such as "203.0.113.0/24".
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("trusted proxy %q: %w", cidr, err)
	}
	d.mu.Lock()
	d.proxies = append(d.proxies, n)
	d.mu.Unlock()
	return nil
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// Middleware logs suspicious requests and lets them through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.Inspect(r); reason != "" {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				"reason", reason,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
