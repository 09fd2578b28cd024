package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// ====================================================================
// Резолвер адресов игровых серверов
// ====================================================================
//
// Адрес сервера приходит из центрального сервера строкой "host:port".
// Литеральные IP возвращаются как есть, имена резолвятся A-запросом
// через системные DNS-серверы. Результаты кэшируются с коротким TTL -
// реконнекты не должны дёргать DNS.
// ====================================================================

var (
	ErrResolveFailed = errors.New("resolver: lookup failed")
	ErrBadAddress    = errors.New("resolver: malformed address")
)

type cacheEntry struct {
	ips     []net.IP
	expires time.Time
}

// Resolver - кэширующий DNS-резолвер
type Resolver struct {
	mu    sync.Mutex
	cache map[string]cacheEntry

	client  *dns.Client
	servers []string
	ttl     time.Duration

	// now подменяется в тестах
	now func() time.Time
}

// NewResolver создаёт резолвер. Серверы DNS берутся из системного
// конфига; если его нет - публичные резолверы
func NewResolver(ttl time.Duration) *Resolver {
	servers := []string{"8.8.8.8:53", "1.1.1.1:53"}

	if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
		servers = servers[:0]
		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
	}

	return &Resolver{
		cache:   make(map[string]cacheEntry),
		client:  &dns.Client{Timeout: 3 * time.Second},
		servers: servers,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Resolve превращает "host:port" в список UDP-адресов
func (r *Resolver) Resolve(address string) ([]*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadAddress, address)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %q", ErrBadAddress, portStr)
	}

	// Литеральный IP не требует DNS
	if ip := net.ParseIP(host); ip != nil {
		return []*net.UDPAddr{{IP: ip, Port: port}}, nil
	}

	ips, err := r.lookup(host)
	if err != nil {
		return nil, err
	}

	out := make([]*net.UDPAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, &net.UDPAddr{IP: ip, Port: port})
	}
	return out, nil
}

func (r *Resolver) lookup(host string) ([]net.IP, error) {
	r.mu.Lock()
	if entry, ok := r.cache[host]; ok && r.now().Before(entry.expires) {
		ips := entry.ips
		r.mu.Unlock()
		return ips, nil
	}
	r.mu.Unlock()

	ips, err := r.query(host)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[host] = cacheEntry{ips: ips, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()

	return ips, nil
}

func (r *Resolver) query(host string) ([]net.IP, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.Exchange(msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("rcode %d", resp.Rcode)
			continue
		}

		var ips []net.IP
		for _, answer := range resp.Answer {
			if a, ok := answer.(*dns.A); ok {
				ips = append(ips, a.A)
			}
		}
		if len(ips) > 0 {
			return ips, nil
		}
		lastErr = errors.New("no A records")
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrResolveFailed, host, lastErr)
}

// Flush сбрасывает кэш
func (r *Resolver) Flush() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}

// putCache кладёт запись напрямую, для тестов
func (r *Resolver) putCache(host string, ips []net.IP) {
	r.mu.Lock()
	r.cache[host] = cacheEntry{ips: ips, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()
}
