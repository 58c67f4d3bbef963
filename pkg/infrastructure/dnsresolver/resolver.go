package dnsresolver

import (
	"context"
	"hash/fnv"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dnsmap/dnsmap/pkg/domain/entity"
	"github.com/miekg/dns"
)

// resolverFailLimit and resolverCooldown implement the per-server health
// tracking supplemented from original_source/dnsmap.py's mark_resolver /
// pick_healthy_resolver: a server that fails resolverFailLimit consecutive
// times in a row is put on a resolverCooldown timeout before it's picked
// again, so a single degraded upstream doesn't keep eating query latency.
const (
	resolverFailLimit = 5
	resolverCooldown  = 30 * time.Second
)

// serverHealth tracks one upstream server's consecutive-failure count and,
// once tripped, the time it becomes eligible again. Guarded by Resolver.mu.
type serverHealth struct {
	fails     int
	coolUntil time.Time
}

// Resolver implements service.Resolver by sending an A query and then an
// AAAA query to the host's configured resolvers, adapted from the teacher's
// pkg/infrastructure/dns.Resolver (which tried a static server list in
// sequence). dnsmap instead defers to the OS resolver via miekg/dns's
// system client config, since spec.md §4.4 calls for "the host's resolver"
// rather than a hardcoded upstream list.
type Resolver struct {
	client      *dns.Client
	servers     []string
	timeoutNano int64 // atomic time.Duration, mutated by the Tuning Controller

	mu     sync.Mutex
	health []serverHealth // one entry per servers[i], health tracking
}

// New builds a Resolver seeded from the system's /etc/resolv.conf (or
// platform equivalent), falling back to public resolvers if the system
// config cannot be read — mirroring the teacher's NewResolver default list.
func New(initialTimeout time.Duration) *Resolver {
	servers := systemServers()
	r := &Resolver{
		client:  new(dns.Client),
		servers: servers,
		health:  make([]serverHealth, len(servers)),
	}
	r.SetTimeout(initialTimeout)
	return r
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || cfg == nil || len(cfg.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}

func (r *Resolver) SetTimeout(d time.Duration) {
	atomic.StoreInt64(&r.timeoutNano, int64(d))
}

func (r *Resolver) Timeout() time.Duration {
	return time.Duration(atomic.LoadInt64(&r.timeoutNano))
}

// Probe performs an A/AAAA lookup for fqdn, each query starting at the
// server exchange picks for it, classifying the result per spec.md §3's Probe Outcome
// variants. Only Resolved with at least one address is a success.
func (r *Resolver) Probe(ctx context.Context, fqdn string) entity.ProbeResult {
	start := time.Now()
	timeout := r.Timeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, outcome, err := r.lookup(ctx, fqdn)
	latency := time.Since(start)

	return entity.ProbeResult{
		Outcome:   outcome,
		Addresses: addrs,
		Err:       err,
		Latency:   latency,
	}
}

func (r *Resolver) lookup(ctx context.Context, fqdn string) ([]string, entity.Outcome, error) {
	aAddrs, aOutcome, aErr := r.exchange(ctx, fqdn, dns.TypeA)
	if ctx.Err() != nil {
		return nil, entity.Timeout, ctx.Err()
	}

	aaaaAddrs, aaaaOutcome, aaaaErr := r.exchange(ctx, fqdn, dns.TypeAAAA)
	if ctx.Err() != nil {
		return nil, entity.Timeout, ctx.Err()
	}

	addrs := append(aAddrs, aaaaAddrs...)
	if len(addrs) > 0 {
		return addrs, entity.Resolved, nil
	}

	// A timeout on either query dominates: it signals resolver pressure,
	// which is what the controller reacts to.
	if aOutcome == entity.Timeout || aaaaOutcome == entity.Timeout {
		return nil, entity.Timeout, firstNonNil(aErr, aaaaErr)
	}
	if aOutcome == entity.TransientError || aaaaOutcome == entity.TransientError {
		return nil, entity.TransientError, firstNonNil(aErr, aaaaErr)
	}
	return nil, entity.NotFound, nil
}

// exchange starts from the server pickServerIndex hashes fqdn to (skipping
// any server still on cooldown) and falls back through the rest in order on
// failure, matching the original tool's per-query healthy-resolver pick
// (mark_resolver/pick_healthy_resolver) while keeping the resilience of
// trying every configured server before giving up. Only the first server
// tried has its health updated — fallback attempts exist purely to salvage
// this one query, not to re-score every server on the list.
func (r *Resolver) exchange(ctx context.Context, fqdn string, qtype uint16) ([]string, entity.Outcome, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(fqdn), qtype)
	msg.RecursionDesired = true

	n := len(r.servers)
	start := r.pickServerIndex(fqdn)

	var lastErr error
	for off := 0; off < n; off++ {
		idx := (start + off) % n
		resp, _, err := r.client.ExchangeContext(ctx, msg, r.servers[idx])
		if err != nil {
			if ctx.Err() != nil {
				return nil, entity.Timeout, ctx.Err()
			}
			if off == 0 {
				r.markServer(idx, false)
			}
			lastErr = err
			continue
		}
		if off == 0 {
			r.markServer(idx, true)
		}
		if resp.Rcode == dns.RcodeNameError {
			return nil, entity.NotFound, nil
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = &rcodeError{rcode: resp.Rcode}
			continue
		}
		return addressesOf(resp), entity.Resolved, nil
	}
	if lastErr == nil {
		return nil, entity.NotFound, nil
	}
	return nil, entity.TransientError, lastErr
}

// pickServerIndex hash-picks a starting server for fqdn (spreading load
// deterministically per name, as the original tool's pick_resolver_index
// does with Python's hash()), skipping any server still within its cooldown
// window. If every server is cooling, it falls back to the hashed start
// index regardless, mirroring pick_healthy_resolver's own fallback.
func (r *Resolver) pickServerIndex(fqdn string) int {
	n := len(r.servers)
	if n == 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(fqdn))
	start := int(h.Sum32() % uint32(n))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureHealthLocked()
	now := time.Now()
	for off := 0; off < n; off++ {
		idx := (start + off) % n
		if !now.Before(r.health[idx].coolUntil) {
			return idx
		}
	}
	return start
}

// ensureHealthLocked (re)sizes health to match servers. Tests and
// zero-value callers may construct a Resolver by setting servers directly
// without going through New; this keeps indexing safe regardless. Callers
// must hold r.mu.
func (r *Resolver) ensureHealthLocked() {
	if len(r.health) != len(r.servers) {
		r.health = make([]serverHealth, len(r.servers))
	}
}

// markServer records a query outcome against server idx: a success walks
// its fail count back down, a failure increments it and, once it reaches
// resolverFailLimit, puts the server on a resolverCooldown timeout and
// resets the counter — the same fail-count/cooldown state machine as
// mark_resolver in the original tool.
func (r *Resolver) markServer(idx int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureHealthLocked()
	st := &r.health[idx]
	if ok {
		if st.fails > 0 {
			st.fails--
		}
		return
	}
	st.fails++
	if st.fails >= resolverFailLimit {
		st.coolUntil = time.Now().Add(resolverCooldown)
		st.fails = 0
	}
}

func addressesOf(resp *dns.Msg) []string {
	var addrs []string
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			addrs = append(addrs, rec.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rec.AAAA.String())
		}
	}
	return addrs
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type rcodeError struct {
	rcode int
}

func (e *rcodeError) Error() string {
	return "dns: server returned " + dns.RcodeToString[e.rcode]
}
