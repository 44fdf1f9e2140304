// Package dnsbridge answers DNS queries for the .bit zone from the name
// registry. A query for <label>.bit reads the d/<label> record.
package dnsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// Zone is the top level domain served by the bridge.
const Zone = "bit."

// maxTXTChunk is the longest character string a TXT record can carry.
const maxTXTChunk = 255

// Resolver looks up a name in the registry.
type Resolver interface {
	QueryName(name string, height uint64) (state.NameInfo, error)
}

// Config holds the settings for the bridge.
type Config struct {
	Addr     string
	TTL      uint32
	Resolver Resolver
	Log      *zap.SugaredLogger
}

// Bridge serves the .bit zone over UDP and TCP.
type Bridge struct {
	ttl      uint32
	resolver Resolver
	log      *zap.SugaredLogger
	udp      *dns.Server
	tcp      *dns.Server
}

// New constructs a bridge. Nothing is listening until Start is called.
func New(cfg Config) *Bridge {
	b := Bridge{
		ttl:      cfg.TTL,
		resolver: cfg.Resolver,
		log:      cfg.Log,
	}

	b.udp = &dns.Server{Addr: cfg.Addr, Net: "udp", Handler: &b}
	b.tcp = &dns.Server{Addr: cfg.Addr, Net: "tcp", Handler: &b}

	return &b
}

// Start begins listening in the background. Listener errors are sent on the
// returned channel.
func (b *Bridge) Start() <-chan error {
	errs := make(chan error, 2)

	for _, srv := range []*dns.Server{b.udp, b.tcp} {
		go func(srv *dns.Server) {
			b.log.Infow("startup", "status", "dns bridge started", "net", srv.Net, "host", srv.Addr)
			errs <- srv.ListenAndServe()
		}(srv)
	}

	return errs
}

// Shutdown stops both listeners.
func (b *Bridge) Shutdown(ctx context.Context) error {
	return errors.Join(b.udp.ShutdownContext(ctx), b.tcp.ShutdownContext(ctx))
}

// ServeDNS implements the dns.Handler interface.
func (b *Bridge) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	msg := new(dns.Msg)
	msg.SetReply(r)
	msg.Authoritative = true

	if len(r.Question) == 0 {
		msg.Rcode = dns.RcodeFormatError
	} else {
		msg.Answer, msg.Rcode = b.Answer(r.Question[0])
	}

	if err := w.WriteMsg(msg); err != nil {
		b.log.Errorw("dnsbridge", "status", "write response", "ERROR", err)
	}
}

// Answer resolves a single question against the registry.
func (b *Bridge) Answer(q dns.Question) ([]dns.RR, int) {
	qname := strings.ToLower(dns.Fqdn(q.Name))
	if !dns.IsSubDomain(Zone, qname) || qname == Zone {
		return nil, dns.RcodeRefused
	}

	// Only the label directly under the zone maps to a name.
	labels := dns.SplitDomainName(qname)
	label := labels[len(labels)-2]

	info, err := b.resolver.QueryName("d/"+label, state.QueryLastest)
	if err != nil {
		if !errors.Is(err, names.ErrNotFound) && !errors.Is(err, names.ErrLength) {
			return nil, dns.RcodeServerFailure
		}
		return nil, dns.RcodeNameError
	}
	if info.Expired {
		return nil, dns.RcodeNameError
	}

	hdr := func(rrtype uint16) dns.RR_Header {
		return dns.RR_Header{Name: qname, Rrtype: rrtype, Class: dns.ClassINET, Ttl: b.ttl}
	}

	var rrs []dns.RR
	switch q.Qtype {
	case dns.TypeTXT:
		rrs = append(rrs, &dns.TXT{Hdr: hdr(dns.TypeTXT), Txt: chunk(info.Value)})

	case dns.TypeA:
		for _, ip := range addresses(info.Value, "ip") {
			if v4 := ip.To4(); v4 != nil {
				rrs = append(rrs, &dns.A{Hdr: hdr(dns.TypeA), A: v4})
			}
		}

	case dns.TypeAAAA:
		for _, ip := range addresses(info.Value, "ip6") {
			if ip.To4() == nil {
				rrs = append(rrs, &dns.AAAA{Hdr: hdr(dns.TypeAAAA), AAAA: ip})
			}
		}

	default:
		return nil, dns.RcodeNotImplemented
	}

	return rrs, dns.RcodeSuccess
}

// =============================================================================

// addresses reads a string or a list of strings under the key of a JSON
// object value. Values that are not JSON carry no addresses.
func addresses(value string, key string) []net.IP {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return nil
	}

	raw, exists := doc[key]
	if !exists {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		list = []string{one}
	}

	var ips []net.IP
	for _, s := range list {
		if ip := net.ParseIP(s); ip != nil {
			ips = append(ips, ip)
		}
	}

	return ips
}

// chunk splits the value into TXT character strings.
func chunk(value string) []string {
	if value == "" {
		return []string{""}
	}

	var out []string
	for len(value) > maxTXTChunk {
		out = append(out, value[:maxTXTChunk])
		value = value[maxTXTChunk:]
	}

	return append(out, value)
}
