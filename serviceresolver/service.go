package serviceresolver

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// systemResolverAddr is the stub resolver systemd-resolved exposes on Linux
// hosts. Queries go through it so split-horizon setups keep working.
const systemResolverAddr = "127.0.0.53:53"

// recoveryService is the SRV service label under which recovery service
// replicas register, per RFC 2782 naming (_service._proto.domain).
const recoveryService = "_recovery._tcp."

// ServiceInfo lists the endpoints of a resolved recovery service deployment.
type ServiceInfo struct {
	// Endpoints contains host:port pairs, one per SRV record, in resolver
	// order. Hosts keep their DNS form (no trailing dot).
	Endpoints []string
}

// ResolveRecoveryService looks up the recovery service replicas registered
// for name via DNS SRV records. A bare domain ("recovery.example.com") is
// expanded to the _recovery._tcp service name; a name that already starts
// with an underscore is queried as given.
//
// Returns ServiceInfo with one host:port endpoint per SRV record, or an
// error if the query fails or yields no records.
func ResolveRecoveryService(log *slog.Logger, name string) (*ServiceInfo, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if name == "" {
		return nil, fmt.Errorf("service name is empty")
	}

	qname := srvQueryName(name)
	endpoints, err := resolveSRVEndpoints(qname)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", qname, err)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no SRV records for %s", qname)
	}

	log.Debug("Resolved recovery service", "name", qname, "endpoints", endpoints)
	return &ServiceInfo{Endpoints: endpoints}, nil
}

// srvQueryName expands a bare domain into the recovery service SRV name and
// ensures the result is fully qualified.
func srvQueryName(name string) string {
	if strings.HasPrefix(name, "_") {
		return dns.Fqdn(name)
	}
	return dns.Fqdn(recoveryService + name)
}

// resolveSRVEndpoints queries the system resolver for SRV records and
// extracts target:port endpoints from the answer.
func resolveSRVEndpoints(qname string) ([]string, error) {
	m1 := new(dns.Msg)
	m1.Id = dns.Id()
	m1.RecursionDesired = true
	m1.Question = make([]dns.Question, 1)
	m1.Question[0] = dns.Question{Name: qname, Qtype: dns.TypeSRV, Qclass: dns.ClassINET}

	c := new(dns.Client)
	in, _, err := c.Exchange(m1, systemResolverAddr)
	if err != nil {
		return nil, err
	}

	endpoints := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			host := strings.TrimSuffix(srv.Target, ".")
			endpoints = append(endpoints, net.JoinHostPort(host, strconv.Itoa(int(srv.Port))))
		}
	}

	return endpoints, nil
}
