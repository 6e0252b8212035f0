// Package serviceresolver discovers recovery service replicas through DNS
// SRV records.
//
// Deployments register each replica under the _recovery._tcp service name
// for their domain. Clients resolve that name once and pick any returned
// host:port endpoint; all replicas are stateless with respect to one-shot
// recovery, so no endpoint is preferred.
//
// # Discovery Workflow
//
// 1. Expand a bare domain to its _recovery._tcp SRV name (RFC 2782)
// 2. Query the system stub resolver for SRV records
// 3. Return one host:port endpoint per record, in resolver order
//
// Names that already carry a service label (leading underscore) are queried
// as given, which lets operators publish under a custom label.
//
// # Usage Example
//
//	info, err := serviceresolver.ResolveRecoveryService(logger, "recovery.example.com")
//	if err != nil {
//		log.Fatalf("Failed to resolve service: %v", err)
//	}
//
//	client := clients.NewRecoveryClient("http://" + info.Endpoints[0])
package serviceresolver
