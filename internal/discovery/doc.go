// Package discovery finds the devices a fleet operation acts on, and
// optionally the management server itself.
//
// # Target Discovery
//
// ListTargets reads the registered-client listing from the management server
// and applies two optional filters, in order:
//
//  1. Endpoint filter: case-sensitive substring match ("dev-1" selects
//     "dev-1" and "dev-10").
//  2. Device-type filter: reads resource 3/0/1 of every remaining target and
//     keeps those whose value equals the filter exactly. A target whose read
//     fails is excluded.
//
// Discovery is never cached; each fleet run calls ListTargets again.
//
// CountConnected probes every registered client by reading its serial number
// (3/0/2) and counts the ones that answer. The reset and wait commands use it
// to decide when devices are back online.
//
// # Server Discovery
//
// ServerScanner browses mDNS for "_leshan._tcp" advertisements. TXT records
// "scheme" and "path" describe how to build the REST base URL:
//
//	scanner := discovery.NewServerScanner()
//	server, err := scanner.FindFirst(ctx)
//	if err != nil {
//	    return err
//	}
//	client := lwm2m.NewClient(server.BaseURL())
//
// # Thread Safety
//
// A Discoverer is safe for concurrent use if its ResourceReader is.
package discovery
