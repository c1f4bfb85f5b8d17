// Package monitor serves the progress of a fleet run over HTTP.
//
// The server subscribes to the run's event bus and exposes two endpoints:
//
//	GET /events   WebSocket; one JSON events.Event per text message
//	GET /status   JSON snapshot of the latest event per device
//
// # Usage Example
//
//	bus := events.NewBus()
//	srv := monitor.New(&monitor.Config{Addr: "127.0.0.1:8081"}, bus)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Shutdown(context.Background())
//
// # Slow Clients
//
// Every WebSocket client has its own bus subscription. A client that does
// not keep up misses events rather than stalling the run; the /status
// snapshot always reflects the latest state seen by the server.
//
// # Graceful Shutdown
//
// Shutdown stops accepting connections, sends a close frame to every
// WebSocket client and waits for their goroutines, bounded by the context.
package monitor
