// Package lwm2m is a client for the REST facade of an LWM2M management server
// (Leshan-style API).
//
// Devices are addressed by endpoint name; resources by
// object/instance/resource ids:
//
//	GET  /api/clients                          registered clients
//	GET  /api/clients/{ep}/{obj}/{inst}/{res}  read  -> {"content":{"value":...}}
//	PUT  /api/clients/{ep}/{obj}/{inst}/{res}  write <- {"id":res,"value":...}
//	POST /api/clients/{ep}/{obj}/{inst}/{res}  execute (no body)
//
// # Acceptance
//
// A call succeeds only when the server answers 200 or 201. Every other status,
// transport failure or undecodable body is a failure. Reads report failure as
// an error wrapping ErrUnavailable so that a polled value of 0 or false can
// never be confused with "the device did not answer".
//
// # Timeouts
//
// Each call is bounded by Client.RequestTimeout. Cancelling the caller's
// context does not interrupt a call already in flight; cancellation is
// observed by the callers between calls.
//
// # Usage Example
//
//	client := lwm2m.NewClient("http://leshan:8080")
//
//	status, err := client.ReadInt(ctx, lwm2m.DownloadStatus("dev-1"))
//	if lwm2m.IsUnavailable(err) {
//	    // keep polling
//	}
//
//	err = client.Write(ctx, lwm2m.PackageURI("dev-1"), "coap://fw/zephyr.bin")
//	err = client.Execute(ctx, lwm2m.UpdateTrigger("dev-1"))
//
// # Thread Safety
//
// Client instances are safe for concurrent use by many workers.
package lwm2m
