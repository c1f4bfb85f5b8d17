// Package logging provides structured logging for leshan-fleet.
//
// This package wraps a zap logger with convenience functions used by every
// other package, plus a few helpers for the recurring log shapes of a fleet
// run: REST resource requests and per-device state observations.
//
// # Log Levels
//
//   - Debug: every resource request and polled state value
//   - Info: phase transitions, requested downloads, terminal outcomes
//   - Warn: failed reads, vanished devices, rejected writes
//   - Error: terminal device failures and run-level problems
//
// # Structured Logging
//
// Worker log lines always carry the device endpoint:
//
//	logging.Info("Requested firmware download",
//	    zap.String("endpoint", "dev-10"),
//	    zap.String("url", "coap://fw.example.com/zephyr.bin"),
//	)
//
// # Configuration
//
// Initialize logging once at command start:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to LESHAN_FLEET_LOG_LEVEL, then to "info".
// The level "off" disables output entirely.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
