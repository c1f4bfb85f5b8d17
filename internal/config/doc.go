// Package config manages the leshan-fleet profile file.
//
// The profile is a small YAML file holding defaults for the command line:
// the management server, timing, worker limits, the device-type filter and
// the log level. Flags given on the command line always win over the
// profile, and the profile wins over the built-in defaults.
//
// # Configuration File Location
//
// The profile is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/leshan-fleet/config.yaml or $HOME/.config/leshan-fleet/config.yaml
//   - macOS: $HOME/.config/leshan-fleet/config.yaml
//   - Windows: %LOCALAPPDATA%\leshan-fleet\config.yaml
//
// # Example
//
//	version: 1
//	server: http://leshan.local:8080
//	poll_interval: 5s
//	request_timeout: 10s
//	device_timeout: 30m0s
//	max_workers: 4
//	max_apply_workers: 2
//	log_level: info
//
// Durations use Go duration syntax. A device_timeout of 0s disables the
// per-device timeout.
//
// # Usage Example
//
//	profile, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client := lwm2m.NewClient(profile.Server)
//	client.SetTimeout(profile.RequestTimeout.Std())
//
// Save writes the file atomically through a temporary file and rename.
package config
