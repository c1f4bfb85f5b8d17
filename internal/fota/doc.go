// Package fota drives a single device through a firmware-over-the-air update.
//
// The device is observed only through two polled resources of the LWM2M
// Firmware object: the download status (5/0/3) and the update result (5/0/5).
// A Machine reads them at a fixed poll interval and issues the two
// state-changing calls of the update: the package URI write (5/0/1) and the
// update trigger execute (5/0/2).
//
// # Phases
//
// Download requests the package and, when monitoring, waits until the device
// reports the image as downloaded. Apply executes the update trigger and waits
// for a terminal update result. Run performs both on one worker; the fleet
// orchestrator normally runs them as two separately bounded pools.
//
// # Outcomes
//
// Every phase ends in exactly one Result:
//   - SUCCESS
//   - FAILED with a code (an update result greater than 1, or CodeTimeout)
//   - ABORTED when cancellation was observed
//
// The Result is stored once on the Action with Finish. After cancellation is
// observed no further write or execute is issued for the device.
//
// # Download status
//
//	0  idle          request the package, or fail if it was already requested
//	1  downloading   keep polling
//	2  downloaded    execute the update
//	3  updating      keep polling
//	4  unknown       keep polling
//
// A status that cannot be read is treated as transient; the device may come
// back. The device timeout bounds how long a phase may poll.
package fota
