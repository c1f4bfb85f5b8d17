// Package events fans fleet run progress out to observers.
//
// Workers publish an Event each time they observe a device state, issue a
// state-changing request or reach a terminal outcome. The live dashboard and
// the monitor endpoint subscribe to the Bus. Publishing never blocks: a
// subscriber whose buffer is full misses the event, and the drop is counted.
//
// # Usage
//
//	bus := events.NewBus()
//	ch, unsubscribe := bus.Subscribe(64)
//	defer unsubscribe()
//
//	bus.Publish(events.Event{Endpoint: "dev-1", Phase: "download", State: "downloading"})
//
// A nil *Bus is valid and discards everything, so callers without observers
// need no special casing.
package events
