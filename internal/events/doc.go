// Package events delivers live task status updates to subscribers.
//
// The Broadcaster bridges the status endpoint's point-in-time view and the
// broker's transition feed: a subscriber first receives a snapshot of the
// task's current state, then every later transition, with out-of-order and
// duplicate observations filtered so the stream only ever moves the
// lifecycle forward. Streams end on their own after the terminal event.
package events
