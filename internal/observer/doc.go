// Package observer implements the update polling loop: it periodically
// enumerates the build roster, fetches each device's builds and announces
// builds newer than the last one posted for that device.
//
// The ledger entry for a device is advanced only after the post is confirmed,
// so a failed delivery is retried on the next cycle (at-least-once). Status
// reads during a cycle may observe a mix of old and new entries; there is no
// cycle-level atomicity across devices.
package observer
