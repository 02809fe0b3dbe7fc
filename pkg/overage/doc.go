// Package overage prices and records usage above a plan's monthly limit.
//
// Biller.RecordOverage appends a pending Charge to a Log. Charges are never
// edited afterwards except for status transitions reported by the billing
// provider (pending, then invoiced, then paid; never backwards).
//
// When the charge log is missing (the gate reports overage logging as
// unavailable, or the backend reports ErrLogUnavailable) RecordOverage is a
// no-op that returns a zero Charge and a nil error. The loss is logged at
// error level with an alert attribute so operations can follow up, and the
// schema guard is asked to verify again.
package overage
