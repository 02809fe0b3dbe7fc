// Package reset advances usage records into a new billing period.
//
// OnBillingPeriodBoundary is meant to be called by an external trigger
// (cron, a job runner, or Run below). It resets monthly counters into the
// period containing the current time. The store operation only touches
// records still in an older period, so repeated or concurrent triggers, in
// one process or many, reset each record once.
//
// Daily counters need no scheduling: stores roll them over lazily when a
// record is next read or incremented.
package reset
