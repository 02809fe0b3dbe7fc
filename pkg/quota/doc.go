// Package quota decides whether a user may perform a metered action.
//
// Enforcer.Check loads the user's plan, reads the usage record and applies
// the monthly limit before the daily limit. The outcome is a Decision value;
// only configuration problems (an unknown tier) are returned as errors.
//
// Monthly exhaustion is reported with ReasonMonthlyLimit whether or not the
// caller supplied overage consent; consent only flips Allowed. The daily cap
// is a pacing control and has no overage: it is checked only when the
// monthly check passes.
//
// When usage storage cannot be read the enforcer fails open: the action is
// allowed and the decision is marked Degraded.
package quota
