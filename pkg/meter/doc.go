// Package meter wires plans, usage storage, quota checks and overage billing
// into one Engine used by request handlers.
//
// A typical request calls CheckQuota before the metered action and
// RecordUsage after it succeeded:
//
//	d, err := engine.CheckQuota(ctx, userID, tierID, consent)
//	if err != nil {
//		return err // unknown tier
//	}
//	if !d.Allowed {
//		return reject(d.Reason)
//	}
//	// ... perform the action ...
//	receipt, err := engine.RecordUsage(ctx, meter.UsageRequest{
//		UserID: userID, TierID: tierID, Quantity: 1, OverageConsent: consent,
//	})
//	if receipt.Deferred {
//		// usage was not recorded; the action itself still succeeded
//	}
//
// Overage is priced from the counter returned by the increment, not from
// the earlier decision, so concurrent requests that both passed the check
// are billed for every unit above the limit.
package meter
