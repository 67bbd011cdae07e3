// Package quota decides whether a user may generate one more app and keeps
// the persisted counters consistent with the user's entitlement and with the
// projects the user actually has live.
//
// State lives in the user metadata store:
//
//	public.progress        UserProgress
//	private.projects       []UserProject
//	private.generatedApps  []GeneratedApp (append only)
//
// Two signals repair the stored counters. The entitlement checker is the
// source of truth for the plan; a detected upgrade grants a fresh window.
// The number of active projects (live URL and isActive) is a floor for both
// counters and is the only thing the free plan is enforced against.
//
// The gate fails closed: any error while deciding yields a denial with
// ReasonCheckFailed. Every operation that reads and rewrites a user's
// metadata holds that user's lock, so ConsumeGeneration and ProvisionApp
// cannot be raced past the limit.
package quota
