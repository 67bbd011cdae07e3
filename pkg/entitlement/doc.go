// Package entitlement answers "does this user currently hold plan X".
//
// The quota reconciler queries a Checker under every alias of a plan, so
// implementations compare names exactly and leave alias handling to the
// plan catalog. Checkers compose with Any.
package entitlement
