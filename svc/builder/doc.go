// Package builder exposes the app builder's JSON API: generation quota,
// user projects, sandbox provisioning and design search.
//
// Routes expect auth.Middleware and auth.RequireUser in front of them; every
// handler acts on the caller resolved from the session.
package builder
