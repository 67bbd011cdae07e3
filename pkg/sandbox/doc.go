// Package sandbox provisions remote compute sandboxes that host a scaffolded
// Vite + React app.
//
// Two vendors are supported, E2B and Vercel Sandbox, selected by Kind. The
// Factory checks credentials and builds a Handle around the vendor client.
// A Handle walks a forward-only lifecycle:
//
//	uninitialized -> created -> app-scaffolded -> terminated
//
// The Registry tracks handles by sandbox id and keeps a single active one.
// Registry.Replace terminates everything it tracks before provisioning the
// next sandbox; termination failures are logged and never returned.
package sandbox
