// Package secrets seals short strings, such as generation prompts kept in the
// audit log, with AES-256-GCM. Each subject gets its own key derived from the
// master key with HKDF-SHA256; the subject is also bound as associated data.
package secrets
