// Package tokenstore persists rabota access tokens between CLI invocations.
//
// Supports three storage backends with different security and deployment tradeoffs:
//   - File: Local filesystem storage with atomic writes and owner-only permissions
//   - Env: Read-only environment variable access (requires external secret management)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// Logging in requires writable storage (file or keyring). Env storage can
// serve requests with a token issued elsewhere but cannot save refreshed tokens.
package tokenstore
