// Package platform provides cross-platform filesystem helpers. On Unix
// systems permission changes use chmod directly; on Windows, which has
// no Unix-style permission bits, they are a no-op so install backends
// behave the same on every OS.
package platform
