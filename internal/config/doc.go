// Package config manages user-level settings stored at
// ~/.devforge/config.yaml. It provides functions to load, read, and
// write configuration keys such as the execution policy and the
// conflict strategy override, and resolves the standard paths under
// the devforge home directory.
package config
