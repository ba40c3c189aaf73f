// Package manifest is the persisted record of installed extensions. All
// access goes through Store, which serializes mutations behind an advisory
// lock file and writes the manifest atomically so a crash mid-write never
// leaves partial state.
package manifest
