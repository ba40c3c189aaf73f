// Package extension defines the extension data model: metadata, install
// specifications, validation rules, BOM declarations, removal config, and
// optional capabilities. It parses extension.yaml documents and validates
// them against an embedded JSON schema.
package extension
