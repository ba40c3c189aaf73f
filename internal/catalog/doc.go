// Package catalog loads extension definitions and named profiles from a
// catalog directory and exposes lookup over them. It holds pure data: all
// install behavior lives in the executor, all ordering in the resolver.
package catalog
