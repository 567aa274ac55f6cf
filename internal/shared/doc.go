// Package shared holds helpers used by more than one tickpulse package.
//
// testutil provides a capturing slog handler and tick dataset fixtures for
// tests. It must only be imported from _test.go files.
package shared
