// Package ir provides the shared data model for droproute.
//
// This package contains type definitions and canonical encoding only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Durations on the wire are integer milliseconds (routes, windows)
//   - Activation windows are never clamped; negative on-times are legal
//   - Canonical JSON (RFC 8785 ordering, NFC strings, no floats) is the only
//     encoding used for content hashes and golden traces
package ir
