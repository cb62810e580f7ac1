// Package testutil provides deterministic collaborators for engine tests:
// a virtual clock, fixed run ids and in-memory publishers.
package testutil
