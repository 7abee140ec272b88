// Package testutil provides shared test infrastructure: an in-memory or
// temp-directory environment with a populated prefix layout, formula and
// keg fixtures, and stub collaborators for the bottle and requirement
// interfaces.
package testutil
