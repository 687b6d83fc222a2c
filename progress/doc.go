// Package progress keeps aggregated session counters for a run and notifies
// an optional observer on every change.
package progress
