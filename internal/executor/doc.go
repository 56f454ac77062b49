// Package executor applies lighting plans and schedules to Grow3
// controllers on a fixed interval.
//
// Each tick loads the light groups, plans and schedules from the
// document store, resolves the day's recipe for every group, and
// PATCHes each light's controller through the device proxy: the HEX12
// payload while the group's schedule is active, null (off) otherwise.
//
// Ticks never overlap. A tick that outlives the interval causes the
// next run to be skipped rather than queued.
package executor
