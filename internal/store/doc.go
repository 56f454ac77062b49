// Package store persists named JSON documents on disk.
//
// Each document is a single file <dir>/<name>.json written atomically
// (temp file then rename). The schedule executor keeps its light groups,
// plans, schedules and plan configs here; the rule engine keeps its
// custom rules here.
package store
