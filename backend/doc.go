// Package backend reports which acceleration backends were compiled into
// this build. The set is fixed at build time via platform constraints and
// build tags; there is no runtime state.
package backend
