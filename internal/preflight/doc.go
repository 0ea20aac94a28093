// Package preflight provides readiness checks for the services and paths
// ariacut depends on.
//
// The workflow runner calls RunAll before it starts polling; a failed check
// stops the run instead of letting every edition fail on the same cause. The
// CLI "ariacut status" command shows the same results alongside the queue.
package preflight
