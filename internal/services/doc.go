// Package services defines shared utilities consumed by the workflow stage
// handlers and external integrations.
//
// Context helpers stamp edition IDs, stage names and correlation identifiers
// for logging. Error markers plus the Wrap helper translate failures into
// consistent edition statuses (failed vs review).
package services
