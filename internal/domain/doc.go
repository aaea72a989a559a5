// Package domain defines the data model for display diagnostics: the
// immutable snapshots gathered from kernel-exported state (controllers,
// connectors, device nodes), the runtime signal observations, and the
// structured evidence records the pipeline aggregates into a verdict.
package domain
