// Package logger wraps zap with a global sugared logger, level parsing and
// helpers that carry the logger through a context.Context, so every pipeline
// stage logs with the fields of the run that invoked it.
package logger
