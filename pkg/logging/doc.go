// Package logging provides the subsystem-tagged structured logger shared by
// every package in this module. It wraps log/slog and exposes a go-logr
// compatible facade so embedders that already standardized on logr (as
// controller-runtime-based programs typically do) can obtain a Logger
// without this module depending on controller-runtime itself.
package logging
