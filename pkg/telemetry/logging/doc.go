// Package logging builds the structured logger used across the anarchy
// pipeline.
//
// Loggers are plain *slog.Logger values. The handler returned by New appends
// the frame number, pass name, active tool, and session identifier stored on
// the context, so passes log with the *Context methods and get those fields
// for free:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	ctx = logging.WithFrame(ctx, 12)
//	logger.InfoContext(ctx, "check disabled", "category", "OverlapExisting")
package logging
