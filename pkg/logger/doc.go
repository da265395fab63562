// Package logger builds configured slog.Logger instances and provides the
// attribute helpers shared across authcore components.
//
// The factory keeps logging setup in one place: output format (JSON for
// aggregation, text for development), level, static attributes, and
// environment presets. Components never construct handlers themselves; they
// receive a *slog.Logger and fall back to Discard() when none is supplied,
// so logging is always opt-in and never a hard dependency.
//
// Attribute helpers (UID, TokenID, DeviceID, IP, Event, Component, Error)
// pin down the key names used across the codebase so log queries stay
// stable.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithProduction("authcore"),
//	)
//
//	log.Warn("session cache write failed",
//	    logger.UID(uid),
//	    logger.Error(err),
//	    logger.Component("authdb"),
//	)
package logger
