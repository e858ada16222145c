// Package logger provides the structured logging interface used across the crawler.
//
// It wraps zerolog. Components receive a Logger by injection; the process-wide
// instance installed by Initialize is only a fallback for code paths without one.
//
//	log := logger.GetLogger().WithField("component", "spider")
//	log.InfoWithFields("notes fetched", map[string]interface{}{
//	    "requested": 10,
//	    "succeeded": 9,
//	})
//
// Cookie values must never be passed as fields; log cookie names instead.
package logger
