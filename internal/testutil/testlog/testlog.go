// Package testlog routes test output through the shared zerolog setup.
package testlog

import (
	"testing"

	"github.com/danmuck/penne/internal/logging"
	"github.com/rs/zerolog/log"
)

// Start configures test logging and brackets t with start and failure lines.
func Start(t testing.TB) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("testlog.Start")
	t.Cleanup(func() {
		if t.Failed() {
			log.Warn().Str("test", t.Name()).Msg("testlog.Start failed")
		}
	})
}
