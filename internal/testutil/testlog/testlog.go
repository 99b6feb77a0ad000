// Package testlog routes package logs through the test profile.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"optask/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("start")
}
