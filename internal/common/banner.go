package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the settings it will run with
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Folio", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("storage", config.Storage.Type).
		Msg("Folio starting")
}
