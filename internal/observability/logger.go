package observability

import (
	"os"
	"time"

	"github.com/danmuck/penne/internal/logging"
	"github.com/rs/zerolog"
)

// InitLogger returns a logger tagged with app for the admin HTTP surface. It follows
// the runtime JSON and color settings but leaves the global logger alone.
func InitLogger(app string) zerolog.Logger {
	cfg := logging.RuntimeConfig()
	var base zerolog.Logger
	if cfg.JSON {
		base = zerolog.New(os.Stderr)
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		})
	}
	return base.Level(zerolog.GlobalLevel()).With().Timestamp().Str("app", app).Logger()
}
