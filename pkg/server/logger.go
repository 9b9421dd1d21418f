package server

import (
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// DefaultLogger builds the process logger used by the command line tools:
// JSON on stdout, tagged with the app name and, when the binary carries
// build info, the short commit hash.
func DefaultLogger(appName string) *zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp().Str("app", appName)
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) == 40 {
				ctx = ctx.Str("commit", setting.Value[:7])
				break
			}
		}
	}
	logger := ctx.Logger()
	return &logger
}

// SetLevel applies the configured global log level. An empty level keeps the
// default; an unparseable one is fatal.
func SetLevel(logger *zerolog.Logger, level string) {
	if level == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unrecognized log level.")
	}
	zerolog.SetGlobalLevel(lvl)
}
