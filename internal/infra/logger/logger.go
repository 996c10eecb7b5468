package logger

import (
	"os"
	"strings"

	"concern2care/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// serviceName tags every entry so log aggregation can separate this module
// from the rest of the platform.
const serviceName = "concern2care"

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger from application configuration: JSON
// output in production and staging, colored text everywhere else.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		Log.SetLevel(logrus.InfoLevel)
	} else {
		Log.SetLevel(level)
	}

	switch cfg.Environment {
	case "production", "staging":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	Log.Debugf("Log level set to: %s", Log.GetLevel().String())
}

// Get returns an entry carrying the service field; callers add their own
// component field on top.
func Get() *logrus.Entry {
	return Log.WithField("service", serviceName)
}
