package main

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/viaorg/viaorg/config"
)

// setupLogger configures a global logrus logger. If log file is
// configured, returned writer has to be closed at the end.
func setupLogger(conf *config.Config) *lumberjack.Logger {
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(log.WarnLevel)
	log.SetOutput(os.Stderr)

	if conf.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if conf.LogFile == "" {
		return nil
	}

	writer := &lumberjack.Logger{
		Filename:   conf.LogFile,
		MaxSize:    conf.LogRotation.MaxSize,
		MaxBackups: conf.LogRotation.MaxBackups,
		MaxAge:     conf.LogRotation.MaxAge,
	}

	log.SetFormatter(&log.TextFormatter{DisableColors: true})
	log.SetOutput(io.MultiWriter(os.Stderr, writer))

	return writer
}
