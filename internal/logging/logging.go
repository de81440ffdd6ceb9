// Package logging wires the process logger. Output goes to stderr; when a
// log file is configured it is duplicated there with size-based rotation.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

func Setup(logFile string) {
	log.SetFlags(log.LstdFlags)

	if logFile == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
}
