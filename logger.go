package main

import (
	"io"

	"github.com/gruntwork-io/go-commons/logging"
	"github.com/sirupsen/logrus"
)

const projectName = "release-creator"

const DEFAULT_LOG_LEVEL = logrus.InfoLevel

// GetProjectLoggerWithWriter creates a logger around the given output stream
func GetProjectLoggerWithWriter(writer io.Writer) *logrus.Entry {
	logger := logging.GetLogger(projectName)
	logger.SetOutput(writer)
	return logrus.NewEntry(logger)
}
