// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// Log fields and tags
const (
	ContextField = "context"
	SessionField = "session"
	StageField   = "stage"

	VulkanTag = "VULKAN"
	WindowTag = "WINDOW"
	InputTag  = "INPUT"
)

// NewLogger creates the engine logger. Every entry reports the calling
// function, file and line.
func NewLogger(cfg LogConfiguration) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetReportCaller(true)

	level := logrus.InfoLevel
	if cfg.Level != "" {
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "config %s", KeyLogLevel)
		}
		level = lvl
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Newf("config %s: unknown format %q", KeyLogFormat, cfg.Format)
	}

	return logger, nil
}
