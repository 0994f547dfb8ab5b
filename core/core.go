// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core holds the engine wide services that every other
// package receives explicitly: configuration, logging and time.
package core

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context carries the engine services into the components that need them.
// There is one per running engine, and several may coexist, for example in tests.
type Context struct {
	Config  Configuration
	Session uuid.UUID

	logger *logrus.Logger
}

// NewContext creates an engine context with a logger built from cfg.Log.
func NewContext(cfg Configuration) (*Context, error) {
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return NewContextWithLogger(cfg, logger), nil
}

// NewContextWithLogger creates an engine context around an existing logger.
func NewContextWithLogger(cfg Configuration, logger *logrus.Logger) *Context {
	return &Context{
		Config:  cfg,
		Session: uuid.New(),
		logger:  logger,
	}
}

// Logger returns the underlying logger.
func (c *Context) Logger() *logrus.Logger {
	return c.logger
}

// Log returns an entry tagged with the session only.
func (c *Context) Log() *logrus.Entry {
	return c.logger.WithField(SessionField, c.Session.String())
}

// Tagged returns an entry carrying a context tag, like the "VULKAN" tag
// used by the render hardware.
func (c *Context) Tagged(tag string) *logrus.Entry {
	return c.Log().WithField(ContextField, tag)
}

// Vulkan is shorthand for Tagged(VulkanTag).
func (c *Context) Vulkan() *logrus.Entry {
	return c.Tagged(VulkanTag)
}
