package main

import (
	"log/slog"
	"strings"
	"sync"

	"parallax/internal/config"
	"parallax/internal/dispatch"
	"parallax/internal/logging"
)

type commandContext struct {
	configFlag *string

	once   sync.Once
	cfg    *config.Config
	logger *slog.Logger
	err    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensure() error {
	c.once.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.err = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		if err != nil {
			c.err = err
			return
		}
		c.cfg = cfg
		c.logger = logger
	})
	return c.err
}

func (c *commandContext) configValue() (*config.Config, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return c.cfg, nil
}

func (c *commandContext) dispatcher() (*dispatch.Dispatcher, *config.Config, error) {
	if err := c.ensure(); err != nil {
		return nil, nil, err
	}
	return dispatch.New(*c.cfg, c.logger, nil), c.cfg, nil
}
