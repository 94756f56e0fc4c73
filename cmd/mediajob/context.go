package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediajob/internal/app"
	"mediajob/internal/config"
	"mediajob/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	runtimeOnce sync.Once
	runtime     *app.Runtime
	runtimeErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureRuntime builds the job runtime on first use so commands that only
// read config never open a datastore.
func (c *commandContext) ensureRuntime() (*app.Runtime, error) {
	c.runtimeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.runtimeErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.runtimeErr = fmt.Errorf("init logger: %w", err)
			return
		}
		rt, err := app.New(cfg, logger)
		if err != nil {
			c.runtimeErr = err
			return
		}
		c.runtime = rt
	})
	return c.runtime, c.runtimeErr
}

// logger returns the runtime logger tagged with the command's correlation id.
func (c *commandContext) logger(ctx context.Context) *slog.Logger {
	if c.runtime == nil {
		return logging.NewNop()
	}
	return logging.WithContext(ctx, c.runtime.Logger)
}

func (c *commandContext) close() error {
	if c.runtime == nil {
		return nil
	}
	return c.runtime.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
