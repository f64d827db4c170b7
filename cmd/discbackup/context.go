package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"discbackup/internal/config"
	"discbackup/internal/history"
	"discbackup/internal/logging"
)

// skipConfigLoad is the command annotation that opts out of loading the
// config before RunE.
const skipConfigLoad = "skipConfigLoad"

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	cache      *config.Cache
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
	runID      string
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

// ensureConfig loads the configuration once per invocation. Subsequent calls
// go through the TTL cache so a long job sees edits made to the file while it
// runs, and a broken edit keeps serving the last good snapshot.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		load := func() (*config.Config, error) {
			cfg, _, _, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		c.cache = config.NewCache(load, config.TTL(30*time.Second))
		_, c.configErr = c.cache.Get()
	})
	if c.configErr != nil {
		return nil, c.configErr
	}
	return c.cache.Get()
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.runID = uuid.NewString()
		c.logger = logging.WithRunID(logger, c.runID)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

// openHistory opens the history store. It returns nil without error when the
// history is disabled in configuration.
func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(cfg.HistoryPath())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigLoad] == "true" {
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
