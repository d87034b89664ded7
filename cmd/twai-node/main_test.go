package main

import (
	"testing"

	"github.com/giga993/TWAI-Tester/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestApplyDriverFlags(t *testing.T) {

	t.Run("config file values survive unset flags", func(t *testing.T) {
		cfg := config.Default()
		cfg.Driver.Interface = "socketcan"
		cfg.Driver.Channel = "vcan0"
		applyDriverFlags(cfg, map[string]bool{}, DEFAULT_DRIVER, DEFAULT_CHANNEL)
		assert.Equal(t, "socketcan", cfg.Driver.Interface)
		assert.Equal(t, "vcan0", cfg.Driver.Channel)
	})

	t.Run("explicit flags override the config file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Driver.Interface = "socketcan"
		cfg.Driver.Channel = "vcan0"
		applyDriverFlags(cfg, map[string]bool{"i": true, "c": true}, "virtual", "twai1")
		assert.Equal(t, "virtual", cfg.Driver.Interface)
		assert.Equal(t, "twai1", cfg.Driver.Channel)
	})

	t.Run("flag defaults fill empty config values", func(t *testing.T) {
		cfg := config.Default()
		cfg.Driver.Interface = ""
		cfg.Driver.Channel = ""
		applyDriverFlags(cfg, map[string]bool{}, DEFAULT_DRIVER, DEFAULT_CHANNEL)
		assert.Equal(t, DEFAULT_DRIVER, cfg.Driver.Interface)
		assert.Equal(t, DEFAULT_CHANNEL, cfg.Driver.Channel)
	})
}
