package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/giga993/TWAI-Tester/pkg/config"
	"github.com/giga993/TWAI-Tester/pkg/node"
	"github.com/giga993/TWAI-Tester/pkg/twai"
	log "github.com/sirupsen/logrus"

	_ "github.com/giga993/TWAI-Tester/pkg/twai/socketcan"
	_ "github.com/giga993/TWAI-Tester/pkg/twai/virtual"
)

var DEFAULT_DRIVER = "socketcan"
var DEFAULT_CHANNEL = "can0"

// Flags passed on the command line take precedence over the config file,
// flag defaults only apply when no config file sets the value
func applyDriverFlags(cfg *config.NodeConfig, passed map[string]bool, driverType string, channel string) {
	if passed["i"] || cfg.Driver.Interface == "" {
		cfg.Driver.Interface = driverType
	}
	if passed["c"] || cfg.Driver.Channel == "" {
		cfg.Driver.Channel = channel
	}
}

func passedFlags() map[string]bool {
	passed := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		passed[f.Name] = true
	})
	return passed
}

func main() {
	// Command line arguments
	driverType := flag.String("i", DEFAULT_DRIVER, "driver interface e.g. socketcan,virtual")
	channel := flag.String("c", DEFAULT_CHANNEL, "channel e.g. can0,vcan0")
	configPath := flag.String("f", "", "node config file path (ini)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("[MAIN] %v", err)
		}
		cfg = loaded
	} else {
		cfg.Driver.Interface = DEFAULT_DRIVER
		cfg.Driver.Channel = DEFAULT_CHANNEL
	}
	applyDriverFlags(cfg, passedFlags(), *driverType, *channel)

	driver, err := twai.NewDriver(cfg.Driver.Interface, cfg.Driver.Channel)
	if err != nil {
		log.Fatalf("[MAIN] could not create driver : %v", err)
	}

	n, err := node.NewNode(driver, cfg)
	if err != nil {
		log.Fatalf("[MAIN] invalid node config : %v", err)
	}

	// The node runs until externally stopped
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		log.Infof("[MAIN] stopping node")
		n.Stop()
	}()

	if err := n.Run(); err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
}
