package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"example.com/npc-behaviour/internal/agent"
	"github.com/spf13/pflag"
)

const defaultConfigPath = "/etc/npc-agent/config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("agent: %v", err)
	}
}

func run() error {
	var cfgPath, broker, scenarioPath string
	var debug bool

	flagSet := pflag.NewFlagSet("npc-agent", pflag.ContinueOnError)
	flagSet.StringVar(&cfgPath, "config", "", "path to the agent YAML config (default $AGENT_CONFIG_PATH or "+defaultConfigPath+")")
	flagSet.StringVar(&broker, "broker", "", "MQTT broker URL, overrides mqtt_broker")
	flagSet.StringVar(&scenarioPath, "scenario", "", "behaviour tree scenario file, overrides scenario_path")
	flagSet.BoolVar(&debug, "debug", false, "log an indented trace of every tick")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if cfgPath == "" {
		cfgPath = os.Getenv("AGENT_CONFIG_PATH")
	}
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := agent.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if broker != "" {
		cfg.MQTTBroker = broker
	}
	if scenarioPath != "" {
		cfg.ScenarioPath = scenarioPath
	}
	if debug {
		cfg.Debug = true
	}

	engine := agent.NewAgentEngine(cfg)
	if cfg.ScenarioPath != "" {
		if err := engine.LoadScenarioFile(cfg.ScenarioPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("agent %s (%s) starting", cfg.AgentID, cfg.Name)
	log.Printf("available leaves: %s", strings.Join(engine.Registry.Names(), ", "))
	engine.Start(ctx)
	log.Println("shutting down agent")
	return nil
}
