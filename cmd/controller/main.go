package main

import (
	"log"
	"os"

	httpserver "example.com/npc-behaviour/internal/http"
	mqttc "example.com/npc-behaviour/internal/mqtt"
	"github.com/spf13/pflag"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	dbPath := pflag.String("db", envOr("DB_PATH", "controller.db"), "sqlite database path")
	addr := pflag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	broker := pflag.String("broker", "", "MQTT broker URL (default $MQTT_BROKER or tcp://127.0.0.1:1883)")
	pflag.Parse()

	mqttClient := mqttc.NewClientWithBroker("controller", *broker)
	server, err := httpserver.NewServer(*dbPath, mqttClient)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	defer server.Close()

	if err := server.Start(*addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
