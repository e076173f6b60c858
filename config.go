package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type config struct {
	HTTPAddr string `yaml:"http_addr"`

	MQTTBroker       string `yaml:"mqtt_broker"`
	MQTTClientID     string `yaml:"mqtt_client_id"`
	MQTTUsername     string `yaml:"mqtt_username"`
	MQTTPassword     string `yaml:"mqtt_password"`
	MQTTDeviceTopic  string `yaml:"mqtt_device_topic"`
	MQTTSessionTopic string `yaml:"mqtt_session_topic"`
}

// loadConfig builds the effective configuration: defaults, then the
// optional YAML file named by FLEETHUB_CONFIG, then environment
// variables. A .env file is honored when present.
func loadConfig() config {
	_ = godotenv.Load()

	cfg := config{
		HTTPAddr:         ":8080",
		MQTTClientID:     "fleet-hub",
		MQTTDeviceTopic:  "fleet/devices/+/+",
		MQTTSessionTopic: "fleet/sessions/+/+",
	}

	if path := os.Getenv("FLEETHUB_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("config: read %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("config: parse %s: %v", path, err)
		}
	}

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MQTTBroker = getenvDefault("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.MQTTUsername = getenvDefault("MQTT_USERNAME", cfg.MQTTUsername)
	cfg.MQTTPassword = getenvDefault("MQTT_PASSWORD", cfg.MQTTPassword)
	cfg.MQTTDeviceTopic = getenvDefault("MQTT_DEVICE_TOPIC", cfg.MQTTDeviceTopic)
	cfg.MQTTSessionTopic = getenvDefault("MQTT_SESSION_TOPIC", cfg.MQTTSessionTopic)

	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
