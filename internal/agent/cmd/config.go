package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	sensor_sampler "github.com/LeonardoBeccarini/sala_telemetry/internal/sensor-sampler"
)

type Config struct {
	// Wi-Fi
	SSID       string
	Passphrase string
	Iface      string // vuoto = lascia scegliere a NetworkManager

	// MQTT
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	ClientID     string

	CycleInterval time.Duration

	// Pin periph (nomi gpioreg)
	TriggerPin string
	EchoPin    string
	DHTPin     string

	Simulate    bool
	SimSeed     int64
	SimFailRate float64

	// Diagnostica (indirizzo vuoto = disabilitato)
	HTTPAddr   string
	GRPCAddr   string
	StaleAfter time.Duration

	// Mirror InfluxDB (opzionale, attivo se InfluxURL != "")
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}
func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
func getenvFloat(k string, d float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}
func getenvBool(k string, d bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// loadConfig reads the environment first; flags in args override it.
func loadConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		SSID:       getenv("WIFI_SSID", "Wokwi-GUEST"),
		Passphrase: os.Getenv("WIFI_PASSWORD"),
		Iface:      getenv("WIFI_IFACE", ""),

		MQTTHost:     getenv("MQTT_HOST", "broker.hivemq.com"),
		MQTTPort:     getenvInt("MQTT_PORT", 1883),
		MQTTUser:     getenv("MQTT_USER", ""),
		MQTTPassword: os.Getenv("MQTT_PASSWORD"),
		ClientID:     getenv("MQTT_CLIENT_ID", "ESP32_Sala_Triagem"),

		CycleInterval: time.Duration(getenvInt("CYCLE_INTERVAL_MS", 5000)) * time.Millisecond,

		TriggerPin: getenv("TRIG_PIN", "GPIO5"),
		EchoPin:    getenv("ECHO_PIN", "GPIO18"),
		DHTPin:     getenv("DHT_PIN", "GPIO4"),

		Simulate:    getenvBool("SIMULATE", false),
		SimSeed:     int64(getenvInt("SIM_SEED", 0)),
		SimFailRate: getenvFloat("SIM_FAIL_RATE", 0.05),

		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:   getenv("GRPC_ADDR", ""),
		StaleAfter: time.Duration(getenvInt("STALE_AFTER_MS", 15000)) * time.Millisecond,

		InfluxURL:    getenv("INFLUX_URL", ""),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    getenv("INFLUX_ORG", "sala"),
		InfluxBucket: getenv("INFLUX_BUCKET", "telemetry"),
	}

	// i flag hanno la precedenza sull'ambiente
	fs.StringVar(&cfg.SSID, "ssid", cfg.SSID, "Wi-Fi network name")
	fs.StringVar(&cfg.Iface, "iface", cfg.Iface, "wireless interface (empty = any)")
	fs.StringVar(&cfg.MQTTHost, "mqtt-host", cfg.MQTTHost, "MQTT broker host")
	fs.IntVar(&cfg.MQTTPort, "mqtt-port", cfg.MQTTPort, "MQTT broker port")
	fs.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client ID")
	fs.DurationVar(&cfg.CycleInterval, "interval", cfg.CycleInterval, "delay between cycles")
	fs.StringVar(&cfg.TriggerPin, "trig", cfg.TriggerPin, "HC-SR04 trigger pin")
	fs.StringVar(&cfg.EchoPin, "echo", cfg.EchoPin, "HC-SR04 echo pin")
	fs.StringVar(&cfg.DHTPin, "dht", cfg.DHTPin, "DHT22 data pin")
	fs.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "use simulated sensors instead of GPIO")
	fs.Int64Var(&cfg.SimSeed, "sim-seed", cfg.SimSeed, "simulator seed (0 = time based)")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "diagnostics HTTP address (empty disables)")
	fs.StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "gRPC health address (empty disables)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = 5 * time.Second
	}
	// il DHT22 non produce un frame nuovo prima di DHTMinInterval
	if cfg.CycleInterval < sensor_sampler.DHTMinInterval {
		log.Printf("config: interval %s below the DHT22 minimum, using %s", cfg.CycleInterval, sensor_sampler.DHTMinInterval)
		cfg.CycleInterval = sensor_sampler.DHTMinInterval
	}
	return cfg, nil
}
