// sala-agent: campiona presenza e clima della sala e li pubblica su MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/agent"
	"github.com/LeonardoBeccarini/sala_telemetry/internal/connectivity"
	"github.com/LeonardoBeccarini/sala_telemetry/internal/diagnostics"
	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
	sensor_sampler "github.com/LeonardoBeccarini/sala_telemetry/internal/sensor-sampler"
	"github.com/LeonardoBeccarini/sala_telemetry/internal/telemetry"
	"github.com/LeonardoBeccarini/sala_telemetry/pkg/broker"
)

func main() {
	// .env opzionale
	_ = godotenv.Load()

	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootID := uuid.NewString()
	log.Printf("sala-agent: boot %s, client %s", bootID, cfg.ClientID)

	ranger, climate := openSensors(cfg)

	client := broker.NewClient(broker.Config{
		Host:     cfg.MQTTHost,
		Port:     cfg.MQTTPort,
		User:     cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: cfg.ClientID,
	}, nil)
	defer client.Close()

	network := connectivity.NewHostNetwork(cfg.Iface)

	// === Diagnostica ===
	metrics := diagnostics.NewMetrics(nil)
	status := diagnostics.NewStatus(bootID)
	observers := []agent.Observer{metrics, status}

	supervisor := connectivity.NewSupervisor(network, client,
		connectivity.Credentials{SSID: cfg.SSID, Passphrase: cfg.Passphrase},
		connectivity.DefaultRetryPolicy(),
		connectivity.WithRecorder(metrics),
	)
	liveState := func() entities.ConnectionState { return supervisor.State(ctx) }

	var hs *http.Server
	if cfg.HTTPAddr != "" {
		hs = diagnostics.NewServer(cfg.HTTPAddr,
			diagnostics.NewMux(status, liveState, cfg.StaleAfter, nil))
		go func() {
			log.Printf("sala-agent: HTTP listening on %s", cfg.HTTPAddr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("http server error: %v", err)
			}
		}()
	}

	if cfg.GRPCAddr != "" {
		gh := diagnostics.NewGRPCHealth("sala.telemetry")
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen %s: %v", cfg.GRPCAddr, err)
		}
		go func() {
			log.Printf("sala-agent: gRPC health on %s", cfg.GRPCAddr)
			if err := gh.Serve(lis); err != nil {
				log.Printf("grpc server stopped: %v", err)
			}
		}()
		defer gh.Stop()
		observers = append(observers, gh)
	}

	if cfg.InfluxURL != "" {
		influx := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
		defer influx.Close()
		writeAPI := influx.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket)
		observers = append(observers, diagnostics.NewMirror(writeAPI, cfg.ClientID, bootID,
			diagnostics.DefaultBreakerSettings(), nil))
		log.Printf("sala-agent: mirroring cycles to %s (%s/%s)", cfg.InfluxURL, cfg.InfluxOrg, cfg.InfluxBucket)
	}

	// === Ciclo ===
	a := agent.New(supervisor,
		sensor_sampler.NewSampler(ranger, climate),
		telemetry.NewPublisher(client, nil, metrics),
		agent.Config{CycleInterval: cfg.CycleInterval, BrokerAddress: client.Address()},
		agent.WithObservers(observers...),
	)

	err = a.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("sala-agent: %v", err)
	}
	log.Printf("sala-agent: shutting down...")

	if hs != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(shCtx)
	}
}

// openSensors apre i pin GPIO con periph, oppure il simulatore con -simulate.
func openSensors(cfg Config) (sensor_sampler.Ranger, sensor_sampler.Climate) {
	if cfg.Simulate {
		seed := cfg.SimSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		log.Printf("sala-agent: simulated sensors (seed %d)", seed)
		sim := sensor_sampler.NewSimulatedSensors(seed, cfg.SimFailRate)
		return sim, sim
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph: host init: %v", err)
	}
	trig := mustPin(cfg.TriggerPin)
	echo := mustPin(cfg.EchoPin)
	dht := mustPin(cfg.DHTPin)
	log.Printf("sala-agent: HC-SR04 on %s/%s, DHT22 on %s", trig, echo, dht)
	return sensor_sampler.NewHCSR04(trig, echo), sensor_sampler.NewDHT22(dht)
}

func mustPin(name string) gpio.PinIO {
	p := gpioreg.ByName(name)
	if p == nil {
		log.Fatalf("periph: no GPIO named %q", name)
	}
	return p
}
