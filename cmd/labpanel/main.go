// Lab Panel - laboratory access control and device gateway
//
// This is the main entry point of the panel core. It accepts field devices
// on the device channel, relays their status and sensor data to operators,
// forwards operator commands to devices and runs the door lock state
// machines that guard the lab.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/DaLongZhuaZi/rpi-panel/migrations"

	"github.com/DaLongZhuaZi/rpi-panel/internal/api"
	"github.com/DaLongZhuaZi/rpi-panel/internal/audit"
	"github.com/DaLongZhuaZi/rpi-panel/internal/auth"
	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/devicelink"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/gateway"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/config"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/database"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/influxdb"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/logging"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the panel together and blocks until ctx is cancelled.
// Deferred cleanups run in reverse order of start.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,funlen // sequential startup wiring
	log := logging.Default()
	log.Info("starting lab panel",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Audit trail database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Core state
	fo := fanout.New()
	fo.SetLogger(log)

	registry := device.NewRegistry(fo)
	registry.SetLogger(log)
	store := device.NewStore(cfg.History.StatusCapacity, cfg.History.SensorCapacity, registry)

	correlator := command.NewCorrelator(cfg.History.PendingCapacity, cfg.History.ResultCapacity, fo)
	correlator.SetLogger(log)
	dispatcher := command.NewDispatcher(registry)
	dispatcher.SetLogger(log)
	commands := command.NewService(dispatcher, correlator)

	locks, err := doorlock.NewManager(cfg.Locks, commands, fo)
	if err != nil {
		return fmt.Errorf("configuring door locks: %w", err)
	}
	locks.SetLogger(log)
	defer locks.Close()
	log.Info("door locks configured", "locks", len(locks.List()))

	// Audit recorder: stopped and drained before the database closes.
	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, 0)
	recorder.SetLogger(log)
	auditCtx, stopAudit := context.WithCancel(context.Background())
	go recorder.Run(auditCtx)
	defer func() {
		stopAudit()
		<-recorder.Done()
	}()
	locks.SetRecorder(recorder)
	correlator.OnResultListener(recorder.RecordResult)

	eventLog := gateway.NewEventLog(cfg.History.LogCapacity)
	fo.AddSink(eventLog)

	gw := gateway.New(gateway.Deps{
		Registry:   registry,
		Store:      store,
		Correlator: correlator,
		Locks:      locks,
		Publisher:  fo,
		EventLog:   eventLog,
		Logger:     log,
	})

	channel := devicelink.NewServer(cfg.DeviceChannel, gw)
	channel.SetLogger(log)
	defer func() {
		log.Info("closing device sessions")
		channel.Shutdown()
	}()
	if cfg.DeviceChannel.Token == "" {
		log.Warn("device channel token not set, any client may register as a device")
	}

	// MQTT bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = startMQTT(ctx, cfg.MQTT, gw, fo, log)
		if err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT bridge disabled")
	}

	// Telemetry export (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		fo.AddSink(gateway.NewTelemetrySink(influxClient, cfg.Site.ID))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// HTTP API, observer WebSocket and device channel
	directory, err := auth.NewDirectory(cfg.Security.Admins)
	if err != nil {
		return fmt.Errorf("loading operator accounts: %w", err)
	}
	if len(cfg.Security.Admins) == 0 {
		log.Warn("no operator accounts configured, the API will reject every login")
	}

	var broker api.ConnectionChecker
	if mqttClient != nil {
		broker = mqttClient
	}
	server, err := api.New(api.Deps{
		Config:            cfg.API,
		WS:                cfg.WebSocket,
		Security:          cfg.Security,
		History:           cfg.History,
		Logger:            log,
		Registry:          registry,
		Store:             store,
		Commands:          commands,
		Locks:             locks,
		Directory:         directory,
		AuditRepo:         auditRepo,
		Audit:             recorder,
		EventLog:          eventLog,
		DB:                db.DB,
		MQTT:              broker,
		DeviceChannel:     channel,
		DeviceChannelPath: cfg.DeviceChannel.Path,
		Version:           version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	fo.AddSink(server.Hub())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Host sensors (optional)
	if cfg.LocalSensors.Enabled {
		poller := &device.Poller{
			DeviceID: cfg.LocalSensors.DeviceID,
			Types:    []string{device.SensorCPUTemperature},
			Interval: cfg.LocalSensors.GetInterval(),
			Reader:   device.ThermalReader{Path: cfg.LocalSensors.ThermalPath},
			Sink:     gw,
			Logger:   log,
		}
		go func() {
			if pollErr := poller.Run(ctx); pollErr != nil && !errors.Is(pollErr, context.Canceled) {
				log.Error("local sensor poller stopped", "error", pollErr)
			}
		}()
		log.Info("local sensors enabled",
			"device_id", cfg.LocalSensors.DeviceID,
			"interval", cfg.LocalSensors.GetInterval(),
		)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	eventLog.System(gateway.LevelInfo, "panel started, version "+version)
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"device_channel", cfg.DeviceChannel.Path,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LABPANEL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LABPANEL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startMQTT connects to the broker, mirrors fan-out events to it and
// accepts status and sensor data published by devices.
func startMQTT(ctx context.Context, cfg config.MQTTConfig, gw *gateway.Gateway, fo *fanout.Fanout, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	topics := client.Topics()
	if err := client.Subscribe(topics.AllIngest(), client.QoS(), gw.IngestHandler(topics)); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("subscribing to ingest topics: %w", err)
	}

	mirror := gateway.NewEventMirror(client, topics, 0)
	mirror.SetLogger(log)
	go mirror.Run(ctx)
	fo.AddSink(mirror)

	log.Info("MQTT bridge started",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
		"ingest", topics.AllIngest(),
	)
	return client, nil
}

// healthCheck verifies the infrastructure connections.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
