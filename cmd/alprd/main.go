package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/barrier"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/bus"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/camera"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/config"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/db"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/detect"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
	httpapi "github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/http"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/repository"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/service"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/session"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/storage"
)

const barrierSettle = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "alprd").Logger()
	if lvl, err := zerolog.ParseLevel(os.Getenv("ALPR_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	eventRepo := repository.NewEventRepository(gdb)
	sessionRepo := repository.NewSessionRepository(gdb)
	tracker := session.NewTracker(sessionRepo, log)
	detections := service.NewDetectionService(eventRepo, sessionRepo, tracker, log)

	barriers := barrier.NewRegistry(log)
	for _, b := range cfg.Barriers {
		var sensor barrier.Sensor = barrier.ClearSensor{}
		if b.SensorPin > 0 {
			sensor = &barrier.SimSensor{Pin: b.SensorPin, Log: log}
		}
		a := barrier.NewActuator(barrier.Descriptor{
			Key:          b.Key,
			Name:         b.Name,
			OpenDuration: b.OpenDuration,
			Timeout:      b.Timeout,
			SafetyCheck:  b.SafetyCheck,
			Settle:       barrierSettle,
		}, &barrier.SimRelay{Pin: b.RelayPin, Log: log}, sensor, log)
		if err := barriers.Add(b.Key, a); err != nil {
			log.Error().Err(err).Str("barrier", b.Key).Msg("failed to register barrier")
		}
	}
	defer barriers.CleanupAll()

	mqttClient, err := bus.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
	}
	defer mqttClient.Disconnect()

	listener := bus.NewListener(barriers, mqttClient, cfg.MQTT.StatusTopic, log)
	barriers.SetObserver(listener)
	if err := mqttClient.Subscribe(cfg.MQTT.CommandTopic, listener.HandleMessage); err != nil {
		log.Fatal().Err(err).Str("topic", cfg.MQTT.CommandTopic).Msg("failed to subscribe")
	}
	commander := bus.NewCommander(mqttClient, cfg.MQTT.CommandTopic)

	cameras := camera.NewRegistry(log)
	defer cameras.StopAll()
	factory := func(id string, width, height, fps int) camera.Device {
		return camera.NewSyntheticDevice(id, width, height, fps)
	}
	var assignments []detect.Assignment
	for _, c := range cfg.Cameras {
		desc := camera.Descriptor{
			Key:    c.Key,
			Name:   c.Name,
			Device: c.Device,
			Width:  c.Width,
			Height: c.Height,
			FPS:    c.FPS,
		}
		if err := cameras.Add(desc, factory); err != nil {
			log.Error().Err(err).Str("camera", c.Key).Msg("failed to start camera")
			continue
		}
		assignments = append(assignments, detect.Assignment{
			CameraKey: c.Key,
			BarrierID: c.Barrier,
			EventType: alpr.EventType(c.EventType),
		})
	}

	var snapshots detect.SnapshotSaver
	if cfg.Images.Enabled {
		store, err := storage.NewSnapshotStore(cfg.Images.StoragePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize snapshot storage")
		}
		snapshots = store
	}

	engine := &detect.OpenALPR{
		Binary:     cfg.Recognition.Binary,
		Country:    cfg.Recognition.Country,
		Region:     cfg.Recognition.Region,
		ConfigFile: cfg.Recognition.ConfigFile,
		Timeout:    cfg.Recognition.Timeout,
		Log:        log,
	}

	orchestrator := detect.NewOrchestrator(detect.Config{
		Interval:        cfg.Recognition.ProcessInterval,
		Cooldown:        cfg.Recognition.Cooldown,
		ConfidenceFloor: cfg.Recognition.ConfidenceThreshold,
		TopN:            cfg.Recognition.TopN,
		SaveImages:      cfg.Images.Enabled,
	}, cameras, nil, engine, detections, detections, snapshots, commander, log)

	for _, cam := range assignments {
		go orchestrator.Run(ctx, cam)
	}

	startedAt := time.Now()
	stats := bus.NewStatsPublisher(mqttClient, cfg.MQTT.StatsTopic, cfg.MQTT.StatsInterval, func() interface{} {
		return map[string]interface{}{
			"uptime_seconds": int(time.Since(startedAt).Seconds()),
			"cameras":        cameras.HealthReport(),
			"barriers":       barriers.AllStats(),
			"detection":      orchestrator.Stats(),
			"timestamp":      time.Now().UTC(),
		}
	}, log)
	go stats.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	handler := httpapi.NewHandler(detections, cameras, barriers, commander, log)
	handler.Register(r, httpapi.JWTAuth(cfg.Server.JWTSecret))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
