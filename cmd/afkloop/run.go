package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/nerrad567/afkloop/migrations"

	"github.com/nerrad567/afkloop/internal/api"
	"github.com/nerrad567/afkloop/internal/audit"
	"github.com/nerrad567/afkloop/internal/auth"
	"github.com/nerrad567/afkloop/internal/control"
	"github.com/nerrad567/afkloop/internal/gameloop"
	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/infrastructure/database"
	"github.com/nerrad567/afkloop/internal/infrastructure/desktop"
	"github.com/nerrad567/afkloop/internal/infrastructure/influxdb"
	"github.com/nerrad567/afkloop/internal/infrastructure/logging"
	"github.com/nerrad567/afkloop/internal/infrastructure/mqtt"
	"github.com/nerrad567/afkloop/internal/infrastructure/ocr"
	"github.com/nerrad567/afkloop/internal/input"
	"github.com/nerrad567/afkloop/internal/perception"
	"github.com/nerrad567/afkloop/internal/script"
	"github.com/nerrad567/afkloop/internal/stage"
	"github.com/nerrad567/afkloop/internal/state"
	"github.com/nerrad567/afkloop/internal/telemetry"
	"github.com/nerrad567/afkloop/internal/worker"
)

// scriptReloadInterval is how often the script file is checked for edits.
const scriptReloadInterval = time.Second

// runOptions are the flags shared by the root and run commands.
type runOptions struct {
	configPath string
	suspendPID int
	debug      bool
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Command-line options
//
// Returns:
//   - error: nil on clean shutdown or stop, or error describing failure
func run(ctx context.Context, opts runOptions) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting afkloop",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.debug {
		cfg.Runtime.Debug = true
	}
	log.Info("configuration loaded", "path", opts.configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	defer log.Close()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

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

	publisher := telemetry.New(log.Component("telemetry"))

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		publisher.SetBroker(mqttClient)
	}

	influxClient, err := connectInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		publisher.SetMetrics(influxClient)
	}

	recognizer, err := ocr.New()
	if err != nil {
		return fmt.Errorf("starting OCR: %w", err)
	}
	defer func() {
		if closeErr := recognizer.Close(); closeErr != nil {
			log.Error("error closing OCR", "error", closeErr)
		}
	}()
	log.Info("OCR ready", "tesseract", ocr.Version())

	offset := desktop.OffsetFromConfig(cfg.Window)
	screen := desktop.NewScreen(offset)
	device := desktop.NewInput(offset)

	st := state.New()

	engine := perception.NewEngine(perception.Config{
		Language:        cfg.Perception.Language,
		Scale:           cfg.Perception.Scale,
		DebugDir:        cfg.Perception.DebugDir,
		ConfirmKeywords: cfg.Perception.ConfirmKeywords,
		Debug:           cfg.Runtime.Debug,
		Calibrate:       cfg.Runtime.Calibrate,
	}, perception.PredicatesFromConfig(cfg.Perception), perception.Deps{
		Capturer:   screen,
		Recognizer: recognizer,
		Boxes:      recognizer,
		Pointer:    device,
		Store:      perception.NewSQLiteStore(db.DB),
		Mode:       st,
		Observer:   publisher,
	})
	engine.SetLogger(log.Component("perception"))
	if loadErr := engine.LoadCalibrations(ctx); loadErr != nil {
		return fmt.Errorf("loading calibrations: %w", loadErr)
	}

	safe := cfg.Coordinates.SafePoint
	watchdog := stage.New(device, st,
		stage.WithObserver(publisher),
		stage.WithLogger(log.Component("stage")),
		stage.WithSafePoint(safe.X, safe.Y),
	)

	gate := worker.NewGate()
	supervisor, interp, err := buildWorkers(cfg, opts, device, gate, st, publisher, log)
	if err != nil {
		return err
	}
	if interp != nil {
		go interp.Watch(ctx, scriptReloadInterval)
	}

	controller := gameloop.New(gameloop.OptionsFromConfig(cfg), gameloop.Deps{
		Perception: engine,
		Watchdog:   watchdog,
		Input:      device,
		Workers:    supervisor,
		Gate:       gate,
		State:      st,
		Recorder:   gameloop.NewSQLiteRecorder(db.DB),
		Events:     publisher,
		Notifier:   publisher,
	})
	controller.SetLogger(log.Component("gameloop"))

	auditLog := audit.NewSQLiteRepository(db.DB)
	dispatcher := control.New(control.Deps{
		State:     st,
		Gate:      gate,
		Suspender: supervisor,
		Logger:    log.Component("control"),
		Audit:     auditLog,
	})

	if cfg.API.Enabled {
		server, apiErr := startAPI(ctx, cfg, apiSources{
			db:         db,
			audit:      auditLog,
			mqtt:       mqttClient,
			state:      st,
			control:    dispatcher,
			engine:     engine,
			supervisor: supervisor,
		}, log)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		publisher.SetHub(server.Hub())
	}

	if mqttClient != nil {
		if subErr := subscribeCommands(ctx, mqttClient, dispatcher, cfg.MQTT.QoS, log); subErr != nil {
			return subErr
		}
	}

	log.Info("initialisation complete, starting control loop")

	runErr := controller.Run(ctx)

	// Deferred Close() calls run in reverse order: API, OCR, InfluxDB,
	// MQTT, database, then the log file.
	if runErr != nil {
		return fmt.Errorf("control loop: %w", runErr)
	}
	log.Info("afkloop stopped")
	return nil
}

// connectMQTT connects when MQTT is enabled and returns nil otherwise.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB connects when InfluxDB is enabled and returns nil otherwise.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetLogger(log.Component("influxdb"))
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// buildWorkers creates the keepalive and action workers and their supervisor.
// Each worker sends input through its own tracker so a stop or suspend only
// releases what that worker holds.
//
// Returns the script interpreter when scripting is enabled, nil otherwise.
func buildWorkers(
	cfg *config.Config,
	opts runOptions,
	device input.Device,
	gate *worker.Gate,
	st *state.State,
	notifier script.Notifier,
	log *logging.Logger,
) (*worker.Supervisor, *script.Interpreter, error) {
	keepTracker := input.NewTracker(device)
	actionTracker := input.NewTracker(device)
	op := script.NewOperator(actionTracker, actionTracker)

	var (
		interp *script.Interpreter
		runner worker.ScriptRunner
	)
	if cfg.Script.Enabled {
		interp = script.New(script.FileSource{Path: cfg.Script.Path}, op)
		interp.SetLogger(log.Component("script"))
		interp.SetNotifier(notifier)
		interp.SetGate(actionTracker)
		if err := interp.Load(); err != nil {
			return nil, nil, fmt.Errorf("loading script: %w", err)
		}
		runner = interp
	}

	graceful := config.Millis(cfg.Workers.GracefulTimeout)
	keepalive := worker.New(worker.Config{
		Name:            "keepalive",
		Gate:            gate,
		Tracker:         keepTracker,
		GracefulTimeout: graceful,
		Step:            worker.Keepalive(keepTracker, cfg.Workers.KeepaliveKey, config.Millis(cfg.Workers.KeepaliveHold)),
	})
	action := worker.New(worker.Config{
		Name:            "action",
		Gate:            gate,
		Tracker:         actionTracker,
		GracefulTimeout: graceful,
		Step: worker.Action(worker.ActionConfig{
			Role:      cfg.Runtime.Role,
			Mode:      cfg.Runtime.Mode,
			Script:    runner,
			Operator:  op,
			Character: st.Character,
		}),
	})
	keepalive.SetLogger(log.Component("worker"))
	action.SetLogger(log.Component("worker"))

	var suspender worker.Suspender = worker.NewGateSuspender(gate)
	if opts.suspendPID > 0 {
		suspender = worker.MultiSuspender{suspender, worker.SignalSuspender{PID: opts.suspendPID}}
	}

	supervisor := worker.NewSupervisor(st, suspender, keepalive, action)
	supervisor.SetLogger(log.Component("supervisor"))
	supervisor.SetSettle(config.Millis(cfg.Workers.SuspendSettle))
	return supervisor, interp, nil
}

// apiSources are the runtime components the API reads from.
type apiSources struct {
	db         *database.DB
	audit      *audit.SQLiteRepository
	mqtt       *mqtt.Client
	state      *state.State
	control    *control.Dispatcher
	engine     *perception.Engine
	supervisor *worker.Supervisor
}

// startAPI creates and starts the HTTP server. MQTT may be nil.
func startAPI(ctx context.Context, cfg *config.Config, src apiSources, log *logging.Logger) (*api.Server, error) {
	deps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Auth:       auth.NewAuthenticator(cfg.Security),
		State:      src.state,
		Control:    src.control,
		Predicates: src.engine,
		Matches:    gameloop.NewSQLiteRecorder(src.db.DB),
		Audit:      src.audit,
		Workers:    src.supervisor,
		DB:         src.db,
		Version:    version,
	}
	// A nil *mqtt.Client in the interface would not compare equal to nil.
	if src.mqtt != nil {
		deps.MQTT = src.mqtt
	}

	server, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	log.Info("API server listening", "host", cfg.API.Host, "port", cfg.API.Port)
	return server, nil
}

// Commander executes control actions. Implemented by *control.Dispatcher.
type Commander interface {
	Do(ctx context.Context, action string) error
}

// CommandSource is the MQTT surface the command handler needs.
type CommandSource interface {
	SubscribeCommands(qos byte, handler mqtt.CommandHandler) error
}

// subscribeCommands routes afkloop/command/<action> messages to the
// dispatcher. Payloads are ignored.
func subscribeCommands(ctx context.Context, src CommandSource, cmd Commander, qos int, log *logging.Logger) error {
	if err := src.SubscribeCommands(byte(qos), commandHandler(ctx, cmd, log)); err != nil {
		return fmt.Errorf("subscribing to MQTT commands: %w", err)
	}
	log.Info("listening for MQTT commands", "topic", mqtt.Topics{}.AllCommands())
	return nil
}

func commandHandler(ctx context.Context, cmd Commander, log *logging.Logger) mqtt.CommandHandler {
	ctx = control.WithOrigin(ctx, control.Origin{Source: audit.SourceMQTT})
	return func(action string) error {
		if err := cmd.Do(ctx, action); err != nil {
			if errors.Is(err, control.ErrStopped) {
				log.Info("ignoring command after stop", "action", action)
				return nil
			}
			return fmt.Errorf("command %s: %w", action, err)
		}
		log.Info("MQTT command applied", "action", action)
		return nil
	}
}
