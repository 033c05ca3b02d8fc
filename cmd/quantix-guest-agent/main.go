// Command quantix-guest-agent is the in-guest agent's entrypoint: a
// single long-lived process, no interactive subcommands, started with an
// optional --config path and --log-level override.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/config"
	"github.com/quantix-kvm/guest-agent/internal/dispatch"
	"github.com/quantix-kvm/guest-agent/internal/handlers"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
	"github.com/quantix-kvm/guest-agent/internal/security"
	"github.com/quantix-kvm/guest-agent/internal/telemetry"
	"github.com/quantix-kvm/guest-agent/internal/transport"
)

const appName = "quantix-guest-agent"

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "in-guest control-channel agent for Quantix-KVM"
	app.Version = handlers.AgentVersion.String()
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to agent.yaml (defaults to the platform config path)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "override the configured log level (trace|debug|info|warn|error)",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, usedPath, loadWarning := config.Load(c.String("config"))
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg)
	if loadWarning != nil {
		log.WithError(loadWarning).Warn("falling back to default configuration")
	} else if usedPath != "" {
		log.WithField("path", usedPath).Info("loaded configuration")
	}

	if cfg.Hostname != "" {
		if err := applyHostname(cfg.Hostname); err != nil {
			log.WithError(err).Warn("failed to apply configured hostname")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutdown signal received")
		cancel()
	}()

	agent := newAgent(cfg, log)
	defer agent.quiesce.Shutdown()

	return agent.runWithReconnect(ctx)
}

// agent bundles the handler set and security gate constructed once at
// startup and reused across every transport reconnect, so rate-limit
// windows and the quiesce record survive a session drop.
type agent struct {
	cfg     *config.Config
	log     *logrus.Entry
	gate    *security.Gate
	auditor *audit.Logger

	ping     *handlers.Ping
	execute  *handlers.Execute
	file     *handlers.File
	quiesce  *handlers.Quiesce
	timeSync *handlers.TimeSync
	periph   *handlers.Peripheral

	startedAt time.Time
}

func newAgent(cfg *config.Config, log *logrus.Entry) *agent {
	policy := security.NewPolicy(
		cfg.Security.CommandAllowlist,
		cfg.Security.CommandBlocklist,
		cfg.Security.AllowFileWritePaths,
		cfg.Security.DenyFileReadPaths,
	)
	gate := security.NewGate(policy, cfg.Security.MaxCommandsPerMin, cfg.Security.MaxFileOpsPerSec)
	auditor := audit.New(log.Logger, cfg.Security.AuditLogging)

	startedAt := time.Now()

	quiesceHandler := &handlers.Quiesce{Config: cfg, Audit: auditor, Log: log}
	serviceHandler := &handlers.Service{Audit: auditor, Log: log}
	processHandler := &handlers.Process{Audit: auditor, Log: log}
	lifecycleHandler := &handlers.Lifecycle{Audit: auditor, Log: log}
	displayHandler := &handlers.Display{Log: log}
	clipboardHandler := &handlers.Clipboard{Log: log}
	hardwareHandler := &handlers.Hardware{Log: log}
	softwareHandler := &handlers.Software{Log: log}
	updateHandler := &handlers.Update{Audit: auditor, Log: log}
	capabilitiesHandler := &handlers.Capabilities{Operations: supportedOperations()}

	periph := handlers.NewPeripheral(
		processHandler,
		serviceHandler,
		lifecycleHandler,
		displayHandler,
		clipboardHandler,
		hardwareHandler,
		softwareHandler,
		updateHandler,
		capabilitiesHandler,
	)

	return &agent{
		cfg:     cfg,
		log:     log,
		gate:    gate,
		auditor: auditor,

		ping:     &handlers.Ping{StartedAt: startedAt},
		execute:  &handlers.Execute{Config: cfg, Gate: gate, Audit: auditor, Log: log},
		file:     &handlers.File{Config: cfg, Gate: gate, Audit: auditor},
		quiesce:  quiesceHandler,
		timeSync: &handlers.TimeSync{Audit: auditor, Log: log},
		periph:   periph,

		startedAt: startedAt,
	}
}

func supportedOperations() []protocol.Operation {
	return []protocol.Operation{
		protocol.OpListProcesses,
		protocol.OpKillProcess,
		protocol.OpListServices,
		protocol.OpServiceControl,
		protocol.OpDisplayResize,
		protocol.OpClipboardGet,
		protocol.OpClipboardUpdate,
		protocol.OpConfigureNetwork,
		protocol.OpShutdown,
		protocol.OpResetPassword,
		protocol.OpGetHardwareInfo,
		protocol.OpListInstalledSoftware,
		protocol.OpAgentUpdate,
		protocol.OpGetCapabilities,
	}
}

// runWithReconnect owns the transport lifetime: it opens the device (or
// VSOCK), drives one dispatcher.Run over it, and on transport loss
// reconnects with the same exponential backoff device discovery uses.
func (a *agent) runWithReconnect(ctx context.Context) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, path, err := a.openTransport(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.log.WithError(err).Warn("transport open failed, retrying")
			if !sleepBackoff(ctx, &backoff, maxBackoff) {
				return nil
			}
			continue
		}
		a.log.WithField("device", path).Info("transport opened")
		backoff = 100 * time.Millisecond

		err = a.runSession(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			a.log.WithError(err).Warn("session ended, reconnecting")
		}
		if !sleepBackoff(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

func sleepBackoff(ctx context.Context, backoff *time.Duration, max time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > max {
		*backoff = max
	}
	return true
}

func (a *agent) openTransport(ctx context.Context) (transport.Duplex, string, error) {
	if a.cfg.VSockEnabled {
		if conn, err := transport.DialVSock(a.cfg.VSockCID, a.cfg.VSockPort, 5*time.Second); err == nil {
			return conn, fmt.Sprintf("vsock:%d:%d", a.cfg.VSockCID, a.cfg.VSockPort), nil
		} else {
			a.log.WithError(err).Debug("vsock dial failed, falling back to character device")
		}
	}

	candidates := a.cfg.DevicePaths()
	return transport.Discover(ctx, candidates, transport.OpenCharDevice, transport.DefaultDiscoveryConfig())
}

// runSession wires one Dispatcher against an open connection: registers
// every handler, starts the telemetry pump and the AgentReady event, and
// blocks until the session ends.
func (a *agent) runSession(ctx context.Context, conn transport.Duplex) error {
	d := dispatch.New(conn, a.log)

	d.Register(protocol.KindPing, a.ping.Handle)
	d.Register(protocol.KindExecute, a.execute.Handle)
	d.Register(protocol.KindFileWrite, a.file.Write)
	d.Register(protocol.KindFileRead, a.file.Read)
	d.Register(protocol.KindListDirectory, a.file.ListDirectory)
	d.Register(protocol.KindCreateDirectory, a.file.CreateDirectory)
	d.Register(protocol.KindFileDelete, a.file.Delete)
	d.Register(protocol.KindFileStat, a.file.Stat)
	d.Register(protocol.KindQuiesce, a.quiesce.HandleQuiesce)
	d.Register(protocol.KindThaw, a.quiesce.HandleThaw)
	d.Register(protocol.KindSyncTime, a.timeSync.HandleSyncTime)
	d.Register(protocol.KindGeneric, a.periph.Handle)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pump := telemetry.New(time.Duration(a.cfg.TelemetryIntervalSecs)*time.Second, d, a.log)
	go pump.Run(sessionCtx)

	if a.cfg.Health.Enabled {
		monitor := telemetry.NewMonitor(
			time.Duration(a.cfg.Health.IntervalSecs)*time.Second,
			time.Duration(a.cfg.Health.TelemetryTimeoutSecs)*time.Second,
			pump, a.log,
		)
		go monitor.Run(sessionCtx)
	}

	if err := d.EmitEvent(sessionCtx, &protocol.AgentReady{
		AgentVersion: handlers.AgentVersion.String(),
		Pid:          uint32(os.Getpid()),
	}); err != nil {
		a.log.WithError(err).Warn("failed to emit AgentReady")
	}

	// ReadFrame blocks on the connection, so a cancelled ctx (SIGTERM)
	// only unblocks the receive loop once the connection itself is
	// closed. Every in-flight handler's context derives from ctx, so
	// handlers are cancelled as soon as ctx is, with no grace period, and
	// a response they still produce may be dropped. Shutdown, run
	// concurrently, waits up to ShutdownGrace for the handler goroutines
	// to return.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		<-ctx.Done()
		d.Shutdown()
	}()

	return d.Run(ctx)
}
