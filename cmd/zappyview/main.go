// Command zappyview connects to a game server as a GRAPHIC observer and
// follows the broadcast world state, reporting entity and game events on its
// logger. It is the reference consumer for the client package: a fixed tick
// drains the event queue and folds the lines into the state store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/zappytools/zappyview/internal/client"
	"github.com/zappytools/zappyview/internal/config"
	"github.com/zappytools/zappyview/internal/model"
	"github.com/zappytools/zappyview/internal/state"
	"github.com/zappytools/zappyview/internal/wire"
)

func main() {
	var (
		configPath = pflag.String("config", "", "YAML config file")
		host       = pflag.StringP("host", "H", "", "server host")
		port       = pflag.IntP("port", "p", 0, "server port")
		tick       = pflag.Duration("tick", 0, "state update cadence")
		timeUnit   = pflag.Int("time-unit", 0, "request this time unit after connecting")
		logLevel   = pflag.String("log-level", "", "log level (debug, info, warn, error)")
	)
	pflag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		if err := config.LoadFile(*configPath, &cfg); err != nil {
			fatal(err)
		}
	}
	// Flags given on the command line win over the config file.
	if pflag.CommandLine.Changed("host") {
		cfg.Host = *host
	}
	if pflag.CommandLine.Changed("port") {
		cfg.Port = *port
	}
	if pflag.CommandLine.Changed("tick") {
		cfg.TickInterval = config.Duration(*tick)
	}
	if pflag.CommandLine.Changed("time-unit") {
		cfg.TimeUnit = *timeUnit
	}
	if pflag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cl := client.New(cfg.Host, cfg.Port, client.Options{
		ConnectTimeout: cfg.ConnectTimeout.Std(),
		JoinTimeout:    cfg.JoinTimeout.Std(),
		Logger:         logger,
		OnStatus: func(s client.Status) {
			logger.Info("connection status", "status", s)
		},
	})
	if err := cl.Connect(ctx); err != nil {
		fatal(err)
	}
	defer cl.Disconnect()

	if cfg.TimeUnit > 0 {
		if err := cl.RequestTimeUnit(cfg.TimeUnit); err != nil {
			logger.Warn("request time unit", "freq", cfg.TimeUnit, "error", err)
		}
	}

	store := state.NewStore()
	store.AddListener(&logListener{logger: logger})

	runTicks(ctx, cl, store, cfg.TickInterval.Std(), logger)
}

// runTicks is the consumer loop: drain on every tick, apply in order, stop on
// cancellation or once the connection is gone and the queue is empty.
func runTicks(ctx context.Context, cl *client.Client, store *state.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	winnerAnnounced := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lines := cl.Drain()
			for _, line := range lines {
				applyLine(store, line, logger)
			}
			if team, over := store.Winner(); over && !winnerAnnounced {
				winnerAnnounced = true
				logger.Info("game over", "winner", team)
			}
			if cl.Status() == client.StatusDisconnected && len(lines) == 0 {
				return
			}
		}
	}
}

func applyLine(store *state.Store, line string, logger *slog.Logger) {
	if team, ok := wire.IsWinCondition(line); ok {
		logger.Info("win condition reached", "team", team)
	}
	ev, ok := wire.ParseEvent(line)
	if !ok {
		logger.Debug("ignoring line", "line", line)
		return
	}
	store.Apply(ev)

	switch ev.Type {
	case wire.EventPlayerBroadcast:
		logger.Info("broadcast", "player", ev.PlayerID, "message", ev.Message)
	case wire.EventServerMessage:
		logger.Info("server message", "message", ev.Message)
	case wire.EventIncantationStart:
		logger.Info("incantation started", "x", ev.Pos.X, "y", ev.Pos.Y, "target_level", ev.Level, "participants", len(ev.Participants))
	case wire.EventIncantationEnd:
		logger.Info("incantation ended", "x", ev.Pos.X, "y", ev.Pos.Y, "success", ev.Success)
	case wire.EventTimeUnit, wire.EventTimeUnitChanged:
		logger.Info("time unit", "freq", ev.Freq)
	case wire.EventMapSize:
		logger.Info("map size", "width", ev.Width, "height", ev.Height)
	}
}

// logListener is the stand-in for a rendering layer: it consumes entity
// change notifications and reports them.
type logListener struct {
	logger *slog.Logger
}

func (l *logListener) PlayerAdded(p model.Player) {
	l.logger.Info("player joined", "id", p.ID, "team", p.Team, "level", p.Level, "x", p.Pos.X, "y", p.Pos.Y)
}

func (l *logListener) PlayerUpdated(p model.Player) {
	l.logger.Debug("player updated", "id", p.ID, "team", p.Team, "level", p.Level, "x", p.Pos.X, "y", p.Pos.Y, "direction", p.Direction)
}

func (l *logListener) PlayerRemoved(id int) {
	l.logger.Info("player died", "id", id)
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", raw)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "zappyview: %v\n", err)
	os.Exit(1)
}
