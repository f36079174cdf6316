package agency

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ThinkInAIXYZ/ba-agent/client"
	"github.com/ThinkInAIXYZ/ba-agent/config"
	"github.com/ThinkInAIXYZ/ba-agent/enforcement"
	"github.com/ThinkInAIXYZ/ba-agent/pkg"
	"github.com/ThinkInAIXYZ/ba-agent/protocol"
	"github.com/ThinkInAIXYZ/ba-agent/transport"
)

const apiKeyWarning = "API key not set, please acquire one at https://battlefield.agency and paste it into the API key setting"

type Option func(*Agency)

func WithLogger(logger pkg.Logger) Option {
	return func(a *Agency) {
		a.baseLogger = logger
	}
}

// WithLevelVar sets the level that the debug toggle switches. Defaults to pkg.LevelVar.
func WithLevelVar(level *slog.LevelVar) Option {
	return func(a *Agency) {
		a.level = level
	}
}

// Agency is the state of one moderation agent attached to one game server.
// Every host event and setting change ends in a RestoreState call.
type Agency struct {
	mu sync.RWMutex

	enabled                    bool
	firstServerInfoAfterEnable bool

	apiKey   string
	settings protocol.Settings

	announceKicks bool
	kickLogOn     bool
	kickLogPath   string
	debug         bool

	serverIP    string
	serverPort  int
	playerCount int

	reconcileInterval time.Duration

	commander   Commander
	client      *client.Client
	coordinator *enforcement.Coordinator
	kickLog     kickLog

	now        func() time.Time
	level      *slog.LevelVar
	baseLogger pkg.Logger
	logger     pkg.Logger
}

func New(cfg config.Agency, t transport.ClientTransport, commander Commander, opts ...Option) (*Agency, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Agency{
		apiKey:            cfg.APIKey,
		announceKicks:     cfg.AnnounceKicks,
		kickLogOn:         cfg.KickLog,
		kickLogPath:       cfg.KickLogPath,
		reconcileInterval: cfg.ReconcileInterval,
		settings: protocol.Settings{
			VPNKicks:      cfg.VPNKicks,
			CrashingBans:  cfg.CrashingBans,
			ToxicityBans:  cfg.ToxicityBans,
			GlitchingBans: cfg.GlitchingBans,
			StolenBans:    cfg.StolenBans,
		},
		commander:  commander,
		now:        time.Now,
		level:      pkg.LevelVar,
		baseLogger: pkg.DefaultLogger,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = pkg.Component(a.baseLogger, "agency")
	a.applyDebug(cfg.Debug)

	if len(cfg.Whitelist) > 0 {
		if _, err := a.parseWhitelist(cfg.Whitelist); err != nil {
			a.logger.Warnf("%v", err)
		}
	}

	a.coordinator = enforcement.NewCoordinator(hostBanner{commander: commander},
		enforcement.WithLogger(a.baseLogger),
		enforcement.WithAnnouncer(a),
		enforcement.WithKickInterval(cfg.KickInterval),
		enforcement.WithMaxAttempts(cfg.MaxKickAttempts),
		enforcement.WithBanSeconds(cfg.BanSeconds),
	)
	a.client = client.NewClient(t, a,
		client.WithLogger(a.baseLogger),
		client.WithDirectiveHandler(a),
		client.WithReconnectCooldown(cfg.ReconnectCooldown),
		client.WithBufferSize(cfg.BufferSize),
	)
	return a, nil
}

func (a *Agency) Client() *client.Client {
	return a.client
}

func (a *Agency) Coordinator() *enforcement.Coordinator {
	return a.coordinator
}

// Run reconciles periodically until ctx is done, then shuts down.
func (a *Agency) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer pkg.Recover()

		a.client.Reconcile(gctx, a.reconcileInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown closes the session and stops all running kick cycles.
func (a *Agency) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.enabled = false
	a.mu.Unlock()

	a.client.Close()
	err := a.coordinator.Shutdown(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// RunConditions implements client.Environment.
func (a *Agency) RunConditions() (transport.Credentials, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ok := a.enabled && a.serverIP != "" && a.serverPort != 0 && a.apiKey != "" && a.playerCount > 0
	if !ok {
		return transport.Credentials{}, false
	}
	return transport.Credentials{
		Identity: protocol.Identity(a.serverIP, a.serverPort),
		APIKey:   a.apiKey,
	}, true
}

// Settings implements client.Environment.
func (a *Agency) Settings() protocol.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.settings
	s.Whitelist = append([]string(nil), a.settings.Whitelist...)
	return s
}

// HandleKick implements client.DirectiveHandler.
func (a *Agency) HandleKick(ctx context.Context, d *protocol.KickDirective) {
	if !a.Enabled() {
		a.logger.Debugf("disabled, ignoring kick for '%s'", d.Name)
		return
	}
	a.coordinator.OnKickDirective(ctx, d)
}

// HandlePluginLog implements client.DirectiveHandler.
func (a *Agency) HandlePluginLog(_ context.Context, message string) {
	a.logger.Infof("%s", message)
}

// Announce implements enforcement.Announcer.
func (a *Agency) Announce(ctx context.Context, d *protocol.KickDirective) {
	a.logger.Infof("[Kick] %s", d.LogReason)

	a.mu.RLock()
	announce, logOn, path := a.announceKicks, a.kickLogOn, a.kickLogPath
	ip, port := a.serverIP, a.serverPort
	a.mu.RUnlock()

	if announce {
		if err := a.commander.Execute(ctx, CmdAdminSay, "[Battlefield Agency] [Kick] "+d.LogReason, "all"); err != nil {
			a.logger.Warnf("announce kick: %v", err)
		}
	}
	if logOn {
		if err := a.kickLog.Write(path, ip, port, d.LogReason, a.now()); err != nil {
			a.logger.Errorf("%v", err)
		}
	}
}

func (a *Agency) execute(ctx context.Context, words ...string) {
	if err := a.commander.Execute(ctx, words...); err != nil {
		a.logger.Warnf("command %v: %v", words, err)
	}
}

func (a *Agency) warnMissingAPIKey() {
	a.logger.Errorf("%s", apiKeyWarning)
}

func (a *Agency) applyDebug(debug bool) {
	a.debug = debug
	if a.level == nil {
		return
	}
	if debug {
		a.level.Set(slog.LevelDebug)
	} else {
		a.level.Set(slog.LevelInfo)
	}
}
