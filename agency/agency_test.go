package agency

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ThinkInAIXYZ/ba-agent/config"
	"github.com/ThinkInAIXYZ/ba-agent/protocol"
	"github.com/ThinkInAIXYZ/ba-agent/transport"
)

const testGUID = "5f1c2b9e-8a4d-4c55-9f33-2b7d4c1e0a11"

type fakeCommander struct {
	mu       sync.Mutex
	commands [][]string
	err      error
}

func (c *fakeCommander) Execute(_ context.Context, words ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, words)
	return c.err
}

func (c *fakeCommander) named(name string) [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]string
	for _, cmd := range c.commands {
		if len(cmd) > 0 && cmd[0] == name {
			out = append(out, cmd)
		}
	}
	return out
}

func newTestAgency(t *testing.T, mutate func(*config.Agency)) (*Agency, *transport.MockClientTransport, *fakeCommander) {
	t.Helper()

	cfg := config.Default()
	cfg.APIKey = "secret"
	cfg.KickInterval = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}

	tr := transport.NewMockClientTransport()
	tr.AutoConnect = true
	commander := &fakeCommander{}

	a, err := New(cfg, tr, commander, WithLevelVar(new(slog.LevelVar)))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, a.Shutdown(ctx))
	})
	return a, tr, commander
}

func sentMethods(s *transport.MockSession) []string {
	var out []string
	for _, m := range s.Sent() {
		out = append(out, gjson.GetBytes(m, "0").String())
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.BufferSize = 0
	_, err := New(cfg, transport.NewMockClientTransport(), &fakeCommander{})
	assert.Error(t, err)
}

func TestConnectsOnceRunConditionsHold(t *testing.T) {
	a, tr, commander := newTestAgency(t, nil)
	ctx := context.Background()

	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 3})
	assert.Empty(t, tr.Sessions(), "not enabled yet")

	a.Enable(ctx)
	assert.Len(t, commander.named(CmdServerInfo), 1)
	assert.Len(t, commander.named(CmdServerType), 1)

	s := tr.Last()
	require.NotNil(t, s)
	assert.Equal(t, transport.Credentials{Identity: "1.2.3.4_25200", APIKey: "secret"}, s.Creds)
	assert.True(t, a.Client().IsAlive())
	assert.Equal(t, []string{"push_config"}, sentMethods(s))

	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 4})
	assert.Len(t, tr.Sessions(), 1)
}

func TestEmptyServerDisconnects(t *testing.T) {
	a, tr, _ := newTestAgency(t, nil)
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 1})
	s := tr.Last()
	require.NotNil(t, s)

	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 0})
	assert.Equal(t, 1, s.CloseCalls())
	assert.False(t, a.Client().IsAlive())

	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "not an address", PlayerCount: 5})
	assert.Len(t, tr.Sessions(), 1)
}

func TestMissingAPIKeyNeverConnects(t *testing.T) {
	a, tr, _ := newTestAgency(t, func(cfg *config.Agency) { cfg.APIKey = "" })
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 2})
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 2})
	assert.Empty(t, tr.Sessions())

	a.SetAPIKey(ctx, "secret")
	assert.Len(t, tr.Sessions(), 1)
}

func TestAPIKeyChangeReconnects(t *testing.T) {
	a, tr, _ := newTestAgency(t, nil)
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 2})
	first := tr.Last()

	a.SetAPIKey(ctx, "secret")
	assert.Equal(t, 0, first.CloseCalls())

	a.SetAPIKey(ctx, "rotated")
	assert.Equal(t, 1, first.CloseCalls())
	require.Len(t, tr.Sessions(), 2)
	assert.Equal(t, "rotated", tr.Last().Creds.APIKey)
}

func TestDisableClosesAndStopsKicks(t *testing.T) {
	a, tr, commander := newTestAgency(t, nil)
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 2})
	tr.Last().Deliver(`["kick",{"name":"Sniper","guid":"EA_1","log":false,"kick_reason":"Banned"}]`)
	require.Eventually(t, func() bool { return len(commander.named(CmdBanListAdd)) == 1 }, time.Second, time.Millisecond)

	a.Disable(ctx)
	assert.False(t, a.Enabled())
	assert.False(t, a.Client().IsAlive())
	assert.False(t, a.Coordinator().Enforcing("Sniper"))
}

func TestKickIgnoredWhileDisabled(t *testing.T) {
	a, _, commander := newTestAgency(t, nil)
	ctx := context.Background()

	a.Enable(ctx)
	a.Disable(ctx)
	a.HandleKick(ctx, &protocol.KickDirective{Name: "Sniper", GUID: "EA_1", KickReason: "Banned"})

	assert.False(t, a.Coordinator().Enforcing("Sniper"))
	assert.Never(t, func() bool { return len(commander.named(CmdBanListAdd)) > 0 }, time.Millisecond*50, time.Millisecond*5)
}

func TestKickDirectiveBansAndAnnounces(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "Logs", "BAKicks.log")
	a, tr, commander := newTestAgency(t, func(cfg *config.Agency) {
		cfg.KickLog = true
		cfg.KickLogPath = logPath
	})
	a.now = func() time.Time { return time.Date(2026, 10, 14, 9, 5, 0, 0, time.UTC) }
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 2})
	tr.Last().Deliver(`["kick",{"name":"Sniper","guid":"EA_1","log":true,"log_reason":"Sniper is banned for cheating","kick_reason":"Banned: cheating"}]`)

	require.Eventually(t, func() bool { return len(commander.named(CmdBanListAdd)) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{CmdBanListAdd, "guid", "EA_1", "seconds", "1", "Banned: cheating"}, commander.named(CmdBanListAdd)[0])
	assert.Equal(t, [][]string{{CmdAdminSay, "[Battlefield Agency] [Kick] Sniper is banned for cheating", "all"}}, commander.named(CmdAdminSay))

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "[14/10/2026 09:05:00] [1.2.3.4:25200] Sniper is banned for cheating\n", string(data))

	a.OnPlayerDisconnected(ctx, "Sniper", "kicked")
	assert.False(t, a.Coordinator().Enforcing("Sniper"))
}

func TestKickWithoutAnnouncement(t *testing.T) {
	a, tr, commander := newTestAgency(t, func(cfg *config.Agency) { cfg.AnnounceKicks = false })
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 2})
	tr.Last().Deliver(`["kick",{"name":"Sniper","guid":"EA_1","log":true,"log_reason":"r","kick_reason":"k"}]`)

	require.Eventually(t, func() bool { return len(commander.named(CmdBanListAdd)) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, commander.named(CmdAdminSay))
}

func TestIdentitySubmissionsQueueWhileDisconnected(t *testing.T) {
	a, tr, commander := newTestAgency(t, nil)
	ctx := context.Background()

	a.OnPlayerAuthenticated(ctx, "Sniper", "EA_1")
	a.OnPunkbusterMessage(ctx, "PunkBuster Server: Player Guid Computed 0123456789abcdef0123456789abcdef(-) (slot #1) 10.0.0.1:3659 Sniper")
	a.OnPunkbusterMessage(ctx, "PunkBuster Server: Running PB Scheduled Task")
	assert.Len(t, a.Client().Buffered(), 2)
	assert.Len(t, commander.named(CmdServerInfo), 1)

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 1})

	s := tr.Last()
	require.NotNil(t, s)
	assert.Equal(t, []string{"push_config", "submit_ea_guid", "submit_pb"}, sentMethods(s))
	assert.Equal(t, "10.0.0.1", gjson.GetBytes(s.Sent()[2], "1.ip").String())
	assert.Equal(t, "0123456789abcdef0123456789abcdef", gjson.GetBytes(s.Sent()[2], "1.pb_guid").String())
	assert.Empty(t, a.Client().Buffered())

	a.OnPlayerJoin(ctx, "Other")
	assert.Len(t, commander.named(CmdServerInfo), 2, "only the enable request, player count is known")
}

func TestPluginLogAndServerType(t *testing.T) {
	a, tr, _ := newTestAgency(t, nil)
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerType(ctx, "OFFICIAL")
	a.OnServerType(ctx, "RANKED")
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 1})
	tr.Last().Deliver(`["plugin_log",{"message":"Server verified"}]`)
}

func TestCommanderErrorsAreNotFatal(t *testing.T) {
	a, tr, commander := newTestAgency(t, nil)
	commander.err = errors.New("not connected")
	ctx := context.Background()

	a.Enable(ctx)
	a.OnServerInfo(ctx, ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 1})
	tr.Last().Deliver(`["kick",{"name":"Sniper","guid":"EA_1","log":true,"log_reason":"r","kick_reason":"k"}]`)
	require.Eventually(t, func() bool { return len(commander.named(CmdBanListAdd)) == 1 }, time.Second, time.Millisecond)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	a, tr, _ := newTestAgency(t, func(cfg *config.Agency) { cfg.ReconcileInterval = time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())

	a.Enable(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	a.OnServerInfo(context.Background(), ServerInfo{ExternalAddr: "1.2.3.4:25200", PlayerCount: 1})
	require.Eventually(t, func() bool { return a.Client().IsAlive() }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second * 2):
		t.Fatal("Run did not return")
	}
	assert.False(t, a.Client().IsAlive())
	assert.False(t, strings.Contains(tr.Last().Creds.Identity, ":"))
}
