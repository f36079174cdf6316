package agency

import (
	"context"

	"github.com/ThinkInAIXYZ/ba-agent/protocol"
)

func (a *Agency) Enable(ctx context.Context) {
	a.mu.Lock()
	a.enabled = true
	a.firstServerInfoAfterEnable = true
	a.mu.Unlock()

	a.logger.Infof("Plugin Enabled")
	a.execute(ctx, CmdServerInfo)
	a.execute(ctx, CmdServerType)
	a.client.RestoreState()
}

// Disable closes the session before clearing enforcement, so a kick that
// arrives meanwhile is either refused or cleared.
func (a *Agency) Disable(_ context.Context) {
	a.mu.Lock()
	a.firstServerInfoAfterEnable = false
	a.enabled = false
	a.mu.Unlock()

	a.client.RestoreState()
	a.coordinator.Clear()
	a.client.ResetCooldown()
	a.logger.Infof("Plugin Disabled")
}

func (a *Agency) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

func (a *Agency) OnServerInfo(_ context.Context, info ServerInfo) {
	ip, port, err := info.hostPort()
	if err != nil {
		a.logger.Warnf("server info: %v", err)
		return
	}

	a.mu.Lock()
	warnKey := a.firstServerInfoAfterEnable && a.apiKey == ""
	a.firstServerInfoAfterEnable = false
	a.serverIP = ip
	a.serverPort = port
	a.playerCount = info.PlayerCount
	a.mu.Unlock()

	if warnKey {
		a.warnMissingAPIKey()
	}
	a.logger.Debugf("server info: ip %s, port %d, player count %d", ip, port, info.PlayerCount)
	a.client.RestoreState()
}

func (a *Agency) OnServerType(_ context.Context, serverType string) {
	a.logger.Debugf("server type: %s", serverType)
	if serverType == "OFFICIAL" {
		a.logger.Warnf("This is an official server. VPN kicks and ban enforcement won't work through the plugin.")
	}
}

// OnPlayerJoin asks for fresh server info when no player was seen yet, so
// the run conditions catch up without waiting for the next poll.
func (a *Agency) OnPlayerJoin(ctx context.Context, name string) {
	a.logger.Debugf("player joined: %s", name)
	a.refreshIfEmpty(ctx)
}

func (a *Agency) OnPlayerAuthenticated(ctx context.Context, name, eaGUID string) {
	a.logger.Debugf("player authenticated: %s, guid %s", name, eaGUID)
	a.refreshIfEmpty(ctx)
	a.client.SendQueued(ctx, protocol.NewSubmitEAGUID(name, eaGUID))
}

func (a *Agency) OnPlayerDisconnected(_ context.Context, name, reason string) {
	a.logger.Debugf("player disconnected: %s (%s), removing from kick list", name, reason)
	a.coordinator.OnTargetLeft(name)
}

// OnPunkbusterMessage submits the identity in "Player Guid Computed" lines and ignores the rest.
func (a *Agency) OnPunkbusterMessage(ctx context.Context, line string) {
	pb, ok := parsePunkbusterGUID(line)
	if !ok {
		return
	}
	a.logger.Debugf("punkbuster guid: %s, guid %s, ip %s", pb.Name, pb.GUID, pb.IP)
	a.client.SendQueued(ctx, protocol.NewSubmitPB(pb.Name, pb.GUID, pb.IP))
}

func (a *Agency) refreshIfEmpty(ctx context.Context) {
	a.mu.RLock()
	empty := a.playerCount == 0
	a.mu.RUnlock()

	if empty {
		a.execute(ctx, CmdServerInfo)
	}
}
