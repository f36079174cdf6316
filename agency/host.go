package agency

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// Commander sends a server command through the host admin tool, one word per argument.
type Commander interface {
	Execute(ctx context.Context, words ...string) error
}

type CommanderF func(ctx context.Context, words ...string) error

func (f CommanderF) Execute(ctx context.Context, words ...string) error {
	return f(ctx, words...)
}

// Server commands the agent issues.
const (
	CmdServerInfo = "serverInfo"
	CmdServerType = "vars.serverType"
	CmdBanListAdd = "banList.add"
	CmdAdminSay   = "admin.say"
)

// ServerInfo is the part of a host server-info update the agent uses.
type ServerInfo struct {
	// ExternalAddr is "ip:port" as reported by the game server.
	ExternalAddr string
	PlayerCount  int
}

func (info ServerInfo) hostPort() (string, int, error) {
	host, portStr, err := net.SplitHostPort(info.ExternalAddr)
	if err != nil {
		return "", 0, fmt.Errorf("parse external address %q: %w", info.ExternalAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parse external port %q: %w", portStr, err)
	}
	return host, port, nil
}

// hostBanner adds a timed GUID ban to the server ban list.
type hostBanner struct {
	commander Commander
}

func (b hostBanner) Ban(ctx context.Context, guid string, seconds int, reason string) error {
	return b.commander.Execute(ctx, CmdBanListAdd, "guid", guid, "seconds", strconv.Itoa(seconds), reason)
}
