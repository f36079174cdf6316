package protocol

import (
	"fmt"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
)

// KickDirective asks the agent to enforce a ban against a player.
type KickDirective struct {
	Name       string
	GUID       string
	Log        bool
	LogReason  string
	KickReason string
}

func ParseKickDirective(call *InboundCall) (*KickDirective, error) {
	if call.Method != Kick {
		return nil, fmt.Errorf("%w: expected %s, got %s", pkg.ErrMalformedMessage, Kick, call.Method)
	}
	d := &KickDirective{
		Name:       call.Get("name").String(),
		GUID:       call.Get("guid").String(),
		Log:        call.Get("log").Bool(),
		LogReason:  call.Get("log_reason").String(),
		KickReason: call.Get("kick_reason").String(),
	}
	if d.Name == "" || d.GUID == "" {
		return nil, fmt.Errorf("%w: kick requires name and guid", pkg.ErrMalformedMessage)
	}
	return d, nil
}

func ParsePluginLog(call *InboundCall) (string, error) {
	msg := call.Get("message")
	if !msg.Exists() {
		return "", fmt.Errorf("%w: plugin_log without message", pkg.ErrMalformedMessage)
	}
	return msg.String(), nil
}
