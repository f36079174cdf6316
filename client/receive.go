package client

import (
	"context"

	"github.com/ThinkInAIXYZ/ba-agent/protocol"
	"github.com/ThinkInAIXYZ/ba-agent/transport"
)

func (client *Client) receive(ctx context.Context, msg transport.Message) {
	call, err := protocol.Decode(msg)
	if err != nil {
		client.logger.Warnf("receive: %v", err)
		return
	}
	client.logger.Debugf("received method call: %s", call.Method)

	switch call.Method {
	case protocol.Kick:
		directive, err := protocol.ParseKickDirective(call)
		if err != nil {
			client.logger.Warnf("receive: %v", err)
			return
		}
		client.directives.HandleKick(ctx, directive)
	case protocol.PluginLog:
		message, err := protocol.ParsePluginLog(call)
		if err != nil {
			client.logger.Warnf("receive: %v", err)
			return
		}
		client.directives.HandlePluginLog(ctx, message)
	default:
		client.logger.Debugf("ignoring unknown method %s", call.Method)
	}
}
