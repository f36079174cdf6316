package protocol

// Version is reported to the remote side in every pushed configuration.
const Version = "1.0.3"

type Method string

// outbound
const (
	PushConfig   Method = "push_config"
	SubmitEAGUID Method = "submit_ea_guid"
	SubmitPB     Method = "submit_pb"
)

// inbound
const (
	Kick      Method = "kick"
	PluginLog Method = "plugin_log"
)
