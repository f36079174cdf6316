package protocol

type BanReason string

const (
	BanReasonCheating      BanReason = "Cheating"
	BanReasonCrashing      BanReason = "Crashing"
	BanReasonToxicity      BanReason = "Toxicity"
	BanReasonGlitching     BanReason = "Glitching"
	BanReasonStolenAccount BanReason = "Stolen account"
)

// Settings are the enforcement options the remote side evaluates on our behalf.
type Settings struct {
	VPNKicks      bool
	CrashingBans  bool
	ToxicityBans  bool
	GlitchingBans bool
	StolenBans    bool
	// Whitelist holds canonical player GUIDs, in insertion order.
	Whitelist []string
}

// EnabledBanReasons always starts with Cheating, which cannot be turned off.
func (s Settings) EnabledBanReasons() []BanReason {
	reasons := []BanReason{BanReasonCheating}
	if s.CrashingBans {
		reasons = append(reasons, BanReasonCrashing)
	}
	if s.ToxicityBans {
		reasons = append(reasons, BanReasonToxicity)
	}
	if s.GlitchingBans {
		reasons = append(reasons, BanReasonGlitching)
	}
	if s.StolenBans {
		reasons = append(reasons, BanReasonStolenAccount)
	}
	return reasons
}

func BuildConfig(s Settings) map[string]any {
	whitelist := make([]string, len(s.Whitelist))
	copy(whitelist, s.Whitelist)
	return map[string]any{
		"plugin_version":     Version,
		"enable_ban_reasons": s.EnabledBanReasons(),
		"enable_vpn_kicks":   s.VPNKicks,
		"whitelist":          whitelist,
	}
}

func NewPushConfig(s Settings) *Call {
	return NewCall(PushConfig, map[string]any{"config": BuildConfig(s)})
}
