package agency

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
)

// Setting names as shown by the host admin tool.
const (
	SettingAPIKey        = "API Key"
	SettingVPNKicks      = "VPN kicks"
	SettingToxicityBans  = "Enable toxicity ban list"
	SettingCrashingBans  = "Enable crasher ban list"
	SettingGlitchingBans = "Enable glitching ban list"
	SettingStolenBans    = "Enable stolen account ban list"
	SettingWhitelist     = "Whitelist"
	SettingAnnounceKicks = "Announce enforced bans"
	SettingKickLog       = "Log kicks to file"
	SettingKickLogPath   = "Kick log file path"
	SettingDebug         = "Debug"
)

// whitelistSeparator joins whitelist entries in a single setting value.
const whitelistSeparator = "|"

// SetVariable applies one setting by name, the way the host admin tool reports changes.
func (a *Agency) SetVariable(ctx context.Context, name, value string) error {
	a.logger.Debugf("set variable %s: %s", name, value)

	switch name {
	case SettingAPIKey:
		a.SetAPIKey(ctx, value)
		return nil
	case SettingKickLogPath:
		a.SetKickLogPath(value)
		return nil
	case SettingWhitelist:
		var entries []string
		if value != "" {
			entries = strings.Split(value, whitelistSeparator)
		}
		return a.SetWhitelist(ctx, entries)
	}

	set, ok := a.toggles()[name]
	if !ok {
		return fmt.Errorf("unknown setting %q", name)
	}
	on, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", name, err)
	}
	set(ctx, on)
	return nil
}

func (a *Agency) toggles() map[string]func(context.Context, bool) {
	return map[string]func(context.Context, bool){
		SettingVPNKicks:      a.SetVPNKicks,
		SettingToxicityBans:  a.SetToxicityBans,
		SettingCrashingBans:  a.SetCrashingBans,
		SettingGlitchingBans: a.SetGlitchingBans,
		SettingStolenBans:    a.SetStolenBans,
		SettingAnnounceKicks: func(_ context.Context, on bool) { a.SetAnnounceKicks(on) },
		SettingKickLog:       func(_ context.Context, on bool) { a.SetKickLog(on) },
		SettingDebug:         func(_ context.Context, on bool) { a.SetDebug(on) },
	}
}

// SetAPIKey closes a session opened with a different key and reconciles.
func (a *Agency) SetAPIKey(_ context.Context, key string) {
	a.mu.Lock()
	enabled := a.enabled
	changed := a.apiKey != key
	a.apiKey = key
	a.mu.Unlock()

	if enabled {
		if key == "" {
			a.warnMissingAPIKey()
		} else if changed {
			a.client.Close()
		}
	}
	a.client.RestoreState()
}

func (a *Agency) SetVPNKicks(ctx context.Context, on bool) {
	a.updateSettings(ctx, func() { a.settings.VPNKicks = on })
}

func (a *Agency) SetToxicityBans(ctx context.Context, on bool) {
	a.updateSettings(ctx, func() { a.settings.ToxicityBans = on })
}

func (a *Agency) SetCrashingBans(ctx context.Context, on bool) {
	a.updateSettings(ctx, func() { a.settings.CrashingBans = on })
}

func (a *Agency) SetGlitchingBans(ctx context.Context, on bool) {
	a.updateSettings(ctx, func() { a.settings.GlitchingBans = on })
}

func (a *Agency) SetStolenBans(ctx context.Context, on bool) {
	a.updateSettings(ctx, func() { a.settings.StolenBans = on })
}

// SetWhitelist replaces the whitelist with the entries that parse as player
// GUIDs. Invalid entries are reported and skipped; if none is valid the
// previous whitelist is kept. An empty list clears it.
func (a *Agency) SetWhitelist(ctx context.Context, entries []string) error {
	changed, err := a.parseWhitelist(entries)
	if err != nil {
		a.logger.Warnf("%v", err)
	}
	if changed {
		a.client.PushConfig(ctx)
	}
	return err
}

func (a *Agency) parseWhitelist(entries []string) (bool, error) {
	var (
		valid []string
		errs  []error
	)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, err := uuid.Parse(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %v", pkg.ErrInvalidWhitelistEntry, entry, err))
			continue
		}
		valid = append(valid, id.String())
	}
	err := errors.Join(errs...)

	if len(valid) == 0 && len(errs) > 0 {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.Equal(a.settings.Whitelist, valid) {
		return false, err
	}
	a.settings.Whitelist = valid
	return true, err
}

func (a *Agency) SetAnnounceKicks(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announceKicks = on
}

func (a *Agency) SetKickLog(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kickLogOn = on
}

func (a *Agency) SetKickLogPath(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kickLogPath = path
}

func (a *Agency) SetDebug(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applyDebug(on)
}

// updateSettings changes an enforcement setting and pushes the result if connected.
func (a *Agency) updateSettings(ctx context.Context, change func()) {
	a.mu.Lock()
	change()
	a.mu.Unlock()

	a.client.PushConfig(ctx)
}
