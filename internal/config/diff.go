package config

import (
	"reflect"

	"github.com/MrWong99/singalong/pkg/scoring"
)

// ConfigDiff describes what changed between two configs.
// Hot-reloadable sections get their own flag; everything else is listed in
// RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ScoringChanged is true when any scoring constant or the fuzzy switch
	// changed. The server swaps its engine in place.
	ScoringChanged bool

	// TimingChanged is true when any timing constant changed. It affects
	// only songs set up afterwards.
	TimingChanged bool

	// RestartRequired lists the changed sections that only take effect after
	// a restart (e.g., "server.listen_addr", "stt", "catalog").
	RestartRequired []string
}

// Changed reports whether the diff holds any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ScoringChanged || d.TimingChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Scoring.FuzzyEnabled() != new.Scoring.FuzzyEnabled() ||
		constantsOf(old.Scoring.Config) != constantsOf(new.Scoring.Config) {
		d.ScoringChanged = true
	}

	if old.Timing != new.Timing {
		d.TimingChanged = true
	}

	restart := []struct {
		name    string
		changed bool
	}{
		{"server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr},
		{"server.songs_dir", old.Server.SongsDir != new.Server.SongsDir},
		{"server.max_upload_bytes", old.Server.MaxUploadBytes != new.Server.MaxUploadBytes},
		{"server.tls", !reflect.DeepEqual(old.Server.TLS, new.Server.TLS)},
		{"stt", !reflect.DeepEqual(old.STT, new.STT)},
		{"catalog", old.Catalog != new.Catalog},
		{"lyrics", old.Lyrics != new.Lyrics},
		{"telemetry", old.Telemetry != new.Telemetry},
	}
	for _, r := range restart {
		if r.changed {
			d.RestartRequired = append(d.RestartRequired, r.name)
		}
	}

	return d
}

// scoringConstants is the comparable part of a scoring.Config.
type scoringConstants struct {
	near, partial, nearCredit, partialCredit float64
	bonus, bonusBelow                        int
	ratioMin, ratioMax                       float64
}

func constantsOf(c scoring.Config) scoringConstants {
	return scoringConstants{
		near:          c.NearThreshold,
		partial:       c.PartialThreshold,
		nearCredit:    c.NearCredit,
		partialCredit: c.PartialCredit,
		bonus:         c.Bonus,
		bonusBelow:    c.BonusBelow,
		ratioMin:      c.BonusRatioMin,
		ratioMax:      c.BonusRatioMax,
	}
}
