package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	DefaultQuietDays   Weekdays = "MTWRF"
	DefaultGracePeriod          = 30
)

var (
	DefaultStartTime = ClockTime{Hour: 0, Minute: 30}
	DefaultEndTime   = ClockTime{Hour: 7, Minute: 0}
)

// QuietConfig holds one scope of quiet-time settings. A nil field inherits
// from the parent scope.
type QuietConfig struct {
	StartTime   *ClockTime `json:"start_time"`
	EndTime     *ClockTime `json:"end_time"`
	QuietDays   *Weekdays  `json:"quiet_days"`
	GracePeriod *int       `json:"grace_period"`
}

func DefaultQuietConfig() QuietConfig {
	start, end, days, grace := DefaultStartTime, DefaultEndTime, DefaultQuietDays, DefaultGracePeriod
	return QuietConfig{
		StartTime:   &start,
		EndTime:     &end,
		QuietDays:   &days,
		GracePeriod: &grace,
	}
}

// Merge returns a copy of q with every field set in over replacing q's value.
func (q QuietConfig) Merge(over QuietConfig) QuietConfig {
	if over.StartTime != nil {
		v := *over.StartTime
		q.StartTime = &v
	}
	if over.EndTime != nil {
		v := *over.EndTime
		q.EndTime = &v
	}
	if over.QuietDays != nil {
		v := *over.QuietDays
		q.QuietDays = &v
	}
	if over.GracePeriod != nil {
		v := *over.GracePeriod
		q.GracePeriod = &v
	}
	return q
}

// WithDefaults fills unset fields from the built-in defaults.
func (q QuietConfig) WithDefaults() QuietConfig {
	return DefaultQuietConfig().Merge(q)
}

func (q QuietConfig) IsEmpty() bool {
	return q.StartTime == nil && q.EndTime == nil && q.QuietDays == nil && q.GracePeriod == nil
}

func (q QuietConfig) String() string {
	var parts []string
	if q.StartTime != nil {
		parts = append(parts, "start: "+q.StartTime.String())
	}
	if q.EndTime != nil {
		parts = append(parts, "end: "+q.EndTime.String())
	}
	if q.QuietDays != nil {
		parts = append(parts, "days: "+q.QuietDays.String())
	}
	if q.GracePeriod != nil {
		parts = append(parts, fmt.Sprintf("grace: %d minutes", *q.GracePeriod))
	}
	if len(parts) == 0 {
		return "nothing set"
	}
	return strings.Join(parts, ", ")
}

type Overrides struct {
	Users map[string]QuietConfig `json:"users"`
	Roles map[string]QuietConfig `json:"roles"`
}

// Snowflake is a Discord identifier. Files written by older versions store
// it as a JSON number, so both forms are accepted.
type Snowflake string

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Snowflake(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid snowflake %s: %w", data, err)
	}
	*s = Snowflake(n.String())
	return nil
}

type GuildConfig struct {
	ServerID     Snowflake   `json:"server_id"`
	ServerConfig QuietConfig `json:"server_config"`
	Overrides    Overrides   `json:"overrides"`
	Holidays     []MonthDay  `json:"holidays,omitempty"`
}

func NewGuildConfig(guildID string) GuildConfig {
	return GuildConfig{
		ServerID:     Snowflake(guildID),
		ServerConfig: DefaultQuietConfig(),
		Overrides: Overrides{
			Users: map[string]QuietConfig{},
			Roles: map[string]QuietConfig{},
		},
	}
}

func (g *GuildConfig) UnmarshalJSON(data []byte) error {
	type plain GuildConfig
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = GuildConfig(p)
	g.normalize()
	return nil
}

func (g *GuildConfig) normalize() {
	g.ServerConfig = g.ServerConfig.WithDefaults()
	if g.Overrides.Users == nil {
		g.Overrides.Users = map[string]QuietConfig{}
	}
	if g.Overrides.Roles == nil {
		g.Overrides.Roles = map[string]QuietConfig{}
	}
}

// SetUserOverride merges patch into the user's existing override.
func (g *GuildConfig) SetUserOverride(userID string, patch QuietConfig) {
	g.normalize()
	g.Overrides.Users[userID] = g.Overrides.Users[userID].Merge(patch)
}

func (g *GuildConfig) SetRoleOverride(roleID string, patch QuietConfig) {
	g.normalize()
	g.Overrides.Roles[roleID] = g.Overrides.Roles[roleID].Merge(patch)
}

// ClearOverride removes the user and role override registered for id and
// reports whether one existed.
func (g *GuildConfig) ClearOverride(id string) bool {
	_, isUser := g.Overrides.Users[id]
	_, isRole := g.Overrides.Roles[id]
	delete(g.Overrides.Users, id)
	delete(g.Overrides.Roles, id)
	return isUser || isRole
}

// AddHoliday reports false when the date was already present.
func (g *GuildConfig) AddHoliday(day MonthDay) bool {
	if slices.Contains(g.Holidays, day) {
		return false
	}
	g.Holidays = append(g.Holidays, day)
	slices.SortFunc(g.Holidays, func(a, b MonthDay) int {
		if a.Month != b.Month {
			return int(a.Month) - int(b.Month)
		}
		return a.Day - b.Day
	})
	return true
}

func (g *GuildConfig) RemoveHoliday(day MonthDay) bool {
	i := slices.Index(g.Holidays, day)
	if i < 0 {
		return false
	}
	g.Holidays = slices.Delete(g.Holidays, i, i+1)
	return true
}

type RootConfig struct {
	Servers []GuildConfig `json:"servers"`
}

// Guild returns the config of guildID, or nil when the guild has none yet.
func (r *RootConfig) Guild(guildID string) *GuildConfig {
	for i := range r.Servers {
		if string(r.Servers[i].ServerID) == guildID {
			return &r.Servers[i]
		}
	}
	return nil
}

// EnsureGuild returns the config of guildID, appending a default one if needed.
func (r *RootConfig) EnsureGuild(guildID string) *GuildConfig {
	if g := r.Guild(guildID); g != nil {
		return g
	}
	r.Servers = append(r.Servers, NewGuildConfig(guildID))
	return &r.Servers[len(r.Servers)-1]
}

type Role struct {
	ID       string
	Position int
}

// Member is the part of a guild member the resolver needs.
type Member struct {
	ID    string
	Roles []Role
}

// Window is a fully resolved quiet-time configuration.
type Window struct {
	Start       ClockTime
	End         ClockTime
	Days        Weekdays
	GracePeriod int
	Holidays    []MonthDay
}

// Resolve merges the server config with the member's role overrides and then
// its user override. Role overrides are applied from the lowest to the highest
// role position, ties broken by role ID, so the highest role wins.
func (g *GuildConfig) Resolve(member *Member) Window {
	cfg := g.ServerConfig.WithDefaults()

	if member != nil {
		roles := slices.Clone(member.Roles)
		slices.SortStableFunc(roles, func(a, b Role) int {
			if a.Position != b.Position {
				return a.Position - b.Position
			}
			return strings.Compare(a.ID, b.ID)
		})
		for _, role := range roles {
			if over, ok := g.Overrides.Roles[role.ID]; ok {
				cfg = cfg.Merge(over)
			}
		}
		if over, ok := g.Overrides.Users[member.ID]; ok {
			cfg = cfg.Merge(over)
		}
	}

	return Window{
		Start:       *cfg.StartTime,
		End:         *cfg.EndTime,
		Days:        *cfg.QuietDays,
		GracePeriod: *cfg.GracePeriod,
		Holidays:    slices.Clone(g.Holidays),
	}
}

func (w Window) activeOn(t time.Time) bool {
	if !w.Days.Contains(t.Weekday()) {
		return false
	}
	for _, h := range w.Holidays {
		if h.Matches(t) {
			return false
		}
	}
	return true
}

// IsQuietAt reports whether t falls inside the quiet window. t should already
// be in the guild's time zone.
func (w Window) IsQuietAt(t time.Time) bool {
	if !w.activeOn(t) {
		return false
	}
	return between(secondOfDay(t), w.Start.seconds(), w.End.seconds())
}

// DisconnectStart is the start of the window shifted by the grace period.
func (w Window) DisconnectStart() ClockTime {
	return w.Start.AddMinutes(w.GracePeriod)
}

// IsDisconnectAt reports whether members in voice must be disconnected at t.
func (w Window) IsDisconnectAt(t time.Time) bool {
	if !w.activeOn(t) {
		return false
	}
	length := (w.End.minutes() - w.Start.minutes() + minutesPerDay) % minutesPerDay
	if w.GracePeriod > length {
		return false
	}
	return between(secondOfDay(t), w.DisconnectStart().seconds(), w.End.seconds())
}

func (w Window) String() string {
	return fmt.Sprintf("%s to %s on %s, grace %d minutes", w.Start, w.End, w.Days, w.GracePeriod)
}
