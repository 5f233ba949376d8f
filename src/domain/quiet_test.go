package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func clock(t *testing.T, s string) *ClockTime {
	t.Helper()
	c, err := ParseClockTime(s)
	if err != nil {
		t.Fatalf("ParseClockTime(%q): %v", s, err)
	}
	return &c
}

func days(s string) *Weekdays {
	w := Weekdays(s)
	return &w
}

func minutes(n int) *int {
	return &n
}

// at builds a time on 2024-01-01 (a Monday) shifted by offset days.
func at(offset int, hour, minute int) time.Time {
	return time.Date(2024, time.January, 1+offset, hour, minute, 0, 0, time.UTC)
}

func TestResolveWithoutMemberReturnsServerConfig(t *testing.T) {
	g := NewGuildConfig("1")
	g.ServerConfig = QuietConfig{
		StartTime:   clock(t, "22:15"),
		EndTime:     clock(t, "06:45"),
		QuietDays:   days("MTWRFSU"),
		GracePeriod: minutes(10),
	}
	g.SetUserOverride("u", QuietConfig{StartTime: clock(t, "01:00")})

	got := g.Resolve(nil)
	want := Window{
		Start:       ClockTime{Hour: 22, Minute: 15},
		End:         ClockTime{Hour: 6, Minute: 45},
		Days:        "MTWRFSU",
		GracePeriod: 10,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve(nil) = %+v, want %+v", got, want)
	}
}

func TestResolvePrecedence(t *testing.T) {
	g := NewGuildConfig("1")
	g.SetRoleOverride("low", QuietConfig{StartTime: clock(t, "01:00"), EndTime: clock(t, "05:00"), GracePeriod: minutes(5)})
	g.SetRoleOverride("high", QuietConfig{StartTime: clock(t, "02:00"), QuietDays: days("SU")})
	g.SetUserOverride("u", QuietConfig{StartTime: clock(t, "03:00")})

	tests := []struct {
		name   string
		member *Member
		want   Window
	}{
		{
			name:   "no overrides apply",
			member: &Member{ID: "other"},
			want:   Window{Start: DefaultStartTime, End: DefaultEndTime, Days: DefaultQuietDays, GracePeriod: DefaultGracePeriod},
		},
		{
			name:   "highest role wins field by field",
			member: &Member{ID: "other", Roles: []Role{{ID: "high", Position: 5}, {ID: "low", Position: 1}}},
			want:   Window{Start: ClockTime{2, 0}, End: ClockTime{5, 0}, Days: "SU", GracePeriod: 5},
		},
		{
			name:   "role order in the member list does not matter",
			member: &Member{ID: "other", Roles: []Role{{ID: "low", Position: 1}, {ID: "high", Position: 5}}},
			want:   Window{Start: ClockTime{2, 0}, End: ClockTime{5, 0}, Days: "SU", GracePeriod: 5},
		},
		{
			name:   "user wins over roles",
			member: &Member{ID: "u", Roles: []Role{{ID: "high", Position: 5}, {ID: "low", Position: 1}}},
			want:   Window{Start: ClockTime{3, 0}, End: ClockTime{5, 0}, Days: "SU", GracePeriod: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Resolve(tt.member)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveEqualPositionTieBreak(t *testing.T) {
	g := NewGuildConfig("1")
	g.SetRoleOverride("a", QuietConfig{GracePeriod: minutes(1)})
	g.SetRoleOverride("b", QuietConfig{GracePeriod: minutes(2)})

	for _, roles := range [][]Role{
		{{ID: "a", Position: 3}, {ID: "b", Position: 3}},
		{{ID: "b", Position: 3}, {ID: "a", Position: 3}},
	} {
		got := g.Resolve(&Member{ID: "m", Roles: roles})
		if got.GracePeriod != 2 {
			t.Fatalf("grace = %d with roles %v, want 2", got.GracePeriod, roles)
		}
	}
}

func TestResolveUserOverrideInheritsUnsetFields(t *testing.T) {
	g := NewGuildConfig("1")
	g.SetUserOverride("u", QuietConfig{StartTime: clock(t, "02:00")})

	got := g.Resolve(&Member{ID: "u"})
	want := Window{Start: ClockTime{2, 0}, End: ClockTime{7, 0}, Days: "MTWRF", GracePeriod: 30}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestIsQuietAt(t *testing.T) {
	tests := []struct {
		name   string
		window Window
		now    time.Time
		want   bool
	}{
		{"inside same-day window", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF"}, at(0, 3, 0), true},
		{"start bound inclusive", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF"}, at(0, 0, 30), true},
		{"end bound inclusive", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF"}, at(0, 7, 0), true},
		{"after end", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF"}, at(0, 7, 1), false},
		{"wraparound late evening", Window{Start: ClockTime{23, 0}, End: ClockTime{1, 0}, Days: "MTWRFSU"}, at(0, 23, 30), true},
		{"wraparound after midnight", Window{Start: ClockTime{23, 0}, End: ClockTime{1, 0}, Days: "MTWRFSU"}, at(1, 0, 30), true},
		{"wraparound excludes noon", Window{Start: ClockTime{23, 0}, End: ClockTime{1, 0}, Days: "MTWRFSU"}, at(0, 12, 0), false},
		{"saturday gated", Window{Start: ClockTime{0, 0}, End: ClockTime{23, 59}, Days: "MTWRF"}, at(5, 3, 0), false},
		{"sunday gated", Window{Start: ClockTime{0, 0}, End: ClockTime{23, 59}, Days: "MTWRF"}, at(6, 3, 0), false},
		{"holiday lifts quiet time", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF", Holidays: []MonthDay{{time.January, 1}}}, at(0, 3, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.IsQuietAt(tt.now); got != tt.want {
				t.Fatalf("IsQuietAt(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsDisconnectAt(t *testing.T) {
	tests := []struct {
		name   string
		window Window
		now    time.Time
		want   bool
	}{
		{"within grace", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF", GracePeriod: 30}, at(0, 0, 45), false},
		{"grace elapsed", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF", GracePeriod: 30}, at(0, 1, 0), true},
		{"grace pushes past midnight", Window{Start: ClockTime{23, 45}, End: ClockTime{6, 0}, Days: "MTWRFSU", GracePeriod: 30}, at(1, 0, 10), false},
		{"after shifted start past midnight", Window{Start: ClockTime{23, 45}, End: ClockTime{6, 0}, Days: "MTWRFSU", GracePeriod: 30}, at(1, 0, 20), true},
		{"weekend gated", Window{Start: ClockTime{0, 30}, End: ClockTime{7, 0}, Days: "MTWRF", GracePeriod: 0}, at(5, 3, 0), false},
		{"grace longer than window", Window{Start: ClockTime{23, 0}, End: ClockTime{23, 10}, Days: "MTWRFSU", GracePeriod: 30}, at(0, 12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.IsDisconnectAt(tt.now); got != tt.want {
				t.Fatalf("IsDisconnectAt(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestGuildConfigJSONRoundTrip(t *testing.T) {
	g := NewGuildConfig("1234")
	g.ServerConfig.StartTime = clock(t, "23:00")
	g.SetUserOverride("42", QuietConfig{StartTime: clock(t, "02:00")})
	g.SetRoleOverride("7", QuietConfig{QuietDays: days("SU"), GracePeriod: minutes(0)})
	g.AddHoliday(MonthDay{time.December, 25})

	data, err := json.Marshal(RootConfig{Servers: []GuildConfig{g}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var root RootConfig
	if err := json.Unmarshal(data, &root); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := root.Guild("1234")
	if got == nil {
		t.Fatal("guild missing after reload")
	}
	if !reflect.DeepEqual(*got, g) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, g)
	}
}

func TestGuildConfigUnmarshalFillsDefaults(t *testing.T) {
	data := `{"servers":[{"server_id":1234567890123456789,"server_config":{"start_time":"22:00","end_time":null},
		"overrides":{"users":{"9":{"start_time":null,"end_time":"05:00","quiet_days":null,"grace_period":null}}}}]}`

	var root RootConfig
	if err := json.Unmarshal([]byte(data), &root); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	g := root.Guild("1234567890123456789")
	if g == nil {
		t.Fatal("numeric server_id not matched")
	}

	w := g.Resolve(&Member{ID: "9"})
	want := Window{Start: ClockTime{22, 0}, End: ClockTime{5, 0}, Days: DefaultQuietDays, GracePeriod: DefaultGracePeriod}
	if !reflect.DeepEqual(w, want) {
		t.Fatalf("got %+v, want %+v", w, want)
	}
	if g.Overrides.Roles == nil {
		t.Fatal("roles map not initialised")
	}
}

func TestQuietDaysJSON(t *testing.T) {
	var cfg QuietConfig
	if err := json.Unmarshal([]byte(`{"quiet_days":"fsu"}`), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.QuietDays == nil || *cfg.QuietDays != "FSU" {
		t.Fatalf("quiet_days = %v, want FSU", cfg.QuietDays)
	}

	err := json.Unmarshal([]byte(`{"quiet_days":"weekends"}`), &cfg)
	if !errors.Is(err, ErrInvalidWeekdays) {
		t.Fatalf("err = %v, want ErrInvalidWeekdays", err)
	}
}

func TestClearOverride(t *testing.T) {
	g := NewGuildConfig("1")
	g.SetUserOverride("x", QuietConfig{GracePeriod: minutes(1)})
	if !g.ClearOverride("x") {
		t.Fatal("expected override to be cleared")
	}
	if g.ClearOverride("x") {
		t.Fatal("second clear should report nothing removed")
	}
}

func TestHolidays(t *testing.T) {
	g := NewGuildConfig("1")
	if !g.AddHoliday(MonthDay{time.December, 25}) || !g.AddHoliday(MonthDay{time.January, 1}) {
		t.Fatal("expected holidays to be added")
	}
	if g.AddHoliday(MonthDay{time.January, 1}) {
		t.Fatal("duplicate holiday added")
	}
	if g.Holidays[0] != (MonthDay{time.January, 1}) {
		t.Fatalf("holidays not sorted: %v", g.Holidays)
	}
	if !g.RemoveHoliday(MonthDay{time.January, 1}) || g.RemoveHoliday(MonthDay{time.March, 3}) {
		t.Fatal("unexpected remove result")
	}
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in      string
		want    Weekdays
		wantErr bool
	}{
		{in: "mtwrf", want: "MTWRF"},
		{in: "UMS", want: "MSU"},
		{in: "MMT", want: "MT"},
		{in: "MX", wantErr: true},
		{in: "", want: ""},
		{in: " None ", want: ""},
		{in: "weekends", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseWeekdays(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidWeekdays) {
				t.Fatalf("ParseWeekdays(%q) err = %v, want ErrInvalidWeekdays", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseWeekdays(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseRejectsTrailingInput(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "07:00", want: ClockTime{7, 0}},
		{in: "7:05", want: ClockTime{7, 5}},
		{in: " 23:59 ", want: ClockTime{23, 59}},
		{in: "07:00junk", wantErr: true},
		{in: "07:00:30", wantErr: true},
		{in: "7", wantErr: true},
		{in: "-1:00", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClockTime(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidClockTime) {
				t.Fatalf("ParseClockTime(%q) err = %v, want ErrInvalidClockTime", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseClockTime(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	var day MonthDay
	if err := json.Unmarshal([]byte(`"12-25"`), &day); err != nil || day != (MonthDay{time.December, 25}) {
		t.Fatalf("12-25 = %v, %v", day, err)
	}
	for _, in := range []string{`"12-25x"`, `"12/25"`, `"1225"`} {
		if err := json.Unmarshal([]byte(in), &day); err == nil {
			t.Fatalf("holiday %s accepted", in)
		}
	}
}

func TestEmptyQuietDaysNeverQuiet(t *testing.T) {
	g := NewGuildConfig("1")
	g.SetUserOverride("9", QuietConfig{QuietDays: days("")})

	w := g.Resolve(&Member{ID: "9"})
	if w.Days.String() != NoQuietDays {
		t.Fatalf("days = %q", w.Days)
	}
	for offset := 0; offset < 7; offset++ {
		if w.IsQuietAt(at(offset, 3, 0)) || w.IsDisconnectAt(at(offset, 3, 0)) {
			t.Fatalf("quiet on day %d with no quiet days", offset)
		}
	}
	if !g.Resolve(&Member{ID: "other"}).IsQuietAt(at(0, 3, 0)) {
		t.Fatal("other members lost the server window")
	}
}

func TestNewClockTime(t *testing.T) {
	if _, err := NewClockTime(24, 0); !errors.Is(err, ErrInvalidHour) {
		t.Fatalf("hour 24: %v", err)
	}
	if _, err := NewClockTime(-1, 0); !errors.Is(err, ErrInvalidHour) {
		t.Fatalf("hour -1: %v", err)
	}
	if _, err := NewClockTime(5, 60); !errors.Is(err, ErrInvalidMinute) {
		t.Fatalf("minute 60: %v", err)
	}
	if got := (ClockTime{23, 50}).AddMinutes(30); got != (ClockTime{0, 20}) {
		t.Fatalf("AddMinutes wrap = %v", got)
	}
}
