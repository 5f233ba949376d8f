package usecase

import (
	"DadBot/src/domain"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	loadFailedMessage = "An error occurred while loading the quiet time config."
	saveFailedMessage = "An error occurred while saving the quiet time config."
)

type ParentalCommand interface {
	ParentalCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate)
}

func NewParentalCommand(guilds GuildConfigRepository, gateway DiscordGateway, clock clockwork.Clock, location *time.Location, logger *zap.SugaredLogger) ParentalCommand {
	if location == nil {
		location = time.Local
	}
	return &parentalCommand{
		guilds:   guilds,
		gateway:  gateway,
		clock:    clock,
		location: location,
		logger:   logger,
	}
}

type parentalCommand struct {
	guilds   GuildConfigRepository
	gateway  DiscordGateway
	clock    clockwork.Clock
	location *time.Location
	logger   *zap.SugaredLogger
}

func (p *parentalCommand) ParentalCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := subCommandOf(i)
	if sub == nil {
		return // Must never happen, every parental command has a subcommand
	}

	invokerID := ""
	if i.Member != nil && i.Member.User != nil {
		invokerID = i.Member.User.ID
	}

	respond(s, i, p.execute(i.GuildID, invokerID, sub), p.logger)
}

func (p *parentalCommand) execute(guildID, invokerID string, sub *discordgo.ApplicationCommandInteractionDataOption) string {
	options := optionsOf(sub.Options)

	switch sub.Name {
	case domain.SubCommandShow:
		return p.show(guildID)
	case domain.SubCommandStart:
		return p.setClockTime(guildID, options, "start", func(c *domain.QuietConfig) **domain.ClockTime { return &c.StartTime })
	case domain.SubCommandEnd:
		return p.setClockTime(guildID, options, "end", func(c *domain.QuietConfig) **domain.ClockTime { return &c.EndTime })
	case domain.SubCommandGrace:
		return p.grace(guildID, options)
	case domain.SubCommandDays:
		return p.days(guildID, options)
	case domain.SubCommandReset:
		return p.reset(guildID)
	case domain.SubCommandHoliday:
		return p.holiday(guildID, options)
	case domain.SubCommandCheck:
		return p.check(guildID, invokerID, options)
	}
	return fmt.Sprintf("Unknown subcommand %q", sub.Name)
}

func (p *parentalCommand) show(guildID string) string {
	guild, err := p.guilds.Guild(guildID)
	if err != nil {
		p.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
		return loadFailedMessage
	}

	cfg := guild.ServerConfig.WithDefaults()
	var b strings.Builder
	b.WriteString("Current server quiet config:\n")
	fmt.Fprintf(&b, "• start: %s\n", cfg.StartTime)
	fmt.Fprintf(&b, "• end: %s\n", cfg.EndTime)
	fmt.Fprintf(&b, "• days: %s\n", *cfg.QuietDays)
	fmt.Fprintf(&b, "• grace: %d minutes\n", *cfg.GracePeriod)
	fmt.Fprintf(&b, "• holidays: %s\n", formatHolidays(guild.Holidays))
	fmt.Fprintf(&b, "• overrides: %d users, %d roles", len(guild.Overrides.Users), len(guild.Overrides.Roles))
	return b.String()
}

func (p *parentalCommand) setClockTime(guildID string, options commandOptions, label string, field func(*domain.QuietConfig) **domain.ClockTime) string {
	hour, ok := options.intValue(domain.CommandOptionHour)
	if !ok {
		guild, err := p.guilds.Guild(guildID)
		if err != nil {
			p.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
			return loadFailedMessage
		}
		cfg := guild.ServerConfig.WithDefaults()
		return fmt.Sprintf("Quiet time %s time is %s", label, *field(&cfg))
	}

	minute, _ := options.intValue(domain.CommandOptionMinute)
	value, err := domain.NewClockTime(hour, minute)
	if err != nil {
		return userMessage(err)
	}

	if !p.update(guildID, func(g *domain.GuildConfig) error {
		*field(&g.ServerConfig) = &value
		return nil
	}) {
		return saveFailedMessage
	}
	return fmt.Sprintf("Quiet time %s set to %s", label, value)
}

func (p *parentalCommand) grace(guildID string, options commandOptions) string {
	minutes, ok := options.intValue(domain.CommandOptionMinutes)
	if !ok {
		guild, err := p.guilds.Guild(guildID)
		if err != nil {
			p.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
			return loadFailedMessage
		}
		return fmt.Sprintf("Grace period is %d minutes.", *guild.ServerConfig.WithDefaults().GracePeriod)
	}

	if err := validateGrace(minutes); err != nil {
		return userMessage(err)
	}
	if !p.update(guildID, func(g *domain.GuildConfig) error {
		g.ServerConfig.GracePeriod = &minutes
		return nil
	}) {
		return saveFailedMessage
	}
	return fmt.Sprintf("Grace period set to %d minutes.", minutes)
}

func (p *parentalCommand) days(guildID string, options commandOptions) string {
	raw, ok := options.stringValue(domain.CommandOptionDays)
	if !ok {
		guild, err := p.guilds.Guild(guildID)
		if err != nil {
			p.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
			return loadFailedMessage
		}
		return fmt.Sprintf("Quiet days are %s", *guild.ServerConfig.WithDefaults().QuietDays)
	}

	days, err := domain.ParseWeekdays(raw)
	if err != nil {
		return userMessage(err)
	}
	if !p.update(guildID, func(g *domain.GuildConfig) error {
		g.ServerConfig.QuietDays = &days
		return nil
	}) {
		return saveFailedMessage
	}
	return fmt.Sprintf("Quiet days set to %s", days)
}

func (p *parentalCommand) reset(guildID string) string {
	if !p.update(guildID, func(g *domain.GuildConfig) error {
		g.ServerConfig = domain.DefaultQuietConfig()
		return nil
	}) {
		return saveFailedMessage
	}
	return "Reset quiet time config to defaults."
}

func (p *parentalCommand) holiday(guildID string, options commandOptions) string {
	month, hasMonth := options.intValue(domain.CommandOptionMonth)
	day, hasDay := options.intValue(domain.CommandOptionDay)

	if !hasMonth && !hasDay {
		guild, err := p.guilds.Guild(guildID)
		if err != nil {
			p.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
			return loadFailedMessage
		}
		return "Holidays: " + formatHolidays(guild.Holidays)
	}
	if !hasMonth || !hasDay {
		return "Must specify a month and date."
	}

	date, err := domain.NewMonthDay(month, day)
	if err != nil {
		return userMessage(err)
	}

	remove := options.boolValue(domain.CommandOptionRemove)
	changed := false
	if !p.update(guildID, func(g *domain.GuildConfig) error {
		if remove {
			changed = g.RemoveHoliday(date)
		} else {
			changed = g.AddHoliday(date)
		}
		return nil
	}) {
		return saveFailedMessage
	}

	switch {
	case remove && changed:
		return fmt.Sprintf("Holiday %s removed.", date)
	case remove:
		return fmt.Sprintf("%s is not a holiday.", date)
	case changed:
		return fmt.Sprintf("Holiday %s added, quiet time is lifted that day.", date)
	default:
		return fmt.Sprintf("%s is already a holiday.", date)
	}
}

func (p *parentalCommand) check(guildID, invokerID string, options commandOptions) string {
	userID, ok := options.idValue(domain.CommandOptionUser)
	if !ok {
		userID = invokerID
	}

	guild, err := p.guilds.Guild(guildID)
	if err != nil {
		p.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
		return loadFailedMessage
	}

	member, err := p.gateway.Member(guildID, userID)
	if err != nil {
		p.logger.Warnw("cannot fetch member, ignoring role overrides", "guild", guildID, "user", userID, "error", err)
		member = &domain.Member{ID: userID}
	}

	window := guild.Resolve(member)
	now := p.clock.Now().In(p.location)
	state := "not active"
	if window.IsQuietAt(now) {
		state = "active"
	}
	return fmt.Sprintf("Effective quiet time for <@%s>: %s. Quiet time is %s now.", userID, window, state)
}

func (p *parentalCommand) update(guildID string, fn func(*domain.GuildConfig) error) bool {
	if _, err := p.guilds.UpdateGuild(guildID, fn); err != nil {
		p.logger.Errorw("cannot save guild config", "guild", guildID, "error", err)
		return false
	}
	return true
}

func validateGrace(minutes int) error {
	if minutes < 0 || minutes > domain.MaxGracePeriod {
		return domain.ErrInvalidGrace
	}
	return nil
}

func formatHolidays(holidays []domain.MonthDay) string {
	if len(holidays) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(holidays))
	for _, h := range holidays {
		parts = append(parts, h.String())
	}
	return strings.Join(parts, ", ")
}
