package usecase

import (
	"DadBot/src/domain"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type OverrideCommand interface {
	OverrideCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate)
}

func NewOverrideCommand(guilds GuildConfigRepository, logger *zap.SugaredLogger) OverrideCommand {
	return &overrideCommand{
		guilds: guilds,
		logger: logger,
	}
}

type overrideCommand struct {
	guilds GuildConfigRepository
	logger *zap.SugaredLogger
}

// overrideTarget is the user or role picked through a mentionable option.
type overrideTarget struct {
	id     string
	name   string
	isRole bool
}

func (o *overrideCommand) OverrideCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := subCommandOf(i)
	if sub == nil {
		return // Must never happen, every override command has a subcommand
	}

	respond(s, i, o.execute(i.GuildID, sub, i.ApplicationCommandData().Resolved), o.logger)
}

func (o *overrideCommand) execute(guildID string, sub *discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) string {
	options := optionsOf(sub.Options)

	target, ok := resolveTarget(options, resolved)
	if !ok {
		return "A user or role is required."
	}

	var (
		patch domain.QuietConfig
		reply string
	)
	switch sub.Name {
	case domain.SubCommandShow:
		return o.show(guildID, target)
	case domain.SubCommandClear:
		return o.clear(guildID, target)
	case domain.SubCommandStart, domain.SubCommandEnd:
		hour, _ := options.intValue(domain.CommandOptionHour)
		minute, _ := options.intValue(domain.CommandOptionMinute)
		value, err := domain.NewClockTime(hour, minute)
		if err != nil {
			return userMessage(err)
		}
		if sub.Name == domain.SubCommandStart {
			patch.StartTime = &value
		} else {
			patch.EndTime = &value
		}
		reply = fmt.Sprintf("Quiet time %s overridden to %s for %s", sub.Name, value, target.name)
	case domain.SubCommandGrace:
		minutes, _ := options.intValue(domain.CommandOptionMinutes)
		if err := validateGrace(minutes); err != nil {
			return userMessage(err)
		}
		patch.GracePeriod = &minutes
		reply = fmt.Sprintf("Grace period overridden to %d minutes for %s", minutes, target.name)
	case domain.SubCommandDays:
		raw, _ := options.stringValue(domain.CommandOptionDays)
		days, err := domain.ParseWeekdays(raw)
		if err != nil {
			return userMessage(err)
		}
		patch.QuietDays = &days
		reply = fmt.Sprintf("Quiet days overridden to %s for %s", days, target.name)
	default:
		return fmt.Sprintf("Unknown subcommand %q", sub.Name)
	}

	_, err := o.guilds.UpdateGuild(guildID, func(g *domain.GuildConfig) error {
		if target.isRole {
			g.SetRoleOverride(target.id, patch)
		} else {
			g.SetUserOverride(target.id, patch)
		}
		return nil
	})
	if err != nil {
		o.logger.Errorw("cannot save override", "guild", guildID, "target", target.id, "error", err)
		return saveFailedMessage
	}
	return reply
}

func (o *overrideCommand) show(guildID string, target overrideTarget) string {
	guild, err := o.guilds.Guild(guildID)
	if err != nil {
		o.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
		return loadFailedMessage
	}

	overrides := guild.Overrides.Users
	if target.isRole {
		overrides = guild.Overrides.Roles
	}
	cfg, ok := overrides[target.id]
	if !ok || cfg.IsEmpty() {
		return fmt.Sprintf("No overrides set for %s", target.name)
	}
	return fmt.Sprintf("Overrides for %s: %s", target.name, cfg)
}

func (o *overrideCommand) clear(guildID string, target overrideTarget) string {
	cleared := false
	_, err := o.guilds.UpdateGuild(guildID, func(g *domain.GuildConfig) error {
		cleared = g.ClearOverride(target.id)
		return nil
	})
	if err != nil {
		o.logger.Errorw("cannot clear override", "guild", guildID, "target", target.id, "error", err)
		return saveFailedMessage
	}
	if !cleared {
		return fmt.Sprintf("No overrides set for %s", target.name)
	}
	return fmt.Sprintf("Overrides cleared for %s", target.name)
}

func resolveTarget(options commandOptions, resolved *discordgo.ApplicationCommandInteractionDataResolved) (overrideTarget, bool) {
	id, ok := options.idValue(domain.CommandOptionTarget)
	if !ok || id == "" {
		return overrideTarget{}, false
	}

	if resolved != nil {
		if role, ok := resolved.Roles[id]; ok {
			return overrideTarget{id: id, name: role.Name, isRole: true}, true
		}
		if user, ok := resolved.Users[id]; ok {
			return overrideTarget{id: id, name: user.Username}, true
		}
	}
	return overrideTarget{id: id, name: "<@" + id + ">"}, true
}
