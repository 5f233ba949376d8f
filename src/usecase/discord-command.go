package usecase

import (
	"DadBot/src/domain"
	"slices"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type DiscordCommand interface {
	InitCommands() error
	GetSession() *discordgo.Session
}

func NewDiscordCommand(dcSession *discordgo.Session, parental ParentalCommand, override OverrideCommand, logger *zap.SugaredLogger) DiscordCommand {
	return &discordCommand{
		dcSession: dcSession,
		parental:  parental,
		override:  override,
		logger:    logger,
	}
}

type discordCommand struct {
	dcSession *discordgo.Session
	parental  ParentalCommand
	override  OverrideCommand
	logger    *zap.SugaredLogger
}

func (d *discordCommand) InitCommands() error {
	d.dcSession.AddHandler(d.commandHandler)

	return retry.Do(
		func() error {
			err := d.unregisterCommands()
			if err != nil {
				return err
			}
			return d.registerCommands()
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warnf("registering commands failed (attempt %d): %v", n+1, err)
		}),
	)
}

func (d *discordCommand) GetSession() *discordgo.Session {
	return d.dcSession
}

func (d *discordCommand) unregisterCommands() error {
	guilds, err := d.dcSession.UserGuilds(200, "", "", false)
	if err != nil {
		return err
	}

	for _, guild := range guilds {
		applications, err := d.dcSession.ApplicationCommands(d.dcSession.State.User.ID, guild.ID)
		if err != nil {
			return err
		}

		for _, application := range applications {
			if slices.Contains([]string{domain.ParentalCommandName, domain.OverrideCommandName}, application.Name) {
				err := d.dcSession.ApplicationCommandDelete(d.dcSession.State.User.ID, guild.ID, application.ID)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (d *discordCommand) registerCommands() error {
	guilds, err := d.dcSession.UserGuilds(200, "", "", false)
	if err != nil {
		return err
	}

	for _, guild := range guilds {
		for _, command := range QuietCommands() {
			if _, err := d.dcSession.ApplicationCommandCreate(d.dcSession.State.User.ID, guild.ID, command); err != nil {
				return err
			}
		}
		d.logger.Infof("Registered commands for guild %v (%v)", guild.Name, guild.ID)
	}

	return nil
}

func (d *discordCommand) commandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	cmdName := i.ApplicationCommandData().Name
	if cmdName != domain.ParentalCommandName && cmdName != domain.OverrideCommandName {
		return
	}

	if i.GuildID == "" || i.Member == nil {
		respond(s, i, "This command only works in a server.", d.logger)
		return
	}
	if i.Member.Permissions&int64(discordgo.PermissionManageServer) == 0 {
		respond(s, i, "You need the Manage Server permission to use this command.", d.logger)
		return
	}

	if cmdName == domain.ParentalCommandName {
		d.parental.ParentalCommandHandler(s, i)
	} else {
		d.override.OverrideCommandHandler(s, i)
	}
}

// QuietCommands describes the slash commands registered in every guild.
func QuietCommands() []*discordgo.ApplicationCommand {
	managePerm := int64(discordgo.PermissionManageServer)
	dmPermission := false

	hour := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Name:        domain.CommandOptionHour,
			Description: "Hour (0-23)",
			Type:        discordgo.ApplicationCommandOptionInteger,
			Required:    required,
		}
	}
	minute := &discordgo.ApplicationCommandOption{
		Name:        domain.CommandOptionMinute,
		Description: "Minute (0-59), defaults to 0",
		Type:        discordgo.ApplicationCommandOptionInteger,
	}
	graceMinutes := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Name:        domain.CommandOptionMinutes,
			Description: "Minutes after quiet time starts before voice members are disconnected",
			Type:        discordgo.ApplicationCommandOptionInteger,
			Required:    required,
		}
	}
	quietDays := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Name:        domain.CommandOptionDays,
			Description: "Days like 'MTWRF' (M T W R F S U), or 'none'",
			Type:        discordgo.ApplicationCommandOptionString,
			Required:    required,
		}
	}
	target := &discordgo.ApplicationCommandOption{
		Name:        domain.CommandOptionTarget,
		Description: "User or role to override",
		Type:        discordgo.ApplicationCommandOptionMentionable,
		Required:    true,
	}
	subCommand := func(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Name:        name,
			Description: description,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Options:     options,
		}
	}

	parental := &discordgo.ApplicationCommand{
		Name:                     domain.ParentalCommandName,
		Type:                     discordgo.ChatApplicationCommand,
		Description:              "Server-wide quiet time configuration",
		DefaultMemberPermissions: &managePerm,
		DMPermission:             &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			subCommand(domain.SubCommandShow, "Show the current quiet time config"),
			subCommand(domain.SubCommandStart, "Get or set quiet time start", hour(false), minute),
			subCommand(domain.SubCommandEnd, "Get or set quiet time end", hour(false), minute),
			subCommand(domain.SubCommandGrace, "Get or set the voice grace period", graceMinutes(false)),
			subCommand(domain.SubCommandDays, "Get or set quiet days", quietDays(false)),
			subCommand(domain.SubCommandReset, "Reset quiet time config to defaults"),
			subCommand(domain.SubCommandHoliday, "List, add or remove holidays",
				&discordgo.ApplicationCommandOption{
					Name:        domain.CommandOptionMonth,
					Description: "Month (1-12)",
					Type:        discordgo.ApplicationCommandOptionInteger,
				},
				&discordgo.ApplicationCommandOption{
					Name:        domain.CommandOptionDay,
					Description: "Day of month (1-31)",
					Type:        discordgo.ApplicationCommandOptionInteger,
				},
				&discordgo.ApplicationCommandOption{
					Name:        domain.CommandOptionRemove,
					Description: "Remove the holiday instead of adding it",
					Type:        discordgo.ApplicationCommandOptionBoolean,
				},
			),
			subCommand(domain.SubCommandCheck, "Show the effective quiet time of a member",
				&discordgo.ApplicationCommandOption{
					Name:        domain.CommandOptionUser,
					Description: "Member to check, defaults to you",
					Type:        discordgo.ApplicationCommandOptionUser,
				},
			),
		},
	}

	override := &discordgo.ApplicationCommand{
		Name:                     domain.OverrideCommandName,
		Type:                     discordgo.ChatApplicationCommand,
		Description:              "Override quiet time for users or roles",
		DefaultMemberPermissions: &managePerm,
		DMPermission:             &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			subCommand(domain.SubCommandShow, "Show the override of a user or role", target),
			subCommand(domain.SubCommandStart, "Override quiet time start", target, hour(true), minute),
			subCommand(domain.SubCommandEnd, "Override quiet time end", target, hour(true), minute),
			subCommand(domain.SubCommandGrace, "Override the voice grace period", target, graceMinutes(true)),
			subCommand(domain.SubCommandDays, "Override quiet days", target, quietDays(true)),
			subCommand(domain.SubCommandClear, "Clear every override of a user or role", target),
		},
	}

	return []*discordgo.ApplicationCommand{parental, override}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, logger *zap.SugaredLogger) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}); err != nil {
		logger.Errorf("responding to command: %v", err)
	}
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(options []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	m := make(commandOptions, len(options))
	for _, option := range options {
		m[option.Name] = option
	}
	return m
}

func (o commandOptions) intValue(name string) (int, bool) {
	option, ok := o[name]
	if !ok {
		return 0, false
	}
	return int(option.IntValue()), true
}

func (o commandOptions) stringValue(name string) (string, bool) {
	option, ok := o[name]
	if !ok {
		return "", false
	}
	return option.StringValue(), true
}

func (o commandOptions) boolValue(name string) bool {
	option, ok := o[name]
	return ok && option.BoolValue()
}

// idValue returns the snowflake of a user, role or mentionable option.
func (o commandOptions) idValue(name string) (string, bool) {
	option, ok := o[name]
	if !ok {
		return "", false
	}
	id, ok := option.Value.(string)
	return id, ok
}

// userMessage turns a validation error into a chat reply.
func userMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

// subCommandOf returns the invoked subcommand, if any.
func subCommandOf(i *discordgo.InteractionCreate) *discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	if len(options) < 1 || options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return nil
	}
	return options[0]
}
