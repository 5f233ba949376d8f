package usecase

import (
	"DadBot/src/domain"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway is the slice of the Discord API the bot acts through.
type DiscordGateway interface {
	BotUserID() string
	GuildIDs() []string
	Member(guildID, userID string) (*domain.Member, error)
	VoiceMembers(guildID string) ([]string, error)
	DeleteMessage(channelID, messageID string) error
	SendChannelMessage(channelID, content string) error
	SendDirectMessage(userID, content string) error
	Disconnect(guildID, userID string) error
}

func NewDiscordGateway(dcSession *discordgo.Session) DiscordGateway {
	return &sessionGateway{dcSession: dcSession}
}

type sessionGateway struct {
	dcSession *discordgo.Session
}

func (g *sessionGateway) BotUserID() string {
	state := g.dcSession.State
	state.RLock()
	defer state.RUnlock()

	if state.User == nil {
		return ""
	}
	return state.User.ID
}

func (g *sessionGateway) GuildIDs() []string {
	state := g.dcSession.State
	state.RLock()
	defer state.RUnlock()

	ids := make([]string, 0, len(state.Guilds))
	for _, guild := range state.Guilds {
		ids = append(ids, guild.ID)
	}
	return ids
}

// Member prefers the state cache and falls back to the REST API.
func (g *sessionGateway) Member(guildID, userID string) (*domain.Member, error) {
	member, err := g.dcSession.State.Member(guildID, userID)
	if err != nil {
		member, err = g.dcSession.GuildMember(guildID, userID)
		if err != nil {
			return nil, fmt.Errorf("fetch member %s: %w", userID, err)
		}
	}

	roles := make([]domain.Role, 0, len(member.Roles))
	for _, roleID := range member.Roles {
		position := 0
		if role, err := g.dcSession.State.Role(guildID, roleID); err == nil {
			position = role.Position
		}
		roles = append(roles, domain.Role{ID: roleID, Position: position})
	}

	return &domain.Member{ID: userID, Roles: roles}, nil
}

func (g *sessionGateway) VoiceMembers(guildID string) ([]string, error) {
	guild, err := g.dcSession.State.Guild(guildID)
	if err != nil {
		return nil, err
	}

	g.dcSession.State.RLock()
	defer g.dcSession.State.RUnlock()

	var userIDs []string
	for _, voiceState := range guild.VoiceStates {
		if voiceState.ChannelID != "" {
			userIDs = append(userIDs, voiceState.UserID)
		}
	}
	return userIDs, nil
}

func (g *sessionGateway) DeleteMessage(channelID, messageID string) error {
	return g.dcSession.ChannelMessageDelete(channelID, messageID)
}

// SendChannelMessage never pings anyone, whatever the content holds.
func (g *sessionGateway) SendChannelMessage(channelID, content string) error {
	_, err := g.dcSession.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	})
	return err
}

func (g *sessionGateway) SendDirectMessage(userID, content string) error {
	channel, err := g.dcSession.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open DM channel: %w", err)
	}
	_, err = g.dcSession.ChannelMessageSend(channel.ID, content)
	return err
}

// Disconnect moves the member out of any voice channel.
func (g *sessionGateway) Disconnect(guildID, userID string) error {
	return g.dcSession.GuildMemberMove(guildID, userID, nil)
}
