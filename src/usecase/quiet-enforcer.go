package usecase

import (
	"DadBot/src/domain"
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	deletedMessageNotice = "It's quiet time, your message was deleted. Go to bed NOW."
	typingNotice         = "Don't even think about it. It's quiet time."
	noDeletePermission   = "No permission to delete messages"
)

// GuildConfigRepository reads and updates per-guild quiet-time configs.
type GuildConfigRepository interface {
	Guild(guildID string) (domain.GuildConfig, error)
	UpdateGuild(guildID string, fn func(*domain.GuildConfig) error) (domain.GuildConfig, error)
}

// NoticeLedger tracks when each member last received a quiet-time DM.
type NoticeLedger interface {
	LastNotice(guildID, userID string) (time.Time, bool, error)
	RecordNotice(guildID, userID string, at time.Time) error
}

type QuietEnforcer interface {
	MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate)
	TypingHandler(s *discordgo.Session, t *discordgo.TypingStart)
	VoiceStateHandler(s *discordgo.Session, v *discordgo.VoiceStateUpdate)
	Sweep(ctx context.Context) error
}

type QuietEnforcerDeps struct {
	Gateway  DiscordGateway
	Guilds   GuildConfigRepository
	Notices  NoticeLedger
	Clock    clockwork.Clock
	Location *time.Location
	Logger   *zap.SugaredLogger
	// Jokes answers introductions outside quiet time. Nil disables it.
	Jokes    DadJoke
}

func NewQuietEnforcer(config *domain.Config, deps QuietEnforcerDeps) QuietEnforcer {
	location := deps.Location
	if location == nil {
		location = time.Local
	}
	workers := config.Quiet.SweepWorkers
	if workers < 1 {
		workers = 1
	}

	return &quietEnforcer{
		gateway:        deps.Gateway,
		guilds:         deps.Guilds,
		notices:        deps.Notices,
		clock:          deps.Clock,
		location:       location,
		logger:         deps.Logger,
		jokes:          deps.Jokes,
		commandPrefix:  config.Discord.CommandPrefix,
		noticeCooldown: config.Quiet.NoticeCooldown,
		sweepWorkers:   workers,
	}
}

type quietEnforcer struct {
	gateway        DiscordGateway
	guilds         GuildConfigRepository
	notices        NoticeLedger
	clock          clockwork.Clock
	location       *time.Location
	logger         *zap.SugaredLogger
	jokes          DadJoke
	commandPrefix  string
	noticeCooldown time.Duration
	sweepWorkers   int
}

func (q *quietEnforcer) MessageHandler(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil {
		return
	}
	q.onMessage(m.Message)
}

func (q *quietEnforcer) onMessage(m *discordgo.Message) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot || m.Author.ID == q.gateway.BotUserID() {
		return
	}

	q.logger.Debugw("message received", "guild", m.GuildID, "channel", m.ChannelID, "author", m.Author.ID)

	if q.isCommand(m.Content) {
		return
	}

	window, ok := q.windowFor(m.GuildID, m.Author.ID)
	if !ok {
		return
	}
	if !window.IsQuietAt(q.now()) {
		q.joke(m)
		return
	}

	if err := q.gateway.DeleteMessage(m.ChannelID, m.ID); err != nil {
		q.logger.Warnw("cannot delete message", "guild", m.GuildID, "channel", m.ChannelID, "error", err)
		if sendErr := q.gateway.SendChannelMessage(m.ChannelID, noDeletePermission); sendErr != nil {
			q.logger.Errorw(noDeletePermission, "guild", m.GuildID, "channel", m.ChannelID, "error", sendErr)
		}
		return
	}

	q.logger.Infow("deleted quiet time message", "guild", m.GuildID, "user", m.Author.ID)
	q.notify(m.GuildID, m.Author.ID, deletedMessageNotice)
}

func (q *quietEnforcer) joke(m *discordgo.Message) {
	if q.jokes == nil {
		return
	}
	reply, ok := q.jokes.Reply(m.Content)
	if !ok {
		return
	}
	if err := q.gateway.SendChannelMessage(m.ChannelID, reply); err != nil {
		q.logger.Warnw("cannot send dad joke", "guild", m.GuildID, "channel", m.ChannelID, "error", err)
	}
}

func (q *quietEnforcer) TypingHandler(_ *discordgo.Session, t *discordgo.TypingStart) {
	q.onTyping(t)
}

func (q *quietEnforcer) onTyping(t *discordgo.TypingStart) {
	if t.GuildID == "" || t.UserID == q.gateway.BotUserID() {
		return
	}

	window, ok := q.windowFor(t.GuildID, t.UserID)
	if !ok || !window.IsQuietAt(q.now()) {
		return
	}
	q.notify(t.GuildID, t.UserID, typingNotice)
}

func (q *quietEnforcer) VoiceStateHandler(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	q.onVoiceState(v)
}

func (q *quietEnforcer) onVoiceState(v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || v.ChannelID == "" || v.UserID == q.gateway.BotUserID() {
		return
	}
	if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID == v.ChannelID {
		return
	}

	q.logger.Debugw("member joined voice", "guild", v.GuildID, "channel", v.ChannelID, "user", v.UserID)

	window, ok := q.windowFor(v.GuildID, v.UserID)
	if !ok || !window.IsQuietAt(q.now()) {
		return
	}
	q.disconnect(v.GuildID, v.UserID)
}

// Sweep disconnects every voice member whose grace period has run out.
func (q *quietEnforcer) Sweep(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(q.sweepWorkers)

	now := q.now()
	for _, guildID := range q.gateway.GuildIDs() {
		guildID := guildID
		g.Go(func() error {
			return q.sweepGuild(ctx, guildID, now)
		})
	}
	return g.Wait()
}

func (q *quietEnforcer) sweepGuild(ctx context.Context, guildID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	guild, err := q.guilds.Guild(guildID)
	if err != nil {
		return err
	}

	userIDs, err := q.gateway.VoiceMembers(guildID)
	if err != nil {
		q.logger.Warnw("cannot list voice members", "guild", guildID, "error", err)
		return nil
	}

	for _, userID := range userIDs {
		if userID == q.gateway.BotUserID() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		member := q.member(guildID, userID)
		if guild.Resolve(member).IsDisconnectAt(now) {
			q.disconnect(guildID, userID)
		}
	}
	return nil
}

func (q *quietEnforcer) windowFor(guildID, userID string) (domain.Window, bool) {
	guild, err := q.guilds.Guild(guildID)
	if err != nil {
		q.logger.Errorw("cannot load guild config", "guild", guildID, "error", err)
		return domain.Window{}, false
	}
	return guild.Resolve(q.member(guildID, userID)), true
}

// member falls back to a role-less member so user overrides still apply.
func (q *quietEnforcer) member(guildID, userID string) *domain.Member {
	member, err := q.gateway.Member(guildID, userID)
	if err != nil {
		q.logger.Warnw("cannot fetch member, ignoring role overrides", "guild", guildID, "user", userID, "error", err)
		return &domain.Member{ID: userID}
	}
	return member
}

func (q *quietEnforcer) disconnect(guildID, userID string) {
	if err := q.gateway.Disconnect(guildID, userID); err != nil {
		q.logger.Errorw("cannot disconnect member from voice", "guild", guildID, "user", userID, "error", err)
		return
	}
	q.logger.Infow("disconnected member for quiet time", "guild", guildID, "user", userID)
}

// notify sends a DM unless the member was already notified within the cooldown.
func (q *quietEnforcer) notify(guildID, userID, content string) {
	now := q.clock.Now()

	last, found, err := q.notices.LastNotice(guildID, userID)
	if err != nil {
		q.logger.Errorw("cannot read notice ledger", "guild", guildID, "user", userID, "error", err)
		return
	}
	if found && now.Sub(last) < q.noticeCooldown {
		return
	}

	if err := q.notices.RecordNotice(guildID, userID, now); err != nil {
		q.logger.Errorw("cannot record notice", "guild", guildID, "user", userID, "error", err)
	}
	if err := q.gateway.SendDirectMessage(userID, content); err != nil {
		q.logger.Warnw("cannot send quiet time DM", "guild", guildID, "user", userID, "error", err)
	}
}

func (q *quietEnforcer) isCommand(content string) bool {
	fields := strings.Fields(content)
	if len(fields) == 0 || q.commandPrefix == "" {
		return false
	}
	name, ok := strings.CutPrefix(strings.ToLower(fields[0]), q.commandPrefix)
	if !ok {
		return false
	}
	return name == domain.ParentalCommandName || name == domain.OverrideCommandName
}

func (q *quietEnforcer) now() time.Time {
	return q.clock.Now().In(q.location)
}
