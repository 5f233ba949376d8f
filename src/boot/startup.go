package boot

import (
	"DadBot/src/domain"
	"DadBot/src/storage"
	"DadBot/src/usecase"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type noticeLedger interface {
	usecase.NoticeLedger
	Close() error
}

// Bot holds everything Init started so it can be stopped in reverse order.
type Bot struct {
	Logger  *zap.SugaredLogger
	closers []func() error
}

func (b *Bot) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

func (b *Bot) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func Init(config *domain.Config, settingsPath string) (*Bot, error) {
	level := zap.NewAtomicLevel()
	logger, logFile, err := initLog(config.Log, level)
	if err != nil {
		return nil, err
	}

	bot := &Bot{Logger: logger}
	bot.onClose(logFile.Close)
	bot.onClose(func() error {
		_ = logger.Sync()
		return nil
	})

	watcher, err := watchSettings(settingsPath, level, logger)
	if err != nil {
		logger.Warnf("settings hot reload disabled: %v", err)
	} else {
		bot.onClose(watcher.Close)
	}

	if err := initDiscord(bot, config); err != nil {
		return bot, err
	}

	return bot, nil
}

func openNoticeLedger(config domain.StorageConfig) (noticeLedger, error) {
	if config.NoticesDB == "" {
		return storage.NewMemoryNoticeLedger(), nil
	}
	return storage.OpenBoltNoticeLedger(config.NoticesDB)
}

func initDiscord(bot *Bot, config *domain.Config) error {
	logger := bot.Logger
	if config.Discord.Token == "" {
		return fmt.Errorf("no bot token, set %s or discord.token", domain.TokenEnvVar)
	}

	location, err := config.Quiet.Location()
	if err != nil {
		return err
	}

	notices, err := openNoticeLedger(config.Storage)
	if err != nil {
		return err
	}
	bot.onClose(notices.Close)

	dcSession, err := discordgo.New("Bot " + config.Discord.Token)
	if err != nil {
		return err
	}
	dcSession.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageTyping |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	clock := clockwork.NewRealClock()
	guilds := storage.NewGuildConfigStore(config.Quiet.ConfigFile)
	gateway := usecase.NewDiscordGateway(dcSession)

	var jokes usecase.DadJoke
	if config.Discord.DadJokes {
		jokes = usecase.NewDadJoke(rand.Float64)
	}

	enforcer := usecase.NewQuietEnforcer(config, usecase.QuietEnforcerDeps{
		Gateway:  gateway,
		Guilds:   guilds,
		Notices:  notices,
		Clock:    clock,
		Location: location,
		Logger:   logger,
		Jokes:    jokes,
	})
	dcCommand := usecase.NewDiscordCommand(
		dcSession,
		usecase.NewParentalCommand(guilds, gateway, clock, location, logger),
		usecase.NewOverrideCommand(guilds, logger),
		logger,
	)

	dcSession.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Infof("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
	dcSession.AddHandler(enforcer.MessageHandler)
	dcSession.AddHandler(enforcer.TypingHandler)
	dcSession.AddHandler(enforcer.VoiceStateHandler)

	err = retry.Do(
		dcSession.Open,
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("opening gateway failed (attempt %d): %v", n+1, err)
		}),
	)
	if err != nil {
		return err
	}
	bot.onClose(dcSession.Close)

	err = dcCommand.InitCommands()
	if err != nil {
		return err
	}

	scheduler, err := startSweep(enforcer, config.Quiet.SweepInterval, clock, logger)
	if err != nil {
		return err
	}
	bot.onClose(scheduler.Shutdown)

	logger.Infof("Quiet time enforced from %s in %s", guilds.Path(), location)
	return nil
}
