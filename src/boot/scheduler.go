package boot

import (
	"DadBot/src/usecase"
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// startSweep runs the voice sweep on a fixed interval. The returned scheduler
// must be shut down by the caller.
func startSweep(enforcer usecase.QuietEnforcer, interval time.Duration, clock clockwork.Clock, logger *zap.SugaredLogger) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			if err := enforcer.Sweep(ctx); err != nil {
				logger.Errorf("voice sweep: %v", err)
			}
		}),
		gocron.WithName("voice-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
