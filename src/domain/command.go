package domain

const (
	ParentalCommandName = "parental"
	OverrideCommandName = "override"

	SubCommandShow    = "show"
	SubCommandStart   = "start"
	SubCommandEnd     = "end"
	SubCommandGrace   = "grace"
	SubCommandDays    = "days"
	SubCommandReset   = "reset"
	SubCommandHoliday = "holiday"
	SubCommandCheck   = "check"
	SubCommandClear   = "clear"

	CommandOptionHour    = "hour"
	CommandOptionMinute  = "minute"
	CommandOptionMinutes = "minutes"
	CommandOptionDays    = "days"
	CommandOptionMonth   = "month"
	CommandOptionDay     = "day"
	CommandOptionRemove  = "remove"
	CommandOptionTarget  = "target"
	CommandOptionUser    = "user"
)

// MaxGracePeriod bounds grace periods accepted from commands, in minutes.
const MaxGracePeriod = 240
