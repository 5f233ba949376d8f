package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

const maxIntroNameLength = 60

// introPattern matches "I'm X", "Im X", "I am X" with trailing punctuation dropped.
var introPattern = regexp.MustCompile(`(?i)\bi\s*(?:['’]?\s*m|a\s*m)\s+(?P<who>.+?)[\s.!?]*$`)

// DadJoke answers self introductions the way a dad would.
type DadJoke interface {
	Reply(content string) (string, bool)
}

// NewDadJoke takes a source of floats in [0, 1) deciding whether longer names get a reply.
func NewDadJoke(random func() float64) DadJoke {
	return &dadJoke{random: random}
}

type dadJoke struct {
	random func() float64
}

func (d *dadJoke) Reply(content string) (string, bool) {
	match := introPattern.FindStringSubmatch(content)
	if match == nil {
		return "", false
	}

	who := strings.TrimSpace(match[introPattern.SubexpIndex("who")])
	if who == "" {
		return "", false
	}
	if runes := []rune(who); len(runes) > maxIntroNameLength {
		who = string(runes[:maxIntroNameLength]) + "..."
	}

	reply := fmt.Sprintf("Hi %s, I'm DadBot.", who)
	words := len(strings.Fields(who))
	switch {
	case words <= 1:
		return reply, true
	case words <= 2 && d.random() < 0.5:
		return reply, true
	case words <= 3 && d.random() < 0.33:
		return reply, true
	}
	return "", false
}
