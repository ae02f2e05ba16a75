package tgutil

import (
	"regexp"

	"github.com/go-faster/errors"
)

var ErrInvalidLink = errors.New("Invalid Telegram link format")

// handleRules are tried in order, the first match wins.
var handleRules = []*regexp.Regexp{
	regexp.MustCompile(`t\.me/([^/?]+)`),
	regexp.MustCompile(`telegram\.me/([^/?]+)`),
	regexp.MustCompile(`@([a-zA-Z0-9_]+)`),
}

// ParseChannelHandle extracts a channel handle from free-form input such as
// "https://t.me/durov", "telegram.me/durov/12" or "@durov".
func ParseChannelHandle(input string) (string, bool) {
	for _, rule := range handleRules {
		if m := rule.FindStringSubmatch(input); m != nil {
			return m[1], true
		}
	}
	return "", false
}
