package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ToE164 expands a national number to E.164 using region as the default
// country. Input that is empty, already international, or unparseable is
// returned trimmed but otherwise untouched so the client can apply its own rules.
func ToE164(number, region string) string {
	number = strings.TrimSpace(number)
	region = strings.ToUpper(strings.TrimSpace(region))
	if number == "" || region == "" || strings.HasPrefix(number, "+") {
		return number
	}

	parsed, err := phonenumbers.Parse(number, region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return number
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
