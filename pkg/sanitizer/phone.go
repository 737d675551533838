package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Regions tried, in order, for numbers written without a country code.
var DefaultRegions = []string{"US", "CA"}

// NormalizePhone returns the E.164 form of phone, or "" when it is not a valid number.
// Numbers starting with + are parsed as international.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	regions := DefaultRegions
	if strings.HasPrefix(phone, "+") {
		regions = []string{"ZZ"}
	}
	for _, region := range regions {
		num, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return ""
}
