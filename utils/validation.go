// utils/validation.go
package utils

import (
	"net/mail"
	"regexp"
	"strings"
)

var (
	phoneRegex      = regexp.MustCompile(`^\+?[0-9]\d{6,14}$`)
	siretRegex      = regexp.MustCompile(`^\d{14}$`)
	postalCodeRegex = regexp.MustCompile(`^\d{5}$`)
	clockRegex      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// laPosteSiren is exempt from the Luhn rule; its establishments sum to a multiple of 5.
const laPosteSiren = "356000000"

// ValidatePhone checks if a phone number is in a valid national or international format
func ValidatePhone(phone string) bool {
	// Clean the phone number
	cleaned := strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "").Replace(phone)
	return phoneRegex.MatchString(cleaned)
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// NormalizeSiret strips the spaces users type between digit groups.
func NormalizeSiret(siret string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(siret))
}

// ValidateSiret checks the 14-digit format and the Luhn checksum.
func ValidateSiret(siret string) bool {
	if !siretRegex.MatchString(siret) {
		return false
	}
	if strings.HasPrefix(siret, laPosteSiren) {
		sum := 0
		for _, r := range siret {
			sum += int(r - '0')
		}
		return sum%5 == 0
	}
	return luhn(siret)
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func ValidatePostalCode(code string) bool {
	return postalCodeRegex.MatchString(code)
}

// ValidateClock accepts 24h "HH:MM".
func ValidateClock(s string) bool {
	return clockRegex.MatchString(s)
}
