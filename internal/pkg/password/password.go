package password

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"unicode"
)

const (
	// MinLength is the minimum secret length
	MinLength = 8
)

var identifierPattern = regexp.MustCompile(`^[0-9]{10}$`)

// ValidateIdentifier checks the login number is exactly 10 digits
func ValidateIdentifier(identifier string) bool {
	return identifierPattern.MatchString(identifier)
}

// ValidatePassword checks if password meets requirements:
// at least 8 characters with an upper, a lower, a digit and a special character
func ValidatePassword(password string) bool {
	if len([]rune(password)) < MinLength {
		return false
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// HashToken returns the hex SHA-256 of token
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
