package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

const (
	passwordMinLen = 8
	passwordMaxLen = 128

	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

var commonPatterns = []string{"123", "abc", "password", "admin", "user", "qwerty", "asdf"}

// ValidatePassword checks the password policy and returns every
// violation so clients can show them all at once. An empty slice means
// the password is acceptable.
func ValidatePassword(password string) []string {
	var problems []string

	if len(password) < passwordMinLen {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters long", passwordMinLen))
	}
	if len(password) > passwordMaxLen {
		problems = append(problems, fmt.Sprintf("password must be less than %d characters", passwordMaxLen))
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}
	if !hasLower {
		problems = append(problems, "password must contain at least one lowercase letter")
	}
	if !hasUpper {
		problems = append(problems, "password must contain at least one uppercase letter")
	}
	if !hasDigit {
		problems = append(problems, "password must contain at least one number")
	}
	if !hasSpecial {
		problems = append(problems, "password must contain at least one special character")
	}

	if tooRepetitive(password) {
		problems = append(problems, "password has too many repeated characters")
	}

	lowered := strings.ToLower(password)
	for _, pattern := range commonPatterns {
		if strings.Contains(lowered, pattern) {
			problems = append(problems, "password contains common pattern: "+pattern)
		}
	}

	return problems
}

// tooRepetitive reports whether fewer than 70% of the characters are
// distinct.
func tooRepetitive(password string) bool {
	if password == "" {
		return false
	}
	seen := map[rune]struct{}{}
	total := 0
	for _, r := range password {
		seen[r] = struct{}{}
		total++
	}
	return float64(len(seen)) < float64(total)*0.7
}

// PasswordStrength grades a password for display. Policy enforcement
// is ValidatePassword; this only labels.
func PasswordStrength(password string) string {
	score := 0
	if len(password) >= 12 {
		score++
	}
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasSpecial} {
		if ok {
			score++
		}
	}

	switch {
	case score >= 5 && len(password) >= 12:
		return "very_strong"
	case score >= 4 && len(password) >= 10:
		return "strong"
	case score >= 3 && len(password) >= 8:
		return "medium"
	default:
		return "weak"
	}
}

// GenerateTempPassword returns a random password holding at least one
// character of every class. Lengths below the policy minimum fall back
// to 12.
func GenerateTempPassword(length int) (string, error) {
	if length < passwordMinLen {
		length = 12
	}

	allChars := lowerChars + upperChars + digitChars + specialChars
	chars := make([]byte, 0, length)

	for _, set := range []string{lowerChars, upperChars, digitChars, specialChars} {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := randomChar(allChars)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	for i := len(chars) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		chars[i], chars[j.Int64()] = chars[j.Int64()], chars[i]
	}
	return string(chars), nil
}

func randomChar(set string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[idx.Int64()], nil
}
