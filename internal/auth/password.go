package auth

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether the plaintext matches the stored hash.
func ComparePassword(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

var (
	lowerRe  = regexp.MustCompile(`[a-z]`)
	upperRe  = regexp.MustCompile(`[A-Z]`)
	digitRe  = regexp.MustCompile(`\d`)
	symbolRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// allSameRune reports whether the password is one character repeated.
func allSameRune(password string) bool {
	runes := []rune(password)
	if len(runes) < 2 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// StrengthResult summarizes password strength validation.
type StrengthResult struct {
	Valid    bool
	Errors   []string
	Strength string
}

var strengthLevels = []string{"very weak", "weak", "fair", "good", "strong", "very strong"}

// ValidatePasswordStrength enforces the account password policy and returns a
// human-readable strength label reported back to the client.
func ValidatePasswordStrength(password string) StrengthResult {
	var errs []string

	if len(password) < 6 {
		errs = append(errs, "Password must be at least 6 characters long")
	}
	if len(password) > 128 {
		errs = append(errs, "Password must be less than 128 characters long")
	}
	if !lowerRe.MatchString(password) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !upperRe.MatchString(password) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !digitRe.MatchString(password) {
		errs = append(errs, "Password must contain at least one number")
	}
	if allSameRune(password) {
		errs = append(errs, "Password cannot be all the same character")
	}
	if strings.EqualFold(password, "password") {
		errs = append(errs, `Password cannot be "password"`)
	}

	return StrengthResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Strength: scoreStrength(password),
	}
}

func scoreStrength(password string) string {
	score := 0
	if len(password) >= 8 {
		score++
	}
	if len(password) >= 12 {
		score++
	}
	if lowerRe.MatchString(password) {
		score++
	}
	if upperRe.MatchString(password) {
		score++
	}
	if digitRe.MatchString(password) {
		score++
	}
	if symbolRe.MatchString(password) {
		score++
	}
	if allSameRune(password) {
		score -= 2
	}
	if strings.EqualFold(password, "password") {
		score -= 2
	}
	if score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}
	return strengthLevels[score]
}
