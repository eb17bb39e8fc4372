package validation

import (
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Student identifiers are institution-assigned: letters, digits and separators
	StudentIDPattern = `^[A-Za-z0-9][A-Za-z0-9/_\-]{0,31}$`

	// Indian Financial System Code: 4 letters, a zero, 6 alphanumerics
	IFSCPattern = `^[A-Za-z]{4}0[A-Za-z0-9]{6}$`

	// Mobile numbers with an optional country prefix
	MobilePattern = `^\+?[0-9]{10,15}$`

	// Password min length
	PasswordMinLength = 8
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	StudentID *regexp.Regexp
	IFSC      *regexp.Regexp
	Mobile    *regexp.Regexp
}{
	StudentID: regexp.MustCompile(StudentIDPattern),
	IFSC:      regexp.MustCompile(IFSCPattern),
	Mobile:    regexp.MustCompile(MobilePattern),
}

// StrongPassword requires the minimum length, a letter and a digit
func StrongPassword(password string) bool {
	if len(password) < PasswordMinLength {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func patternRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// RegisterRules adds the custom tags studentid, ifsc, mobile and password
func RegisterRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"studentid": patternRule(CompiledPatterns.StudentID),
		"ifsc":      patternRule(CompiledPatterns.IFSC),
		"mobile":    patternRule(CompiledPatterns.Mobile),
		"password": func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
