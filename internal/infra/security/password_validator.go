package security

import (
	"fmt"
	"strings"
	"unicode"
)

// passwordSymbols is the fixed set of characters accepted as symbols.
const passwordSymbols = "!@#$%^&*()_+=[{]};:<>|./?,-"

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules in order and
// reports the first violation only.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPasswordValidator returns the account password policy. Rule order is
// part of the contract: callers see the first failing rule, so a password that
// is both overlong and missing a digit reports the length violation.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		NotEmptyRule(),
		MinLengthRule(8),
		LengthRangeRule(8, 15),
		RequireLowerCaseRule(),
		RequireUpperCaseRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
	)
}

// NotEmptyRule rejects empty or whitespace-only passwords.
func NotEmptyRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if strings.TrimSpace(password) == "" {
			return &PasswordValidationError{
				Code:    "empty",
				Message: "Password should not be empty",
			}
		}
		return nil
	})
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("Password should not be lesser than %d characters.", min),
			}
		}
		return nil
	})
}

// LengthRangeRule ensures the password length falls within [min, max].
func LengthRangeRule(min, max int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		n := len([]rune(password))
		if n < min || n > max {
			return &PasswordValidationError{
				Code:    "length_range",
				Message: fmt.Sprintf("Password should not be lesser than %d or greater than %d characters.", min, max),
			}
		}
		return nil
	})
}

// RequireLowerCaseRule ensures the password contains a lower case letter.
func RequireLowerCaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsLower(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "lower_case",
			Message: "Password should contain at least one lower case letter.",
		}
	})
}

// RequireUpperCaseRule ensures the password contains an upper case letter.
func RequireUpperCaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsUpper(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "upper_case",
			Message: "Password should contain at least one upper case letter.",
		}
	})
}

// RequireDigitRule ensures the password contains at least one digit.
func RequireDigitRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if r >= '0' && r <= '9' {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "digit",
			Message: "Password should contain at least one numeric value.",
		}
	})
}

// RequireSymbolRule ensures the password contains a symbol from the allowed set.
func RequireSymbolRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if strings.ContainsAny(password, passwordSymbols) {
			return nil
		}
		return &PasswordValidationError{
			Code:    "symbol",
			Message: "Password should contain at least one special case character.",
		}
	})
}
