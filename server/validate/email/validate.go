// Package email is a validator of anonymous subscribers' email addresses.
package email

import (
	"encoding/json"
	"net/mail"
	"strings"

	"github.com/tinode/anonsub/server/store"
	t "github.com/tinode/anonsub/server/store/types"
)

// Validator configuration.
type validator struct {
	// Optional whitelist of email domains accepted for subscription.
	Domains []string `json:"domains"`
	// Maximum length of an email address.
	MaxLength int `json:"max_length"`

	initialized bool
}

const (
	validatorName = "email"

	// Technically email could be up to 255 bytes long but practically 128 is enough.
	maxEmailLength = 128
)

// Init: initialize validator.
func (v *validator) Init(jsonconf string) error {
	if jsonconf != "" {
		if err := json.Unmarshal([]byte(jsonconf), v); err != nil {
			return err
		}
	}

	for i, domain := range v.Domains {
		v.Domains[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if v.MaxLength <= 0 {
		v.MaxLength = maxEmailLength
	}

	v.initialized = true

	return nil
}

// IsInitialized returns true if the validator is initialized.
func (v *validator) IsInitialized() bool {
	return v.initialized
}

// PreCheck validates the email syntax. The address is returned trimmed but otherwise unchanged:
// subscribers are matched by exact string comparison.
func (v *validator) PreCheck(cred string) (string, error) {
	cred = strings.TrimSpace(cred)

	maxLength := v.MaxLength
	if maxLength <= 0 {
		maxLength = maxEmailLength
	}
	if cred == "" || len(cred) > maxLength {
		return "", t.ErrMalformed
	}

	// The email must be plain user@domain.
	addr, err := mail.ParseAddress(cred)
	if err != nil || addr.Address != cred {
		return "", t.ErrMalformed
	}

	// Parse email into user and domain parts.
	at := strings.LastIndexByte(cred, '@')
	if at <= 0 || at == len(cred)-1 {
		return "", t.ErrMalformed
	}
	domain := strings.ToLower(cred[at+1:])
	// Dotless domains are not accepted.
	if !strings.Contains(strings.Trim(domain, "."), ".") {
		return "", t.ErrMalformed
	}

	// If a whitelist of domains is provided, make sure the email belongs to the list.
	if len(v.Domains) > 0 {
		var found bool
		for _, allowed := range v.Domains {
			if allowed == domain {
				found = true
				break
			}
		}

		if !found {
			return "", t.ErrPolicy
		}
	}

	return cred, nil
}

func init() {
	store.RegisterValidator(validatorName, &validator{})
}
