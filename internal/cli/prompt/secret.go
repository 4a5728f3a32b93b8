// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrSecretMismatch indicates the confirmation did not match.
var ErrSecretMismatch = errors.New("entries do not match")

// Secret prompts for a masked secret value.
func Secret(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := p.Run()
	return result, wrapError(err)
}

// SecretWithValidation prompts for a masked secret with a minimum length.
func SecretWithValidation(label string, minLength int) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < minLength {
				return fmt.Errorf("must be at least %d characters", minLength)
			}
			return nil
		},
	}

	result, err := p.Run()
	return result, wrapError(err)
}

// SecretWithConfirmation prompts for a secret twice and requires both
// entries to match.
func SecretWithConfirmation(label, confirmLabel string, minLength int) (string, error) {
	secret, err := SecretWithValidation(label, minLength)
	if err != nil {
		return "", err
	}

	confirm, err := Secret(confirmLabel)
	if err != nil {
		return "", err
	}

	if secret != confirm {
		return "", ErrSecretMismatch
	}

	return secret, nil
}

// wrapError normalizes promptui interrupt errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, promptui.ErrInterrupt) {
		return errors.New("cancelled")
	}
	return err
}
