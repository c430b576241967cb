package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

var accountNameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// ValidateAddress checks that address decodes for the given network.
func ValidateAddress(address string, params *chaincfg.Params) error {
	if address == "" {
		return errors.New("address cannot be empty")
	}

	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return fmt.Errorf("invalid %s address: %w", params.Name, err)
	}
	if !decoded.IsForNet(params) {
		return fmt.Errorf("address is not for %s", params.Name)
	}

	return nil
}

// ValidateAmount rejects negative amounts and anything above the 21M supply.
func ValidateAmount(amount btcutil.Amount) error {
	if amount < 0 {
		return errors.New("amount must not be negative")
	}
	if amount > btcutil.MaxSatoshi {
		return errors.New("amount exceeds maximum allowed value")
	}
	return nil
}

// ValidateAccountName restricts names to 3-32 URL-safe characters.
func ValidateAccountName(name string) error {
	if name == "" {
		return errors.New("account name cannot be empty")
	}
	if !accountNameRegex.MatchString(name) {
		return errors.New("account name must be 3-32 letters, digits, '.', '_' or '-'")
	}
	return nil
}

// ValidatePassword enforces a minimum length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
