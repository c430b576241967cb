package payments

import (
	"context"
	"fmt"

	"feedgate/internal/interfaces"
	"feedgate/internal/models"
)

// ProvisionAddress mints an address and records it on account. Inserting an
// address the account already owns is a no-op. The caller persists account.
func ProvisionAddress(ctx context.Context, minter interfaces.AddressMinter, account *models.Account) (string, error) {
	addr, err := minter.NewAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("provision address for %q: %w", account.Name, err)
	}

	resident, _ := account.AddAddress(addr)
	return resident, nil
}
