package payments

import (
	"feedgate/internal/models"

	"github.com/btcsuite/btcd/btcutil"
)

// Gate applies the monthly payment threshold.
type Gate struct {
	Threshold btcutil.Amount
	Admin     string
}

// IsEntitled reports whether account may read the feed this period given its
// aggregated balance. The admin account always passes.
func (g Gate) IsEntitled(account *models.Account, balance btcutil.Amount) bool {
	if g.Admin != "" && account.Name == g.Admin {
		return true
	}
	return balance >= g.Threshold
}
