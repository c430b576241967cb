package main

import (
	"context"
	"errors"

	"feedgate/internal/accounts"
	"feedgate/internal/config"
	"feedgate/internal/logger"
)

// seedAdminAccount registers the configured admin account if it is missing.
func seedAdminAccount(ctx context.Context, svc *accounts.Service, cfg config.PaymentsConfig) {
	if cfg.AdminAccount == "" || cfg.AdminPassword == "" {
		return
	}

	_, err := svc.Register(ctx, cfg.AdminAccount, cfg.AdminPassword)
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrAccountExists):
		logger.GetLogger().Debug().
			Str("account", cfg.AdminAccount).
			Msg("Admin account already registered")
	default:
		logger.GetLogger().Error().
			Err(err).
			Str("account", cfg.AdminAccount).
			Msg("Error seeding admin account")
	}
}
