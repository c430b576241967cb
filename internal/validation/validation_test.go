package validation

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", &chaincfg.MainNetParams))
	assert.Error(t, ValidateAddress("", &chaincfg.MainNetParams))
	assert.Error(t, ValidateAddress("not-an-address", &chaincfg.MainNetParams))
	assert.Error(t, ValidateAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", &chaincfg.TestNet3Params))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(7500))
	assert.Error(t, ValidateAmount(-1))
	assert.Error(t, ValidateAmount(btcutil.MaxSatoshi+1))
}

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"alice", false},
		{"bob_the-builder.2", false},
		{"", true},
		{"ab", true},
		{"has space", true},
		{"way-too-long-account-name-for-this-service", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correct horse"))
	assert.Error(t, ValidatePassword("short"))
}
