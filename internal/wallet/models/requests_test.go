package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

func u64(v uint64) *uint64 { return &v }

func TestCreateWalletRequest(t *testing.T) {
	req := &CreateWalletRequest{Guardians: []string{" bob ", "carol", "bob", "dan"}}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, []domain.Principal{"bob", "carol", "dan"}, req.ParsedGuardians())

	req = &CreateWalletRequest{}
	assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))

	req = &CreateWalletRequest{Guardians: []string{"bob", "not valid!"}}
	assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))

	tooMany := make([]string, MaxGuardians+1)
	for i := range tooMany {
		tooMany[i] = "g"
	}
	req = &CreateWalletRequest{Guardians: tooMany}
	assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))

	var nilReq *CreateWalletRequest
	assert.True(t, dErrors.HasCode(nilReq.Validate(), dErrors.CodeBadRequest))
}

func TestTransferRequest(t *testing.T) {
	req := &TransferRequest{To: " bob ", Amount: u64(10)}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, domain.Principal("bob"), req.ParsedTo())
	assert.Equal(t, domain.Amount(10), req.ParsedAmount())

	zero := &TransferRequest{To: "bob", Amount: u64(0)}
	require.NoError(t, zero.Validate())

	assert.True(t, dErrors.HasCode((&TransferRequest{To: "bob"}).Validate(), dErrors.CodeValidation))
	assert.True(t, dErrors.HasCode((&TransferRequest{Amount: u64(1)}).Validate(), dErrors.CodeValidation))
	assert.True(t, dErrors.HasCode((&TransferRequest{To: "bob", Amount: u64(1 << 63)}).Validate(), dErrors.CodeValidation))
}

func TestDepositRequest(t *testing.T) {
	req := &DepositRequest{Amount: u64(100)}
	require.NoError(t, req.Validate())
	assert.Equal(t, domain.Amount(100), req.ParsedAmount())

	assert.True(t, dErrors.HasCode((&DepositRequest{}).Validate(), dErrors.CodeValidation))
}

func TestRecoverRequest(t *testing.T) {
	req := &RecoverRequest{Address: " elon "}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, domain.Principal("elon"), req.ParsedAddress())

	assert.True(t, dErrors.HasCode((&RecoverRequest{}).Validate(), dErrors.CodeValidation))
}
