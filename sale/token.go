package sale

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// Token movements are cross-chaincode invocations on the configured token
// contracts. The token contract resolves this contract's escrow account
// from the invoking chaincode, so only the counterparty and amount travel
// in the arguments: Transfer pays out of escrow, TransferFrom pulls a
// pre-approved amount into escrow. A non-OK response aborts the whole
// transaction, which also unwinds any state written before the call.

func transferTokens(ctx TransactionContextInterface, tokenAddress, recipient string, amount *big.Int) error {
	return invokeToken(ctx, tokenAddress, tokenTransferFunction, recipient, amount)
}

func pullTokens(ctx TransactionContextInterface, tokenAddress, from string, amount *big.Int) error {
	return invokeToken(ctx, tokenAddress, tokenTransferFromFunction, from, amount)
}

func invokeToken(ctx TransactionContextInterface, tokenAddress, function, counterparty string, amount *big.Int) error {
	if tokenAddress == "" {
		return NewCustomError(http.StatusConflict, "token address", ErrTokenNotSet)
	}

	args := [][]byte{
		[]byte(function),
		[]byte(counterparty),
		[]byte(amount.String()),
	}

	response := ctx.InvokeChaincode(tokenAddress, args, ctx.GetChannelID())
	if response.Status != shim.OK {
		return NewCustomError(http.StatusBadGateway, fmt.Sprintf("token movement of %s", amount.String()),
			ErrTransferFailed(tokenAddress, function, response.Message))
	}

	return nil
}

// requireSaleToken and requirePaymentToken load the configured token
// chaincode addresses, failing when token setup has not happened yet.
func requireSaleToken(ctx TransactionContextInterface) (string, error) {
	return requireToken(ctx, saleTokenKey)
}

func requirePaymentToken(ctx TransactionContextInterface) (string, error) {
	return requireToken(ctx, paymentTokenKey)
}

func requireToken(ctx TransactionContextInterface, key string) (string, error) {
	tokenAddress, err := GetTokenAddress(ctx, key)
	if err != nil {
		return "", err
	}
	if tokenAddress == "" {
		return "", NewCustomError(http.StatusConflict, fmt.Sprintf("token address for key %s", key), ErrTokenNotSet)
	}

	return tokenAddress, nil
}
