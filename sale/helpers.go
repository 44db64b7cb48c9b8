package sale

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"
)

// GetUserID extracts the caller's account address from the x509 client
// identity common name.
func GetUserID(ctx TransactionContextInterface) (string, error) {
	b64ID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to read clientID: %v", err)
	}

	decodeID, err := base64.StdEncoding.DecodeString(b64ID)
	if err != nil {
		return "", fmt.Errorf("failed to base64 decode clientID: %v", err)
	}

	completeID := string(decodeID)
	cnIndex := strings.Index(completeID, "x509::CN=")
	commaIndex := strings.Index(completeID, ",")
	if cnIndex < 0 || commaIndex < 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidUserAddress, completeID)
	}

	userID := completeID[cnIndex+9 : commaIndex]

	if !IsUserAddressValid(userID) {
		return "", fmt.Errorf("%w: %s", ErrInvalidUserAddress, userID)
	}

	return userID, nil
}

func IsUserAddressValid(address string) bool {
	if address == "" {
		return false
	}

	isValid, _ := regexp.MatchString(hexAddressRegex, address)
	return isValid
}

func IsTokenAddressValid(address string) bool {
	if address == "" {
		return false
	}

	isValid, _ := regexp.MatchString(tokenAddressRegex, address)
	return isValid
}

// RequireOwner resolves the caller and rejects anyone but the stored owner.
func RequireOwner(ctx TransactionContextInterface) (string, error) {
	signer, err := GetUserID(ctx)
	if err != nil {
		return "", NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	owner, err := GetOwner(ctx)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", NewCustomError(http.StatusConflict, "sale contract", ErrNotInitialized)
	}

	if signer != owner {
		return "", NewCustomError(http.StatusUnauthorized, fmt.Sprintf("signer %s", signer), ErrNotOwner)
	}

	return signer, nil
}

// parseAmount parses a non-negative decimal amount in smallest units.
func parseAmount(entity, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, NewCustomError(http.StatusBadRequest, "invalid amount", ErrInvalidAmount(entity, value))
	}

	return amount, nil
}

// parsePositiveAmount parses a strictly positive decimal amount.
func parsePositiveAmount(entity, value string) (*big.Int, error) {
	amount, err := parseAmount(entity, value)
	if err != nil {
		return nil, err
	}

	if amount.Sign() == 0 {
		return nil, NewCustomError(http.StatusBadRequest, entity, ErrCannotBeZero)
	}

	return amount, nil
}

// now returns the transaction timestamp in unix seconds. Every vesting
// computation inside a transaction uses this single time source.
func now(ctx TransactionContextInterface) (uint64, error) {
	txTimestamp, err := ctx.GetTxTimestamp()
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to get transaction timestamp", err)
	}

	return uint64(txTimestamp.Seconds), nil
}
