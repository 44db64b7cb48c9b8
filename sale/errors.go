package sale

import (
	"errors"
	"fmt"
)

var (
	ErrCannotBeZero       = errors.New("CannotBeZero")
	ErrInvalidUserAddress = errors.New("InvalidUserAddress")
	ErrNotOwner           = errors.New("CallerIsNotOwner")
	ErrAlreadyInitialized = errors.New("SaleAlreadyInitialized")
	ErrNotInitialized     = errors.New("SaleNotInitialized")
	ErrTokenAlreadySet    = errors.New("TokenAlreadySet")
	ErrTokenNotSet        = errors.New("TokenNotSet")
	ErrSalePaused         = errors.New("SalePaused")
	ErrAlreadyPaused      = errors.New("AlreadyPaused")
	ErrAlreadyActive      = errors.New("AlreadyActive")
	ErrNothingToClaim     = errors.New("NothingToClaim")
	ErrNoSchedule         = errors.New("NoScheduleForAccount")
	ErrReentrantCall      = errors.New("ReentrantCall")
)

func ErrInvalidAmount(entity, value string) error {
	return fmt.Errorf("InvalidAmount for %s with value %s", entity, value)
}

func ErrBelowMinPurchase(amount, minimum string) error {
	return fmt.Errorf("BelowMinPurchase: payment %s is below minimum %s", amount, minimum)
}

func ErrDustPayment(amount string) error {
	return fmt.Errorf("DustPayment: payment %s converts to zero sale tokens", amount)
}

func ErrInvalidTokenAddress(address string) error {
	return fmt.Errorf("InvalidTokenAddress for address %s", address)
}

func ErrInvalidAssetKind(assetKind string) error {
	return fmt.Errorf("InvalidAssetKind: %s", assetKind)
}

func ErrTransferFailed(tokenAddress, function, reason string) error {
	return fmt.Errorf("TransferFailed invoking %s on %s: %s", function, tokenAddress, reason)
}

// CustomError pairs an error with an HTTP-style status code so the adapter
// layer can distinguish validation (400), authorization (401), state
// conflicts (409), reentrancy (423), transfer failures (502) and internal
// failures (500).
type CustomError struct {
	Code    int
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(code int, message string, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
