package sale

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract distributes a fixed-supply sale token against a payment
// token, releasing 20% of every purchase immediately and vesting the rest
// over a cliff followed by linear unlock. All amounts are decimal strings
// in each asset's smallest unit.
type SmartContract struct {
	contractapi.Contract

	guard reentrancyGuard
}

// Initialize configures the sale exactly once; the signer becomes the owner.
// tokenPrice is the payment amount per conversionScale sale units, where
// conversionScale reconciles the two assets' smallest-unit precisions.
func (s *SmartContract) Initialize(ctx TransactionContextInterface, tokenPrice, minPurchase, conversionScale string, cliffPeriod, vestingDuration uint64) error {
	signer, err := GetUserID(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	existingConfig, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}
	if existingConfig != nil {
		return NewCustomError(http.StatusConflict, "sale contract", ErrAlreadyInitialized)
	}

	price, err := parsePositiveAmount("tokenPrice", tokenPrice)
	if err != nil {
		return err
	}
	scale, err := parsePositiveAmount("conversionScale", conversionScale)
	if err != nil {
		return err
	}
	minimum, err := parseAmount("minPurchase", minPurchase)
	if err != nil {
		return err
	}
	if cliffPeriod == 0 || vestingDuration == 0 {
		return NewCustomError(http.StatusBadRequest, "vesting periods", ErrCannotBeZero)
	}

	err = SetOwner(ctx, signer)
	if err != nil {
		return err
	}

	config := &SaleConfig{
		TokenPrice:      price.String(),
		MinPurchase:     minimum.String(),
		ConversionScale: scale.String(),
		CliffPeriod:     cliffPeriod,
		VestingDuration: vestingDuration,
		Paused:          false,
	}
	err = SetSaleConfig(ctx, config)
	if err != nil {
		return err
	}

	return EmitSaleInitialized(ctx, SaleInitializedEvent{
		Owner:           signer,
		TokenPrice:      config.TokenPrice,
		MinPurchase:     config.MinPurchase,
		ConversionScale: config.ConversionScale,
		CliffPeriod:     cliffPeriod,
		VestingDuration: vestingDuration,
	})
}

// SetSaleToken registers the sale token chaincode. One-time set.
func (s *SmartContract) SetSaleToken(ctx TransactionContextInterface, tokenAddress string) error {
	_, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	if !IsTokenAddressValid(tokenAddress) {
		return NewCustomError(http.StatusBadRequest, "sale token", ErrInvalidTokenAddress(tokenAddress))
	}

	err = SetTokenAddress(ctx, saleTokenKey, tokenAddress)
	if err != nil {
		return err
	}

	return EmitSaleTokenSet(ctx, tokenAddress)
}

// SetPaymentToken registers the payment token chaincode. One-time set.
func (s *SmartContract) SetPaymentToken(ctx TransactionContextInterface, tokenAddress string) error {
	_, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	if !IsTokenAddressValid(tokenAddress) {
		return NewCustomError(http.StatusBadRequest, "payment token", ErrInvalidTokenAddress(tokenAddress))
	}

	err = SetTokenAddress(ctx, paymentTokenKey, tokenAddress)
	if err != nil {
		return err
	}

	return EmitPaymentTokenSet(ctx, tokenAddress)
}

// Buy pulls paymentAmount from the caller into escrow, grants the converted
// sale token amount to the caller's schedule and releases the immediate
// portion. The payment pull happens before any grant is computed, and all
// schedule state is written before the outbound release transfer.
func (s *SmartContract) Buy(ctx TransactionContextInterface, paymentAmount string) error {
	txID := ctx.GetTxID()
	if err := s.guard.enter(txID); err != nil {
		return err
	}
	defer s.guard.exit(txID)

	buyer, err := GetUserID(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	config, err := requireConfig(ctx)
	if err != nil {
		return err
	}
	if config.Paused {
		return NewCustomError(http.StatusConflict, "sale", ErrSalePaused)
	}

	payment, err := parsePositiveAmount("paymentAmount", paymentAmount)
	if err != nil {
		return err
	}

	minimum, ok := new(big.Int).SetString(config.MinPurchase, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, "failed to parse configured minimum purchase", nil)
	}
	if payment.Cmp(minimum) < 0 {
		return NewCustomError(http.StatusBadRequest, "purchase", ErrBelowMinPurchase(payment.String(), minimum.String()))
	}

	paymentToken, err := requirePaymentToken(ctx)
	if err != nil {
		return err
	}
	saleToken, err := requireSaleToken(ctx)
	if err != nil {
		return err
	}

	err = pullTokens(ctx, paymentToken, buyer, payment)
	if err != nil {
		return err
	}

	price, ok := new(big.Int).SetString(config.TokenPrice, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, "failed to parse configured token price", nil)
	}
	scale, ok := new(big.Int).SetString(config.ConversionScale, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, "failed to parse configured conversion scale", nil)
	}

	tokenAmount := new(big.Int).Mul(payment, scale)
	tokenAmount.Div(tokenAmount, price)
	if tokenAmount.Sign() == 0 {
		return NewCustomError(http.StatusBadRequest, "purchase", ErrDustPayment(payment.String()))
	}

	schedule, err := GetSchedule(ctx, buyer)
	if err != nil {
		return err
	}
	if schedule == nil {
		schedule = &VestingSchedule{TotalPurchased: "0", TotalClaimed: "0"}
	}

	totalPurchased, ok := new(big.Int).SetString(schedule.TotalPurchased, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total purchased for %s", buyer), nil)
	}
	totalClaimed, ok := new(big.Int).SetString(schedule.TotalClaimed, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total claimed for %s", buyer), nil)
	}

	// First purchase starts the account's single vesting clock; later
	// purchases join it unchanged.
	if totalPurchased.Sign() == 0 {
		currentTime, err := now(ctx)
		if err != nil {
			return err
		}
		schedule.StartTimestamp = currentTime
	}

	totalPurchased.Add(totalPurchased, tokenAmount)
	immediateRelease := CalculateImmediateRelease(tokenAmount)
	totalClaimed.Add(totalClaimed, immediateRelease)

	schedule.TotalPurchased = totalPurchased.String()
	schedule.TotalClaimed = totalClaimed.String()

	err = SetSchedule(ctx, buyer, schedule)
	if err != nil {
		return err
	}

	err = addToTotal(ctx, totalSoldKey, tokenAmount)
	if err != nil {
		return err
	}
	err = addToTotal(ctx, totalClaimedKey, immediateRelease)
	if err != nil {
		return err
	}

	if immediateRelease.Sign() > 0 {
		err = transferTokens(ctx, saleToken, buyer, immediateRelease)
		if err != nil {
			return err
		}
	}

	return EmitPurchased(ctx, PurchasedEvent{
		Buyer:            buyer,
		PaymentAmount:    payment.String(),
		TokenAmount:      tokenAmount.String(),
		ImmediateRelease: immediateRelease.String(),
	})
}

// Claim settles every newly vested, unclaimed unit for the caller. The
// claimed amount is recorded before the outbound transfer is issued.
func (s *SmartContract) Claim(ctx TransactionContextInterface) error {
	txID := ctx.GetTxID()
	if err := s.guard.enter(txID); err != nil {
		return err
	}
	defer s.guard.exit(txID)

	signer, err := GetUserID(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	config, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	schedule, err := GetSchedule(ctx, signer)
	if err != nil {
		return err
	}
	if schedule == nil || schedule.TotalPurchased == "0" {
		return NewCustomError(http.StatusConflict, fmt.Sprintf("account %s", signer), ErrNoSchedule)
	}

	currentTime, err := now(ctx)
	if err != nil {
		return err
	}

	claimable, err := CalculateClaimable(schedule, config.CliffPeriod, config.VestingDuration, currentTime)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to compute claimable for %s", signer), err)
	}
	if claimable.Sign() <= 0 {
		return NewCustomError(http.StatusConflict, fmt.Sprintf("account %s", signer), ErrNothingToClaim)
	}

	totalClaimed, ok := new(big.Int).SetString(schedule.TotalClaimed, 10)
	if !ok {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total claimed for %s", signer), nil)
	}
	totalClaimed.Add(totalClaimed, claimable)
	schedule.TotalClaimed = totalClaimed.String()

	err = SetSchedule(ctx, signer, schedule)
	if err != nil {
		return err
	}

	err = addToTotal(ctx, totalClaimedKey, claimable)
	if err != nil {
		return err
	}

	saleToken, err := requireSaleToken(ctx)
	if err != nil {
		return err
	}
	err = transferTokens(ctx, saleToken, signer, claimable)
	if err != nil {
		return err
	}

	return EmitClaimed(ctx, signer, claimable.String())
}

// SetPrice changes the token price. Owner only; the new price must be
// positive.
func (s *SmartContract) SetPrice(ctx TransactionContextInterface, newPrice string) error {
	_, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	price, err := parsePositiveAmount("newPrice", newPrice)
	if err != nil {
		return err
	}

	config, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	oldPrice := config.TokenPrice
	config.TokenPrice = price.String()

	err = SetSaleConfig(ctx, config)
	if err != nil {
		return err
	}

	return EmitPriceChanged(ctx, oldPrice, config.TokenPrice)
}

// SetMinPurchase changes the minimum payment amount per purchase. Zero
// disables the floor.
func (s *SmartContract) SetMinPurchase(ctx TransactionContextInterface, newMinPurchase string) error {
	_, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	minimum, err := parseAmount("newMinPurchase", newMinPurchase)
	if err != nil {
		return err
	}

	config, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	oldMinimum := config.MinPurchase
	config.MinPurchase = minimum.String()

	err = SetSaleConfig(ctx, config)
	if err != nil {
		return err
	}

	return EmitMinPurchaseChanged(ctx, oldMinimum, config.MinPurchase)
}

// Deposit pulls sale tokens from the owner into escrow to back future
// purchases and claims.
func (s *SmartContract) Deposit(ctx TransactionContextInterface, amount string) error {
	owner, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	depositAmount, err := parsePositiveAmount("amount", amount)
	if err != nil {
		return err
	}

	saleToken, err := requireSaleToken(ctx)
	if err != nil {
		return err
	}

	err = pullTokens(ctx, saleToken, owner, depositAmount)
	if err != nil {
		return err
	}

	return EmitDeposited(ctx, owner, depositAmount.String())
}

// Pause stops purchases. Fails when the sale is already paused.
func (s *SmartContract) Pause(ctx TransactionContextInterface) error {
	_, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	config, err := requireConfig(ctx)
	if err != nil {
		return err
	}
	if config.Paused {
		return NewCustomError(http.StatusConflict, "sale", ErrAlreadyPaused)
	}

	config.Paused = true
	err = SetSaleConfig(ctx, config)
	if err != nil {
		return err
	}

	return EmitPaused(ctx)
}

// Unpause resumes purchases. Fails when the sale is not paused.
func (s *SmartContract) Unpause(ctx TransactionContextInterface) error {
	_, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	config, err := requireConfig(ctx)
	if err != nil {
		return err
	}
	if !config.Paused {
		return NewCustomError(http.StatusConflict, "sale", ErrAlreadyActive)
	}

	config.Paused = false
	err = SetSaleConfig(ctx, config)
	if err != nil {
		return err
	}

	return EmitUnpaused(ctx)
}

// Withdraw moves escrowed tokens of either asset to any recipient.
// Outstanding vesting obligations are not checked; this is an owner
// capability of the sale design.
func (s *SmartContract) Withdraw(ctx TransactionContextInterface, assetKind, recipient, amount string) error {
	_, err := RequireOwner(ctx)
	if err != nil {
		return err
	}

	var tokenKey string
	switch assetKind {
	case AssetSale:
		tokenKey = saleTokenKey
	case AssetPayment:
		tokenKey = paymentTokenKey
	default:
		return NewCustomError(http.StatusBadRequest, "withdrawal", ErrInvalidAssetKind(assetKind))
	}

	if !IsUserAddressValid(recipient) {
		return NewCustomError(http.StatusBadRequest, "withdrawal", fmt.Errorf("%w: %s", ErrInvalidUserAddress, recipient))
	}

	withdrawAmount, err := parsePositiveAmount("amount", amount)
	if err != nil {
		return err
	}

	tokenAddress, err := requireToken(ctx, tokenKey)
	if err != nil {
		return err
	}

	err = transferTokens(ctx, tokenAddress, recipient, withdrawAmount)
	if err != nil {
		return err
	}

	return EmitWithdrawn(ctx, assetKind, recipient, withdrawAmount.String())
}

// CurrentPrice returns the configured token price.
func (s *SmartContract) CurrentPrice(ctx TransactionContextInterface) (string, error) {
	config, err := requireConfig(ctx)
	if err != nil {
		return "", err
	}

	return config.TokenPrice, nil
}

// MinPurchase returns the configured minimum payment amount.
func (s *SmartContract) MinPurchase(ctx TransactionContextInterface) (string, error) {
	config, err := requireConfig(ctx)
	if err != nil {
		return "", err
	}

	return config.MinPurchase, nil
}

// IsPaused reports whether purchases are currently suspended.
func (s *SmartContract) IsPaused(ctx TransactionContextInterface) (bool, error) {
	config, err := requireConfig(ctx)
	if err != nil {
		return false, err
	}

	return config.Paused, nil
}

// ScheduleOf returns the vesting schedule of an account.
func (s *SmartContract) ScheduleOf(ctx TransactionContextInterface, account string) (*VestingSchedule, error) {
	if !IsUserAddressValid(account) {
		return nil, NewCustomError(http.StatusBadRequest, "schedule query", fmt.Errorf("%w: %s", ErrInvalidUserAddress, account))
	}

	schedule, err := GetSchedule(ctx, account)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, NewCustomError(http.StatusConflict, fmt.Sprintf("account %s", account), ErrNoSchedule)
	}

	return schedule, nil
}

// ClaimableOf returns what the account could claim at the transaction
// timestamp.
func (s *SmartContract) ClaimableOf(ctx TransactionContextInterface, account string) (string, error) {
	config, err := requireConfig(ctx)
	if err != nil {
		return "", err
	}

	schedule, err := s.ScheduleOf(ctx, account)
	if err != nil {
		return "", err
	}

	currentTime, err := now(ctx)
	if err != nil {
		return "", err
	}

	claimable, err := CalculateClaimable(schedule, config.CliffPeriod, config.VestingDuration, currentTime)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to compute claimable for %s", account), err)
	}
	if claimable.Sign() < 0 {
		claimable = big.NewInt(0)
	}

	return claimable.String(), nil
}

// VestedOf returns the cumulative vested amount of an account at an
// arbitrary timestamp.
func (s *SmartContract) VestedOf(ctx TransactionContextInterface, account string, atTime uint64) (string, error) {
	config, err := requireConfig(ctx)
	if err != nil {
		return "", err
	}

	schedule, err := s.ScheduleOf(ctx, account)
	if err != nil {
		return "", err
	}

	vested, err := CalculateVestedAmount(schedule, config.CliffPeriod, config.VestingDuration, atTime)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to compute vested amount for %s", account), err)
	}

	return vested.String(), nil
}

// Owner returns the admin identity set at initialization.
func (s *SmartContract) Owner(ctx TransactionContextInterface) (string, error) {
	owner, err := GetOwner(ctx)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", NewCustomError(http.StatusConflict, "sale contract", ErrNotInitialized)
	}

	return owner, nil
}

// SaleTokenAddress returns the registered sale token chaincode.
func (s *SmartContract) SaleTokenAddress(ctx TransactionContextInterface) (string, error) {
	return requireSaleToken(ctx)
}

// PaymentTokenAddress returns the registered payment token chaincode.
func (s *SmartContract) PaymentTokenAddress(ctx TransactionContextInterface) (string, error) {
	return requirePaymentToken(ctx)
}

// TotalSold returns the cumulative granted sale token amount.
func (s *SmartContract) TotalSold(ctx TransactionContextInterface) (string, error) {
	total, err := GetTotal(ctx, totalSoldKey)
	if err != nil {
		return "", err
	}

	return total.String(), nil
}

// TotalClaimed returns the cumulative sale token amount transferred out,
// immediate releases included.
func (s *SmartContract) TotalClaimed(ctx TransactionContextInterface) (string, error) {
	total, err := GetTotal(ctx, totalClaimedKey)
	if err != nil {
		return "", err
	}

	return total.String(), nil
}

// OutstandingObligations sums totalPurchased minus totalClaimed over every
// schedule: the sale token balance escrow must hold to stay solvent. Purely
// informational; nothing enforces it.
func (s *SmartContract) OutstandingObligations(ctx TransactionContextInterface) (string, error) {
	iterator, err := ctx.GetStateByRange(schedulePrefix, schedulePrefix+"~")
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, "failed to iterate schedules", err)
	}
	defer iterator.Close()

	outstanding := big.NewInt(0)
	for iterator.HasNext() {
		entry, err := iterator.Next()
		if err != nil {
			return "", NewCustomError(http.StatusInternalServerError, "failed to read schedule entry", err)
		}

		var schedule VestingSchedule
		err = json.Unmarshal(entry.Value, &schedule)
		if err != nil {
			return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal schedule with key %s", entry.Key), err)
		}

		purchased, ok := new(big.Int).SetString(schedule.TotalPurchased, 10)
		if !ok {
			return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total purchased with key %s", entry.Key), nil)
		}
		claimed, ok := new(big.Int).SetString(schedule.TotalClaimed, 10)
		if !ok {
			return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total claimed with key %s", entry.Key), nil)
		}

		outstanding.Add(outstanding, purchased.Sub(purchased, claimed))
	}

	return outstanding.String(), nil
}

func requireConfig(ctx TransactionContextInterface) (*SaleConfig, error) {
	config, err := GetSaleConfig(ctx)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, NewCustomError(http.StatusConflict, "sale contract", ErrNotInitialized)
	}

	return config, nil
}

func addToTotal(ctx TransactionContextInterface, key string, delta *big.Int) error {
	total, err := GetTotal(ctx, key)
	if err != nil {
		return err
	}

	return SetTotal(ctx, key, total.Add(total, delta))
}
