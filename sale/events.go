package sale

import (
	"encoding/json"
	"fmt"
)

type SaleInitializedEvent struct {
	Owner           string `json:"owner"`
	TokenPrice      string `json:"tokenPrice"`
	MinPurchase     string `json:"minPurchase"`
	ConversionScale string `json:"conversionScale"`
	CliffPeriod     uint64 `json:"cliffPeriod"`
	VestingDuration uint64 `json:"vestingDuration"`
}

type TokenSetEvent struct {
	TokenAddress string `json:"tokenAddress"`
}

type PriceChangedEvent struct {
	OldPrice string `json:"oldPrice"`
	NewPrice string `json:"newPrice"`
}

type MinPurchaseChangedEvent struct {
	OldMinPurchase string `json:"oldMinPurchase"`
	NewMinPurchase string `json:"newMinPurchase"`
}

type DepositedEvent struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type PurchasedEvent struct {
	Buyer            string `json:"buyer"`
	PaymentAmount    string `json:"paymentAmount"`
	TokenAmount      string `json:"tokenAmount"`
	ImmediateRelease string `json:"immediateRelease"`
}

type ClaimedEvent struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type WithdrawnEvent struct {
	AssetKind string `json:"assetKind"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type PausedEvent struct{}

type UnpausedEvent struct{}

func emitEvent(ctx TransactionContextInterface, name string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to obtain JSON encoding for event %s: %v", name, err)
	}

	err = ctx.SetEvent(name, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to set event %s: %v", name, err)
	}

	return nil
}

func EmitSaleInitialized(ctx TransactionContextInterface, event SaleInitializedEvent) error {
	return emitEvent(ctx, saleInitializedEvent, event)
}

func EmitSaleTokenSet(ctx TransactionContextInterface, tokenAddress string) error {
	return emitEvent(ctx, saleTokenSetEvent, TokenSetEvent{TokenAddress: tokenAddress})
}

func EmitPaymentTokenSet(ctx TransactionContextInterface, tokenAddress string) error {
	return emitEvent(ctx, paymentTokenSetEvent, TokenSetEvent{TokenAddress: tokenAddress})
}

func EmitPriceChanged(ctx TransactionContextInterface, oldPrice, newPrice string) error {
	return emitEvent(ctx, priceChangedEvent, PriceChangedEvent{OldPrice: oldPrice, NewPrice: newPrice})
}

func EmitMinPurchaseChanged(ctx TransactionContextInterface, oldMinPurchase, newMinPurchase string) error {
	return emitEvent(ctx, minPurchaseChangedEvent, MinPurchaseChangedEvent{OldMinPurchase: oldMinPurchase, NewMinPurchase: newMinPurchase})
}

func EmitDeposited(ctx TransactionContextInterface, account, amount string) error {
	return emitEvent(ctx, depositedEvent, DepositedEvent{Account: account, Amount: amount})
}

func EmitPurchased(ctx TransactionContextInterface, event PurchasedEvent) error {
	return emitEvent(ctx, purchasedEvent, event)
}

func EmitClaimed(ctx TransactionContextInterface, account, amount string) error {
	return emitEvent(ctx, claimedEvent, ClaimedEvent{Account: account, Amount: amount})
}

func EmitWithdrawn(ctx TransactionContextInterface, assetKind, recipient, amount string) error {
	return emitEvent(ctx, withdrawnEvent, WithdrawnEvent{AssetKind: assetKind, Recipient: recipient, Amount: amount})
}

func EmitPaused(ctx TransactionContextInterface) error {
	return emitEvent(ctx, pausedEvent, PausedEvent{})
}

func EmitUnpaused(ctx TransactionContextInterface) error {
	return emitEvent(ctx, unpausedEvent, UnpausedEvent{})
}
