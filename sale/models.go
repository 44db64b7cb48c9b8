package sale

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
)

// SaleConfig is the singleton parameter record administered by the owner.
// Amounts are decimal strings in smallest units; durations are seconds.
type SaleConfig struct {
	TokenPrice      string `json:"tokenPrice"`
	MinPurchase     string `json:"minPurchase"`
	ConversionScale string `json:"conversionScale"`
	CliffPeriod     uint64 `json:"cliffPeriod"`
	VestingDuration uint64 `json:"vestingDuration"`
	Paused          bool   `json:"paused"`
}

// VestingSchedule is the per-account cumulative purchase record. It is
// created lazily on first purchase and never deleted, even once fully
// claimed. TotalClaimed includes the immediate releases paid at purchase
// time. StartTimestamp is set at the first purchase and never reset.
type VestingSchedule struct {
	TotalPurchased string `json:"totalPurchased"`
	TotalClaimed   string `json:"totalClaimed"`
	StartTimestamp uint64 `json:"startTimestamp"`
}

func GetSaleConfig(ctx TransactionContextInterface) (*SaleConfig, error) {
	configAsBytes, err := ctx.GetState(saleConfigKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get sale config with key %s", saleConfigKey), err)
	}
	if configAsBytes == nil {
		return nil, nil
	}

	var config SaleConfig
	err = json.Unmarshal(configAsBytes, &config)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal sale config", err)
	}

	return &config, nil
}

func SetSaleConfig(ctx TransactionContextInterface, config *SaleConfig) error {
	configAsBytes, err := json.Marshal(config)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal sale config", err)
	}

	err = ctx.PutState(saleConfigKey, configAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set sale config", err)
	}

	return nil
}

// GetSchedule returns nil without error when the account has no schedule yet.
func GetSchedule(ctx TransactionContextInterface, account string) (*VestingSchedule, error) {
	scheduleKey := schedulePrefix + account
	scheduleAsBytes, err := ctx.GetState(scheduleKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get schedule with key %s", scheduleKey), err)
	}
	if scheduleAsBytes == nil {
		return nil, nil
	}

	var schedule VestingSchedule
	err = json.Unmarshal(scheduleAsBytes, &schedule)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to unmarshal schedule for %s", account), err)
	}

	return &schedule, nil
}

func SetSchedule(ctx TransactionContextInterface, account string, schedule *VestingSchedule) error {
	scheduleAsBytes, err := json.Marshal(schedule)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal schedule for %s", account), err)
	}

	err = ctx.PutState(schedulePrefix+account, scheduleAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set schedule for %s", account), err)
	}

	return nil
}

func GetOwner(ctx TransactionContextInterface) (string, error) {
	ownerAsBytes, err := ctx.GetState(ownerKey)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get owner with key %s", ownerKey), err)
	}

	return string(ownerAsBytes), nil
}

func SetOwner(ctx TransactionContextInterface, owner string) error {
	err := ctx.PutState(ownerKey, []byte(owner))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set owner", err)
	}

	return nil
}

func GetTokenAddress(ctx TransactionContextInterface, key string) (string, error) {
	tokenAddressBytes, err := ctx.GetState(key)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get token address with key %s", key), err)
	}

	return string(tokenAddressBytes), nil
}

// SetTokenAddress stores a token chaincode address exactly once; a second
// set attempt is rejected.
func SetTokenAddress(ctx TransactionContextInterface, key, tokenAddress string) error {
	existingAddress, err := ctx.GetState(key)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get token address with key %s", key), err)
	}
	if existingAddress != nil && string(existingAddress) != "" {
		return NewCustomError(http.StatusConflict, fmt.Sprintf("token address for key %s", key), ErrTokenAlreadySet)
	}

	err = ctx.PutState(key, []byte(tokenAddress))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set token address with key %s", key), err)
	}

	return nil
}

// GetTotal reads an audit counter (total_sold or total_claimed), defaulting
// to zero when unset.
func GetTotal(ctx TransactionContextInterface, key string) (*big.Int, error) {
	totalAsBytes, err := ctx.GetState(key)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get total with key %s", key), err)
	}

	total := big.NewInt(0)
	if totalAsBytes != nil {
		_, success := total.SetString(string(totalAsBytes), 10)
		if !success {
			return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse total with key %s", key), nil)
		}
	}

	return total, nil
}

func SetTotal(ctx TransactionContextInterface, key string, total *big.Int) error {
	totalAsBytes, err := total.MarshalText()
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal total with key %s", key), err)
	}

	err = ctx.PutState(key, totalAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set total with key %s", key), err)
	}

	return nil
}
