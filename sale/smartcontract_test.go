package sale_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/golang/protobuf/ptypes"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"

	"github.com/Eminivince/NavixEcosystem/sale"
	"github.com/Eminivince/NavixEcosystem/sale/mocks"
)

const (
	ownerAddress    = "0b87970433b22494faff1cc7a819e71bddc7880c"
	buyerAddress    = "4f7a9b0c1d2e3f405162738495a6b7c8d9e0f1a2"
	secondBuyer     = "89abcdef0123456789abcdef0123456789abcdef"
	outsiderAddress = "ffffffffffffffffffffffffffffffffffffffff"

	saleTokenName    = "navix-token"
	paymentTokenName = "usdx-token"
	channelName      = "navix-channel"

	t0 = uint64(1_000_000)
)

func SetUserID(transactionContext *mocks.TransactionContext, userID string) {
	completeID := fmt.Sprintf("x509::CN=%s,O=Organization,L=City,ST=State,C=Country", userID)
	b64ID := base64.StdEncoding.EncodeToString([]byte(completeID))

	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns(b64ID, nil)
	transactionContext.GetClientIdentityReturns(clientIdentity)
}

func setTxTime(t *testing.T, transactionContext *mocks.TransactionContext, seconds uint64) {
	t.Helper()

	txTimestamp, err := ptypes.TimestampProto(time.Unix(int64(seconds), 0))
	require.NoError(t, err)
	transactionContext.GetTxTimestampReturns(txTimestamp, nil)
}

func newTransactionContext() (*mocks.TransactionContext, map[string][]byte) {
	transactionContext := &mocks.TransactionContext{}
	worldState := map[string][]byte{}

	transactionContext.PutStateStub = func(key string, value []byte) error {
		worldState[key] = value
		return nil
	}
	transactionContext.GetStateStub = func(key string) ([]byte, error) {
		if data, found := worldState[key]; found {
			return data, nil
		}
		return nil, nil
	}
	transactionContext.GetStateByRangeStub = func(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
		var keys []string
		for key := range worldState {
			if key >= startKey && key < endKey {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)

		index := 0
		iterator := &mocks.StateQueryIterator{}
		iterator.HasNextStub = func() bool {
			return index < len(keys)
		}
		iterator.NextStub = func() (*queryresult.KV, error) {
			if index >= len(keys) {
				return nil, errors.New("iterator out of bounds")
			}
			kv := &queryresult.KV{Key: keys[index], Value: worldState[keys[index]]}
			index++
			return kv, nil
		}
		return iterator, nil
	}
	transactionContext.GetTxIDReturns("8f3f2d716cd92277ac0a")
	transactionContext.GetChannelIDReturns(channelName)
	transactionContext.InvokeChaincodeReturns(peer.Response{Status: shim.OK})

	return transactionContext, worldState
}

func newInitializedSale(t *testing.T) (*sale.SmartContract, *mocks.TransactionContext, map[string][]byte) {
	t.Helper()

	transactionContext, worldState := newTransactionContext()
	setTxTime(t, transactionContext, t0)
	SetUserID(transactionContext, ownerAddress)

	saleContract := &sale.SmartContract{}
	err := saleContract.Initialize(transactionContext, "2", "10", "1", cliff90Days, vesting270)
	require.NoError(t, err)

	return saleContract, transactionContext, worldState
}

func newReadySale(t *testing.T) (*sale.SmartContract, *mocks.TransactionContext, map[string][]byte) {
	t.Helper()

	saleContract, transactionContext, worldState := newInitializedSale(t)
	require.NoError(t, saleContract.SetSaleToken(transactionContext, saleTokenName))
	require.NoError(t, saleContract.SetPaymentToken(transactionContext, paymentTokenName))

	return saleContract, transactionContext, worldState
}

func lastEvent(t *testing.T, transactionContext *mocks.TransactionContext) (string, []byte) {
	t.Helper()

	count := transactionContext.SetEventCallCount()
	require.Greater(t, count, 0)
	return transactionContext.SetEventArgsForCall(count - 1)
}

func buyerSchedule(t *testing.T, worldState map[string][]byte, account string) sale.VestingSchedule {
	t.Helper()

	scheduleJSON, found := worldState["schedule_"+account]
	require.True(t, found)

	var schedule sale.VestingSchedule
	require.NoError(t, json.Unmarshal(scheduleJSON, &schedule))
	return schedule
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := newTransactionContext()
	setTxTime(t, transactionContext, t0)
	SetUserID(transactionContext, ownerAddress)

	saleContract := &sale.SmartContract{}
	err := saleContract.Initialize(transactionContext, "2", "10", "1", cliff90Days, vesting270)
	require.NoError(t, err)

	require.Equal(t, ownerAddress, string(worldState["sale_owner"]))

	var config sale.SaleConfig
	require.NoError(t, json.Unmarshal(worldState["sale_config"], &config))
	require.Equal(t, "2", config.TokenPrice)
	require.Equal(t, "10", config.MinPurchase)
	require.Equal(t, "1", config.ConversionScale)
	require.Equal(t, uint64(cliff90Days), config.CliffPeriod)
	require.Equal(t, uint64(vesting270), config.VestingDuration)
	require.False(t, config.Paused)

	eventName, payload := lastEvent(t, transactionContext)
	require.Equal(t, "SaleInitialized", eventName)

	var event sale.SaleInitializedEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	require.Equal(t, ownerAddress, event.Owner)
	require.Equal(t, "2", event.TokenPrice)

	err = saleContract.Initialize(transactionContext, "3", "0", "1", cliff90Days, vesting270)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SaleAlreadyInitialized")
}

func TestInitializeValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		tokenPrice      string
		minPurchase     string
		conversionScale string
		cliffPeriod     uint64
		vestingDuration uint64
		expectedErr     string
	}{
		{"zero price", "0", "10", "1", cliff90Days, vesting270, "CannotBeZero"},
		{"malformed price", "two", "10", "1", cliff90Days, vesting270, "InvalidAmount"},
		{"negative minimum", "2", "-10", "1", cliff90Days, vesting270, "InvalidAmount"},
		{"zero scale", "2", "10", "0", cliff90Days, vesting270, "CannotBeZero"},
		{"zero cliff", "2", "10", "1", 0, vesting270, "CannotBeZero"},
		{"zero duration", "2", "10", "1", cliff90Days, 0, "CannotBeZero"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transactionContext, _ := newTransactionContext()
			setTxTime(t, transactionContext, t0)
			SetUserID(transactionContext, ownerAddress)

			saleContract := &sale.SmartContract{}
			err := saleContract.Initialize(transactionContext, tt.tokenPrice, tt.minPurchase, tt.conversionScale, tt.cliffPeriod, tt.vestingDuration)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestInitializeRequiresIdentity(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTransactionContext()
	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns("", errors.New("failed to get ID"))
	transactionContext.GetClientIdentityReturns(clientIdentity)

	saleContract := &sale.SmartContract{}
	err := saleContract.Initialize(transactionContext, "2", "10", "1", cliff90Days, vesting270)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to get client id")
}

func TestSetTokenAddresses(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, worldState := newInitializedSale(t)

	require.NoError(t, saleContract.SetSaleToken(transactionContext, saleTokenName))
	require.Equal(t, saleTokenName, string(worldState["sale_token"]))

	eventName, _ := lastEvent(t, transactionContext)
	require.Equal(t, "SaleTokenSet", eventName)

	err := saleContract.SetSaleToken(transactionContext, "other-token")
	require.Error(t, err)
	require.Contains(t, err.Error(), "TokenAlreadySet")

	err = saleContract.SetPaymentToken(transactionContext, "bad token!")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidTokenAddress")

	SetUserID(transactionContext, buyerAddress)
	err = saleContract.SetPaymentToken(transactionContext, paymentTokenName)
	require.Error(t, err)
	require.Contains(t, err.Error(), "CallerIsNotOwner")
}

func TestBuy(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, worldState := newReadySale(t)
	SetUserID(transactionContext, buyerAddress)

	err := saleContract.Buy(transactionContext, "20")
	require.NoError(t, err)

	// Payment pulled into escrow first.
	chaincodeName, args, channel := transactionContext.InvokeChaincodeArgsForCall(0)
	require.Equal(t, paymentTokenName, chaincodeName)
	require.Equal(t, channelName, channel)
	require.Equal(t, [][]byte{[]byte("TransferFrom"), []byte(buyerAddress), []byte("20")}, args)

	// Immediate release paid out after state is written.
	chaincodeName, args, _ = transactionContext.InvokeChaincodeArgsForCall(1)
	require.Equal(t, saleTokenName, chaincodeName)
	require.Equal(t, [][]byte{[]byte("Transfer"), []byte(buyerAddress), []byte("2")}, args)

	schedule := buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "10", schedule.TotalPurchased)
	require.Equal(t, "2", schedule.TotalClaimed)
	require.Equal(t, t0, schedule.StartTimestamp)

	require.Equal(t, "10", string(worldState["total_sold"]))
	require.Equal(t, "2", string(worldState["total_claimed"]))

	eventName, payload := lastEvent(t, transactionContext)
	require.Equal(t, "Purchased", eventName)

	var event sale.PurchasedEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	require.Equal(t, buyerAddress, event.Buyer)
	require.Equal(t, "20", event.PaymentAmount)
	require.Equal(t, "10", event.TokenAmount)
	require.Equal(t, "2", event.ImmediateRelease)
}

func TestBuyValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		setup         func(t *testing.T, saleContract *sale.SmartContract, transactionContext *mocks.TransactionContext)
		paymentAmount string
		expectedErr   string
	}{
		{
			name: "paused sale",
			setup: func(t *testing.T, saleContract *sale.SmartContract, transactionContext *mocks.TransactionContext) {
				require.NoError(t, saleContract.Pause(transactionContext))
			},
			paymentAmount: "20",
			expectedErr:   "SalePaused",
		},
		{
			name:          "zero payment",
			paymentAmount: "0",
			expectedErr:   "CannotBeZero",
		},
		{
			name:          "malformed payment",
			paymentAmount: "lots",
			expectedErr:   "InvalidAmount",
		},
		{
			name:          "negative payment",
			paymentAmount: "-20",
			expectedErr:   "InvalidAmount",
		},
		{
			name:          "below minimum",
			paymentAmount: "5",
			expectedErr:   "BelowMinPurchase",
		},
		{
			name: "payment pull failure",
			setup: func(t *testing.T, saleContract *sale.SmartContract, transactionContext *mocks.TransactionContext) {
				transactionContext.InvokeChaincodeReturns(peer.Response{Status: shim.ERROR, Message: "insufficient allowance"})
			},
			paymentAmount: "20",
			expectedErr:   "TransferFailed",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			saleContract, transactionContext, worldState := newReadySale(t)
			if tt.setup != nil {
				tt.setup(t, saleContract, transactionContext)
			}
			SetUserID(transactionContext, buyerAddress)

			err := saleContract.Buy(transactionContext, tt.paymentAmount)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.expectedErr)

			_, scheduleExists := worldState["schedule_"+buyerAddress]
			require.False(t, scheduleExists)
		})
	}
}

func TestBuyValidationPullsNoPayment(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, _ := newReadySale(t)
	SetUserID(transactionContext, buyerAddress)

	err := saleContract.Buy(transactionContext, "5")
	require.Error(t, err)
	require.Contains(t, err.Error(), "BelowMinPurchase")
	require.Equal(t, 0, transactionContext.InvokeChaincodeCallCount())
}

func TestBuyDustPayment(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTransactionContext()
	setTxTime(t, transactionContext, t0)
	SetUserID(transactionContext, ownerAddress)

	saleContract := &sale.SmartContract{}
	require.NoError(t, saleContract.Initialize(transactionContext, "1000000", "0", "1", cliff90Days, vesting270))
	require.NoError(t, saleContract.SetSaleToken(transactionContext, saleTokenName))
	require.NoError(t, saleContract.SetPaymentToken(transactionContext, paymentTokenName))

	SetUserID(transactionContext, buyerAddress)
	err := saleContract.Buy(transactionContext, "999")
	require.Error(t, err)
	require.Contains(t, err.Error(), "DustPayment")
}

func TestBuyRequiresInitializedSale(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTransactionContext()
	setTxTime(t, transactionContext, t0)
	SetUserID(transactionContext, buyerAddress)

	saleContract := &sale.SmartContract{}
	err := saleContract.Buy(transactionContext, "20")
	require.Error(t, err)
	require.Contains(t, err.Error(), "SaleNotInitialized")
}

func TestBuyRepeatKeepsVestingClock(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, worldState := newReadySale(t)
	SetUserID(transactionContext, buyerAddress)

	require.NoError(t, saleContract.Buy(transactionContext, "20"))

	setTxTime(t, transactionContext, t0+10*day)
	require.NoError(t, saleContract.Buy(transactionContext, "20"))

	schedule := buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "20", schedule.TotalPurchased)
	require.Equal(t, "4", schedule.TotalClaimed)
	require.Equal(t, t0, schedule.StartTimestamp, "repeat purchase must not reset the vesting clock")

	// The combined total vests on the original clock: at cliff end plus
	// half the duration, 4 immediate + half of the 16 vesting portion.
	setTxTime(t, transactionContext, t0+cliff90Days+vesting270/2)
	require.NoError(t, saleContract.Claim(transactionContext))

	schedule = buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "12", schedule.TotalClaimed)
}

func TestClaimLifecycle(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, worldState := newReadySale(t)
	SetUserID(transactionContext, buyerAddress)
	require.NoError(t, saleContract.Buy(transactionContext, "20"))

	// Day 89: still inside the cliff, only the immediate release is
	// vested and it was already paid at purchase.
	setTxTime(t, transactionContext, t0+89*day)
	err := saleContract.Claim(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")

	schedule := buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "2", schedule.TotalClaimed)

	// Halfway through the linear unlock.
	setTxTime(t, transactionContext, t0+cliff90Days+vesting270/2)
	require.NoError(t, saleContract.Claim(transactionContext))

	schedule = buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "6", schedule.TotalClaimed)

	count := transactionContext.InvokeChaincodeCallCount()
	chaincodeName, args, _ := transactionContext.InvokeChaincodeArgsForCall(count - 1)
	require.Equal(t, saleTokenName, chaincodeName)
	require.Equal(t, [][]byte{[]byte("Transfer"), []byte(buyerAddress), []byte("4")}, args)

	eventName, payload := lastEvent(t, transactionContext)
	require.Equal(t, "Claimed", eventName)

	var event sale.ClaimedEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	require.Equal(t, buyerAddress, event.Account)
	require.Equal(t, "4", event.Amount)

	// Claiming again at the same instant yields nothing.
	err = saleContract.Claim(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")

	// Past the end of vesting everything is claimable, exactly once.
	setTxTime(t, transactionContext, t0+cliff90Days+vesting270+365*day)
	require.NoError(t, saleContract.Claim(transactionContext))

	schedule = buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "10", schedule.TotalClaimed)
	require.Equal(t, schedule.TotalPurchased, schedule.TotalClaimed)
	require.Equal(t, "10", string(worldState["total_claimed"]))

	err = saleContract.Claim(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NothingToClaim")
}

func TestClaimRequiresSchedule(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, _ := newReadySale(t)
	SetUserID(transactionContext, outsiderAddress)

	err := saleContract.Claim(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NoScheduleForAccount")
}

func TestSetPrice(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, worldState := newReadySale(t)

	require.NoError(t, saleContract.SetPrice(transactionContext, "4"))

	var config sale.SaleConfig
	require.NoError(t, json.Unmarshal(worldState["sale_config"], &config))
	require.Equal(t, "4", config.TokenPrice)

	eventName, payload := lastEvent(t, transactionContext)
	require.Equal(t, "PriceChanged", eventName)

	var event sale.PriceChangedEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	require.Equal(t, "2", event.OldPrice)
	require.Equal(t, "4", event.NewPrice)

	// Purchases convert at the new price.
	SetUserID(transactionContext, buyerAddress)
	require.NoError(t, saleContract.Buy(transactionContext, "20"))
	schedule := buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "5", schedule.TotalPurchased)

	SetUserID(transactionContext, ownerAddress)
	err := saleContract.SetPrice(transactionContext, "0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CannotBeZero")

	SetUserID(transactionContext, buyerAddress)
	err = saleContract.SetPrice(transactionContext, "3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CallerIsNotOwner")
}

func TestSetMinPurchase(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, worldState := newReadySale(t)

	require.NoError(t, saleContract.SetMinPurchase(transactionContext, "0"))

	var config sale.SaleConfig
	require.NoError(t, json.Unmarshal(worldState["sale_config"], &config))
	require.Equal(t, "0", config.MinPurchase)

	eventName, payload := lastEvent(t, transactionContext)
	require.Equal(t, "MinPurchaseChanged", eventName)

	var event sale.MinPurchaseChangedEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	require.Equal(t, "10", event.OldMinPurchase)
	require.Equal(t, "0", event.NewMinPurchase)

	err := saleContract.SetMinPurchase(transactionContext, "-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidAmount")
}

func TestPauseUnpause(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, _ := newReadySale(t)

	require.NoError(t, saleContract.Pause(transactionContext))

	paused, err := saleContract.IsPaused(transactionContext)
	require.NoError(t, err)
	require.True(t, paused)

	eventName, _ := lastEvent(t, transactionContext)
	require.Equal(t, "Paused", eventName)

	err = saleContract.Pause(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "AlreadyPaused")

	SetUserID(transactionContext, buyerAddress)
	err = saleContract.Buy(transactionContext, "20")
	require.Error(t, err)
	require.Contains(t, err.Error(), "SalePaused")

	SetUserID(transactionContext, ownerAddress)
	require.NoError(t, saleContract.Unpause(transactionContext))

	eventName, _ = lastEvent(t, transactionContext)
	require.Equal(t, "Unpaused", eventName)

	err = saleContract.Unpause(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "AlreadyActive")

	SetUserID(transactionContext, buyerAddress)
	require.NoError(t, saleContract.Buy(transactionContext, "20"))
}

func TestDeposit(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, _ := newReadySale(t)

	require.NoError(t, saleContract.Deposit(transactionContext, "50000"))

	count := transactionContext.InvokeChaincodeCallCount()
	chaincodeName, args, _ := transactionContext.InvokeChaincodeArgsForCall(count - 1)
	require.Equal(t, saleTokenName, chaincodeName)
	require.Equal(t, [][]byte{[]byte("TransferFrom"), []byte(ownerAddress), []byte("50000")}, args)

	eventName, payload := lastEvent(t, transactionContext)
	require.Equal(t, "Deposited", eventName)

	var event sale.DepositedEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	require.Equal(t, ownerAddress, event.Account)
	require.Equal(t, "50000", event.Amount)

	err := saleContract.Deposit(transactionContext, "0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CannotBeZero")

	SetUserID(transactionContext, buyerAddress)
	err = saleContract.Deposit(transactionContext, "100")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CallerIsNotOwner")
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, _ := newReadySale(t)
	SetUserID(transactionContext, buyerAddress)
	require.NoError(t, saleContract.Buy(transactionContext, "20"))
	SetUserID(transactionContext, ownerAddress)

	require.NoError(t, saleContract.Withdraw(transactionContext, sale.AssetPayment, outsiderAddress, "20"))

	count := transactionContext.InvokeChaincodeCallCount()
	chaincodeName, args, _ := transactionContext.InvokeChaincodeArgsForCall(count - 1)
	require.Equal(t, paymentTokenName, chaincodeName)
	require.Equal(t, [][]byte{[]byte("Transfer"), []byte(outsiderAddress), []byte("20")}, args)

	eventName, payload := lastEvent(t, transactionContext)
	require.Equal(t, "Withdrawn", eventName)

	var event sale.WithdrawnEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	require.Equal(t, sale.AssetPayment, event.AssetKind)
	require.Equal(t, outsiderAddress, event.Recipient)
	require.Equal(t, "20", event.Amount)

	// Withdrawal is not checked against outstanding vesting obligations;
	// the owner can drain the sale asset escrow.
	require.NoError(t, saleContract.Withdraw(transactionContext, sale.AssetSale, outsiderAddress, "999999999"))

	err := saleContract.Withdraw(transactionContext, "bond", outsiderAddress, "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidAssetKind")

	err = saleContract.Withdraw(transactionContext, sale.AssetSale, "not-an-address", "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidUserAddress")

	SetUserID(transactionContext, buyerAddress)
	err = saleContract.Withdraw(transactionContext, sale.AssetSale, outsiderAddress, "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CallerIsNotOwner")
}

func TestReentrancyRejected(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, worldState := newReadySale(t)
	SetUserID(transactionContext, buyerAddress)

	// Simulate the sale token chaincode calling back into the contract
	// while the immediate-release transfer is in flight. The nested call
	// shares the transaction ID and must be rejected outright.
	var nestedErr error
	transactionContext.InvokeChaincodeStub = func(chaincodeName string, args [][]byte, channel string) peer.Response {
		if chaincodeName == saleTokenName && string(args[0]) == "Transfer" {
			nestedErr = saleContract.Claim(transactionContext)
		}
		return peer.Response{Status: shim.OK}
	}

	err := saleContract.Buy(transactionContext, "20")
	require.NoError(t, err)

	require.Error(t, nestedErr)
	require.Contains(t, nestedErr.Error(), "ReentrantCall")

	// The nested call observed already-updated state and changed nothing.
	schedule := buyerSchedule(t, worldState, buyerAddress)
	require.Equal(t, "10", schedule.TotalPurchased)
	require.Equal(t, "2", schedule.TotalClaimed)

	// The guard releases on exit: a later guarded call goes through.
	transactionContext.InvokeChaincodeStub = nil
	transactionContext.InvokeChaincodeReturns(peer.Response{Status: shim.OK})
	setTxTime(t, transactionContext, t0+cliff90Days+vesting270)
	require.NoError(t, saleContract.Claim(transactionContext))
}

func TestReadOperations(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, _ := newReadySale(t)
	SetUserID(transactionContext, buyerAddress)
	require.NoError(t, saleContract.Buy(transactionContext, "20"))

	price, err := saleContract.CurrentPrice(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "2", price)

	minimum, err := saleContract.MinPurchase(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "10", minimum)

	paused, err := saleContract.IsPaused(transactionContext)
	require.NoError(t, err)
	require.False(t, paused)

	owner, err := saleContract.Owner(transactionContext)
	require.NoError(t, err)
	require.Equal(t, ownerAddress, owner)

	saleToken, err := saleContract.SaleTokenAddress(transactionContext)
	require.NoError(t, err)
	require.Equal(t, saleTokenName, saleToken)

	paymentToken, err := saleContract.PaymentTokenAddress(transactionContext)
	require.NoError(t, err)
	require.Equal(t, paymentTokenName, paymentToken)

	schedule, err := saleContract.ScheduleOf(transactionContext, buyerAddress)
	require.NoError(t, err)
	require.Equal(t, "10", schedule.TotalPurchased)
	require.Equal(t, "2", schedule.TotalClaimed)
	require.Equal(t, t0, schedule.StartTimestamp)

	_, err = saleContract.ScheduleOf(transactionContext, outsiderAddress)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NoScheduleForAccount")

	setTxTime(t, transactionContext, t0+cliff90Days+vesting270/2)
	claimable, err := saleContract.ClaimableOf(transactionContext, buyerAddress)
	require.NoError(t, err)
	require.Equal(t, "4", claimable)

	vested, err := saleContract.VestedOf(transactionContext, buyerAddress, t0+cliff90Days+vesting270)
	require.NoError(t, err)
	require.Equal(t, "10", vested)

	totalSold, err := saleContract.TotalSold(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "10", totalSold)

	totalClaimed, err := saleContract.TotalClaimed(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "2", totalClaimed)
}

func TestReadOperationsRequireInitializedSale(t *testing.T) {
	t.Parallel()

	transactionContext, _ := newTransactionContext()
	saleContract := &sale.SmartContract{}

	_, err := saleContract.CurrentPrice(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SaleNotInitialized")

	_, err = saleContract.Owner(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SaleNotInitialized")
}

func TestOutstandingObligations(t *testing.T) {
	t.Parallel()

	saleContract, transactionContext, _ := newReadySale(t)

	SetUserID(transactionContext, buyerAddress)
	require.NoError(t, saleContract.Buy(transactionContext, "20"))

	SetUserID(transactionContext, secondBuyer)
	require.NoError(t, saleContract.Buy(transactionContext, "40"))

	outstanding, err := saleContract.OutstandingObligations(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "24", outstanding)

	// Claims shrink the outstanding balance.
	setTxTime(t, transactionContext, t0+cliff90Days+vesting270)
	require.NoError(t, saleContract.Claim(transactionContext))

	outstanding, err = saleContract.OutstandingObligations(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "8", outstanding)
}
