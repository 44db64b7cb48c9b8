package sale

const (
	saleConfigKey   = "sale_config"
	ownerKey        = "sale_owner"
	saleTokenKey    = "sale_token"
	paymentTokenKey = "payment_token"
	totalSoldKey    = "total_sold"
	totalClaimedKey = "total_claimed"

	schedulePrefix = "schedule_"

	// immediateReleasePercentage is the share of every purchase unlocked at
	// purchase time; the remainder vests over cliff + linear duration.
	immediateReleasePercentage = 20

	hexAddressRegex   = `^[0-9a-fA-F]{40}$`
	tokenAddressRegex = `^[a-zA-Z0-9][a-zA-Z0-9._-]*$`

	tokenTransferFunction     = "Transfer"
	tokenTransferFromFunction = "TransferFrom"
)

// AssetKind values accepted by Withdraw.
const (
	AssetSale    = "sale"
	AssetPayment = "payment"
)

// Event names.
const (
	saleInitializedEvent    = "SaleInitialized"
	saleTokenSetEvent       = "SaleTokenSet"
	paymentTokenSetEvent    = "PaymentTokenSet"
	priceChangedEvent       = "PriceChanged"
	minPurchaseChangedEvent = "MinPurchaseChanged"
	depositedEvent          = "Deposited"
	purchasedEvent          = "Purchased"
	claimedEvent            = "Claimed"
	withdrawnEvent          = "Withdrawn"
	pausedEvent             = "Paused"
	unpausedEvent           = "Unpaused"
)
