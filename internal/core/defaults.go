package core

// Transaction type codes understood by the node.
const (
	TypePayment        = 0
	TypeMessaging      = 1
	TypeColoredCoins   = 2
	TypeDigitalGoods   = 3
	TypeAccountControl = 4
)

// Receiver pages that transactions can notify about.
const (
	PageTransactions      = "transactions"
	PageMessages          = "messages"
	PageAliases           = "aliases"
	PageTransferHistory   = "transfer_history"
	PagePendingOrdersDGS  = "pending_orders_dgs"
	PagePurchasedDGS      = "purchased_dgs"
	PageCompletedOrderDGS = "completed_orders_dgs"
)

var defaultTypes = []TransactionType{
	{
		Code: TypePayment,
		Name: "Payment",
		SubTypes: []*SubType{
			{Code: 0, Title: "Ordinary Payment", I18nKey: "ordinary_payment", ReceiverPage: PageTransactions, Icon: "fa-money"},
		},
	},
	{
		Code: TypeMessaging,
		Name: "Messaging",
		SubTypes: []*SubType{
			{Code: 0, Title: "Arbitrary Message", I18nKey: "arbitrary_message", ReceiverPage: PageMessages, Icon: "fa-envelope-square"},
			{Code: 1, Title: "Alias Assignment", I18nKey: "alias_assignment", Icon: "fa-bookmark"},
			{Code: 2, Title: "Poll Creation", I18nKey: "poll_creation", Icon: "fa-check-square-o"},
			{Code: 3, Title: "Vote Casting", I18nKey: "vote_casting", Icon: "fa-check"},
			{Code: 4, Title: "Hub Announcement", I18nKey: "hub_announcement", Icon: "fa-signal"},
			{Code: 6, Title: "Alias Sale", I18nKey: "alias_sale", ReceiverPage: PageAliases, Icon: "fa-bookmark"},
			{Code: 7, Title: "Alias Buy", I18nKey: "alias_buy", ReceiverPage: PageAliases, Icon: "fa-bookmark"},
		},
	},
	{
		Code: TypeColoredCoins,
		Name: "Asset Exchange",
		SubTypes: []*SubType{
			{Code: 0, Title: "Asset Issuance", I18nKey: "asset_issuance", Icon: "fa-bullhorn"},
			{Code: 1, Title: "Asset Transfer", I18nKey: "asset_transfer", ReceiverPage: PageTransferHistory, Icon: "fa-users"},
			{Code: 2, Title: "Ask Order Placement", I18nKey: "ask_order_placement", Icon: "fa-thumbs-down"},
			{Code: 3, Title: "Bid Order Placement", I18nKey: "bid_order_placement", Icon: "fa-thumbs-up"},
			{Code: 4, Title: "Ask Order Cancellation", I18nKey: "ask_order_cancellation", Icon: "fa-thumbs-o-down"},
			{Code: 5, Title: "Bid Order Cancellation", I18nKey: "bid_order_cancellation", Icon: "fa-thumbs-o-up"},
		},
	},
	{
		Code: TypeDigitalGoods,
		Name: "Marketplace",
		SubTypes: []*SubType{
			{Code: 0, Title: "Marketplace Listing", I18nKey: "marketplace_listing", Icon: "fa-shopping-cart"},
			{Code: 1, Title: "Marketplace Removal", I18nKey: "marketplace_removal", Icon: "fa-shopping-cart"},
			{Code: 2, Title: "Marketplace Price Change", I18nKey: "marketplace_price_change", Icon: "fa-shopping-cart"},
			{Code: 3, Title: "Marketplace Quantity Change", I18nKey: "marketplace_quantity_change", Icon: "fa-shopping-cart"},
			{Code: 4, Title: "Marketplace Purchase", I18nKey: "marketplace_purchase", ReceiverPage: PagePendingOrdersDGS, Icon: "fa-shopping-cart"},
			{Code: 5, Title: "Marketplace Delivery", I18nKey: "marketplace_delivery", ReceiverPage: PagePurchasedDGS, Icon: "fa-shopping-cart"},
			{Code: 6, Title: "Marketplace Feedback", I18nKey: "marketplace_feedback", ReceiverPage: PageCompletedOrderDGS, Icon: "fa-shopping-cart"},
			{Code: 7, Title: "Marketplace Refund", I18nKey: "marketplace_refund", ReceiverPage: PagePurchasedDGS, Icon: "fa-shopping-cart"},
		},
	},
	{
		Code: TypeAccountControl,
		Name: "Account Control",
		SubTypes: []*SubType{
			{Code: 0, Title: "Balance Leasing", I18nKey: "balance_leasing", ReceiverPage: PageTransactions, Icon: "fa-arrow-circle-o-right"},
		},
	},
}

// DefaultRegistry returns a fresh registry of the node's transaction types
// with zero counts and watermarks.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultTypes)
}
