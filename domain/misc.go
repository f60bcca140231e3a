package domain

// Table is a mongo collection name
type Table string

const (
	TableAuctions      Table = "auctions"
	TableBids          Table = "bids"
	TableAutoBidOrders Table = "auto_bid_orders"
	TableAccounts      Table = "accounts"
)

type SortDir int8

const (
	SortDirAsc  SortDir = 1
	SortDirDesc SortDir = -1
)

// AccountId identifies an account across the whole system
type AccountId string

func (a AccountId) String() string {
	return string(a)
}

func (a AccountId) IsEmpty() bool {
	return len(a) == 0
}

func (a AccountId) Equals(b AccountId) bool {
	return a == b
}
