package stakes

import (
	"math/big"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// StakesByAddress holds every address's stake records in discovery order.
type StakesByAddress = orderedmap.OrderedMap[string, []*StakeRecord]

func NewStakesByAddress() *StakesByAddress {
	return orderedmap.New[string, []*StakeRecord]()
}

// AddressTotal is one row of the snapshot.
type AddressTotal struct {
	Address string
	Amount  *big.Int
}

// AddressTotals maps lowercase addresses to their summed stake amount, keeping the order in
// which addresses were discovered.
type AddressTotals struct {
	totals *orderedmap.OrderedMap[string, *big.Int]
}

func NewAddressTotals() *AddressTotals {
	return &AddressTotals{
		totals: orderedmap.New[string, *big.Int](),
	}
}

// Add adds amount to the address's running total.
func (a *AddressTotals) Add(address string, amount *big.Int) {
	address = strings.ToLower(address)
	current, ok := a.totals.Get(address)
	if !ok {
		current = new(big.Int)
		a.totals.Set(address, current)
	}
	current.Add(current, amount)
}

func (a *AddressTotals) Get(address string) (*big.Int, bool) {
	v, ok := a.totals.Get(strings.ToLower(address))
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

func (a *AddressTotals) Len() int {
	return a.totals.Len()
}

// Rows returns the totals in discovery order.
func (a *AddressTotals) Rows() []*AddressTotal {
	rows := make([]*AddressTotal, 0, a.totals.Len())
	for pair := a.totals.Oldest(); pair != nil; pair = pair.Next() {
		rows = append(rows, &AddressTotal{
			Address: pair.Key,
			Amount:  new(big.Int).Set(pair.Value),
		})
	}
	return rows
}

// Total is the sum over every address.
func (a *AddressTotals) Total() *big.Int {
	total := new(big.Int)
	for pair := a.totals.Oldest(); pair != nil; pair = pair.Next() {
		total.Add(total, pair.Value)
	}
	return total
}

// Aggregate sums the stake amounts of every address. Addresses without records are dropped.
func Aggregate(stakesByAddress *StakesByAddress) *AddressTotals {
	totals := NewAddressTotals()
	if stakesByAddress == nil {
		return totals
	}
	for pair := stakesByAddress.Oldest(); pair != nil; pair = pair.Next() {
		if len(pair.Value) == 0 {
			continue
		}
		for _, stake := range pair.Value {
			if stake == nil || stake.Amount == nil {
				continue
			}
			totals.Add(pair.Key, stake.Amount)
		}
	}
	return totals
}
