package snapshot

import (
	"fmt"
	"math/big"
	"os"

	"github.com/Layr-Labs/staking-snap/pkg/stakes"
	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName            = "Staking Information"
	HeaderStakingAddress = "Staking Address"
	HeaderTotalAmount    = "Total Staking Amount"
)

// WriteSpreadsheet writes one row per address under a header row. Amounts are written as
// decimal strings so no precision is lost.
func WriteSpreadsheet(path string, totals *stakes.AddressTotals) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing spreadsheet: %w", closeErr)
		}
	}()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("error naming sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &[]interface{}{HeaderStakingAddress, HeaderTotalAmount}); err != nil {
		return fmt.Errorf("error writing header row: %w", err)
	}

	for i, row := range totals.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]interface{}{row.Address, row.Amount.String()}); err != nil {
			return fmt.Errorf("error writing row for %s: %w", row.Address, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "B", 48); err != nil {
		return fmt.Errorf("error setting column width: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving spreadsheet: %w", err)
	}
	return nil
}

// ReadSpreadsheet returns every row of the snapshot sheet, header included.
func ReadSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening spreadsheet: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("error reading sheet '%s': %w", SheetName, err)
	}
	return rows, nil
}

// StakeDetailRow is one stake record in the stake details CSV.
type StakeDetailRow struct {
	Address  string `csv:"address"`
	Index    uint64 `csv:"index"`
	TokenId  string `csv:"token_id"`
	Amount   string `csv:"amount"`
	StakedAt uint64 `csv:"staked_at"`
	Claimed  string `csv:"claimed"`
}

func bigIntString(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}

// WriteStakeDetails writes every stake record, grouped by address in discovery order.
func WriteStakeDetails(path string, stakesByAddress *stakes.StakesByAddress) error {
	rows := make([]*StakeDetailRow, 0)
	for pair := stakesByAddress.Oldest(); pair != nil; pair = pair.Next() {
		for _, s := range pair.Value {
			rows = append(rows, &StakeDetailRow{
				Address:  pair.Key,
				Index:    s.Index,
				TokenId:  bigIntString(s.TokenId),
				Amount:   bigIntString(s.Amount),
				StakedAt: s.StakedAt,
				Claimed:  bigIntString(s.Claimed),
			})
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error creating stake details file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("error writing stake details: %w", err)
	}
	return nil
}

// ReadStakeDetails parses a stake details CSV.
func ReadStakeDetails(path string) ([]*StakeDetailRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening stake details file: %w", err)
	}
	defer file.Close()

	rows := make([]*StakeDetailRow, 0)
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("error reading stake details: %w", err)
	}
	return rows, nil
}
