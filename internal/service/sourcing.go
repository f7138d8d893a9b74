package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/davakhana/internal/model"
)

var (
	monthlyTurnover      = decimal.NewFromInt(8500000)
	currentSourcingValue = decimal.NewFromInt(620000)
	sourcingMinShare     = decimal.RequireFromString("0.05")
	sourcingMaxShare     = decimal.RequireFromString("0.10")
)

// FetchSuppliers возвращает список поставщиков субстанций.
func (s *Service) FetchSuppliers(_ context.Context) []model.Supplier {
	return []model.Supplier{
		{
			ID:             "sup-1",
			Name:           "Bharat Pharma API Hub",
			Location:       "Hyderabad, India",
			LicenseNo:      "LIC-2024-BHARAT",
			IsGovtApproved: true,
			APIProvided:    []string{"Paracetamol IP", "Metformin API"},
			Rating:         4.9,
		},
	}
}

// FetchSourcingStats возвращает показатели закупок: обязательный коридор составляет 5–10% месячного оборота.
func (s *Service) FetchSourcingStats(_ context.Context) model.SourcingStats {
	return model.SourcingStats{
		TotalMonthlyTurnover: monthlyTurnover,
		RequiredSourcingMin:  monthlyTurnover.Mul(sourcingMinShare),
		RequiredSourcingMax:  monthlyTurnover.Mul(sourcingMaxShare),
		CurrentSourcingValue: currentSourcingValue,
	}
}
