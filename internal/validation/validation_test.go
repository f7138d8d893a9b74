package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/davakhana/internal/model"
)

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+91 8707535798", true},
		{"8707535798", true},
		{"+91-98765-43210", true},
		{"5707535798", false},
		{"870753579", false},
		{"+91 87075357981", false},
		{"87075a5798", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidPhone(tt.phone); got != tt.want {
			t.Fatalf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestIsValidPincode(t *testing.T) {
	tests := []struct {
		pin  string
		want bool
	}{
		{"226005", true},
		{"110001", true},
		{"026005", false},
		{"22600", false},
		{"2260051", false},
		{"22600a", false},
	}

	for _, tt := range tests {
		if got := IsValidPincode(tt.pin); got != tt.want {
			t.Fatalf("IsValidPincode(%q) = %v, want %v", tt.pin, got, tt.want)
		}
	}
}

func validDraft() model.MedicineDraft {
	return model.MedicineDraft{
		Name:         "Amlodipine 5mg",
		Manufacturer: "Lucknow Generics",
		Category:     "Cardiac",
		DosageForm:   "Tablet",
		ExpiryDate:   "2027-03-31",
		MRP:          decimal.NewFromInt(30),
		Price:        decimal.NewFromInt(22),
		Stock:        100,
	}
}

func TestMedicineDraft(t *testing.T) {
	if err := MedicineDraft(validDraft()); err != nil {
		t.Fatalf("valid draft rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(d *model.MedicineDraft)
	}{
		{"empty name", func(d *model.MedicineDraft) { d.Name = "  " }},
		{"empty manufacturer", func(d *model.MedicineDraft) { d.Manufacturer = "" }},
		{"empty category", func(d *model.MedicineDraft) { d.Category = "" }},
		{"unknown dosage form", func(d *model.MedicineDraft) { d.DosageForm = "Powder" }},
		{"bad expiry", func(d *model.MedicineDraft) { d.ExpiryDate = "31/03/2027" }},
		{"zero price", func(d *model.MedicineDraft) { d.Price = decimal.Zero }},
		{"price above mrp", func(d *model.MedicineDraft) { d.Price = decimal.NewFromInt(31) }},
		{"negative stock", func(d *model.MedicineDraft) { d.Stock = -1 }},
		{"unknown source", func(d *model.MedicineDraft) { d.Source = "pharmeasy" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := MedicineDraft(d)
			if !errors.Is(err, ErrInvalidMedicine) {
				t.Fatalf("err = %v, want ErrInvalidMedicine", err)
			}
		})
	}
}

func TestIsKnownDosageForm_CaseInsensitive(t *testing.T) {
	if !IsKnownDosageForm("syrup") {
		t.Fatalf("syrup must be accepted")
	}
	if IsKnownDosageForm("Gel") {
		t.Fatalf("Gel must be rejected")
	}
}
