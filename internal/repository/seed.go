package repository

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/davakhana/internal/model"
)

const (
	imgTablets = "https://images.unsplash.com/photo-1584308666744-24d5c474f2ae?auto=format&fit=crop&q=80&w=800"
	imgBottles = "https://images.unsplash.com/photo-1550572017-edd951aa8f72?auto=format&fit=crop&q=80&w=800"
	imgBlister = "https://images.unsplash.com/photo-1587854692152-cbe660dbbb88?auto=format&fit=crop&q=80&w=800"
	imgCapsule = "https://images.unsplash.com/photo-1584017911766-d451b3d0e843?auto=format&fit=crop&q=80&w=800"
)

// DefaultCatalog возвращает стартовый каталог витрины.
func DefaultCatalog() []model.Medicine {
	rs := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }

	items := []model.Medicine{
		{
			ID:           "dk-001",
			Name:         "Generic Paracetamol IP 500mg",
			Description:  "Government authorized high-quality generic paracetamol for fast relief from fever and pain.",
			Manufacturer: "Jan Aushadhi (PMBJP)",
			Category:     "Pain Relief",
			DosageForm:   "Tablet",
			ExpiryDate:   "2027-01-01",
			MRP:          rs("15.00"),
			Price:        rs("9.50"),
			Stock:        2500,
			ImageURL:     imgTablets,
			SellerID:     "govt_hub",
			Rating:       4.9,
			ReviewsCount: 12400,
			Source:       model.SourceJanAushadhi,
			IsGeneric:    true,
		},
		{
			ID:                   "dk-002",
			Name:                 "Metformin HCl 500mg",
			Description:          "Primary medication for Type 2 Diabetes management. Helps control blood sugar levels.",
			Manufacturer:         "Jan Aushadhi (PMBJP)",
			Category:             "Diabetic",
			DosageForm:           "Tablet",
			ExpiryDate:           "2026-11-20",
			MRP:                  rs("24.00"),
			Price:                rs("18.00"),
			Stock:                5000,
			ImageURL:             imgBottles,
			RequiresPrescription: true,
			SellerID:             "govt_hub",
			Rating:               4.8,
			ReviewsCount:         8200,
			Source:               model.SourceJanAushadhi,
			IsGeneric:            true,
		},
		{
			ID:                   "dk-003",
			Name:                 "Salbutamol Inhaler (100mcg)",
			Description:          "Fast-acting bronchodilator for quick relief from asthma attacks and COPD symptoms.",
			Manufacturer:         "Cipla Health",
			Category:             "Inhaler",
			DosageForm:           "Inhaler",
			ExpiryDate:           "2025-08-15",
			MRP:                  rs("175.00"),
			Price:                rs("152.00"),
			Stock:                450,
			ImageURL:             imgBottles,
			RequiresPrescription: true,
			SellerID:             "local_pharmacy_1",
			Rating:               4.7,
			ReviewsCount:         3100,
			Source:               model.SourceLocal,
		},
		{
			ID:           "dk-004",
			Name:         "Benadryl DR Syrup",
			Description:  "Powerful cough suppressant syrup for dry cough relief. Doctor authorized.",
			Manufacturer: "Johnson & Johnson",
			Category:     "Cough & Cold",
			DosageForm:   "Syrup",
			ExpiryDate:   "2026-03-10",
			MRP:          rs("140.00"),
			Price:        rs("125.00"),
			Stock:        800,
			ImageURL:     imgTablets,
			SellerID:     "local_pharmacy_1",
			Rating:       4.6,
			ReviewsCount: 5600,
			Source:       model.SourceLocal,
		},
		{
			ID:                   "dk-005",
			Name:                 "Geftinat 250mg",
			Description:          "Targeted therapy for non-small cell lung cancer. Essential oncology medicine.",
			Manufacturer:         "Natco Pharma",
			Category:             "Cancer",
			DosageForm:           "Tablet",
			ExpiryDate:           "2025-06-30",
			MRP:                  rs("10200.00"),
			Price:                rs("8450.00"),
			Stock:                25,
			ImageURL:             imgBlister,
			RequiresPrescription: true,
			SellerID:             "specialty_meds",
			Rating:               4.9,
			ReviewsCount:         520,
			Source:               model.SourceLocal,
			IsGeneric:            true,
		},
		{
			ID:                   "dk-006",
			Name:                 "Sevelamer Carbonate 800mg",
			Description:          "Phosphate binder used in patients with chronic kidney disease on dialysis.",
			Manufacturer:         "Sanofi Genzyme",
			Category:             "Nephrology",
			DosageForm:           "Tablet",
			ExpiryDate:           "2026-01-15",
			MRP:                  rs("2600.00"),
			Price:                rs("2320.00"),
			Stock:                120,
			ImageURL:             imgCapsule,
			RequiresPrescription: true,
			SellerID:             "specialty_meds",
			Rating:               4.8,
			ReviewsCount:         1100,
			Source:               model.SourceWestPharma,
		},
		{
			ID:           "dk-007",
			Name:         "Vitamin D3 60K Capsules",
			Description:  "High-dose Vitamin D3 for bone health and immunity support. Soft-gel capsules.",
			Manufacturer: "Cadila Pharma",
			Category:     "Vitamins",
			DosageForm:   "Capsule",
			ExpiryDate:   "2027-05-10",
			MRP:          rs("65.00"),
			Price:        rs("48.00"),
			Stock:        1500,
			ImageURL:     imgCapsule,
			SellerID:     "govt_hub",
			Rating:       4.9,
			ReviewsCount: 9500,
			Source:       model.SourceJanAushadhi,
			IsGeneric:    true,
		},
		{
			ID:                   "dk-008",
			Name:                 "Januvia 100mg",
			Description:          "Advanced Western diabetic medication for blood sugar control in Type 2 diabetes.",
			Manufacturer:         "Merck & Co.",
			Category:             "Diabetic",
			DosageForm:           "Tablet",
			ExpiryDate:           "2026-04-20",
			MRP:                  rs("1480.00"),
			Price:                rs("1340.00"),
			Stock:                90,
			ImageURL:             imgBottles,
			RequiresPrescription: true,
			SellerID:             "west_distributor",
			Rating:               4.8,
			ReviewsCount:         4200,
			Source:               model.SourceWestPharma,
		},
	}

	for i := range items {
		items[i].ApprovalStatus = model.ApprovalApproved
	}
	return items
}
