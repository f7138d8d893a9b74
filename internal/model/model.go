// Package model содержит доменные сущности сервиса Давахана.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя витрины.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Next возвращает следующую роль в цикле buyer → seller → admin → buyer.
func (r Role) Next() Role {
	switch r {
	case RoleBuyer:
		return RoleSeller
	case RoleSeller:
		return RoleAdmin
	default:
		return RoleBuyer
	}
}

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller || r == RoleAdmin
}

// User представляет пользователя витрины.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"-"`
}

// ApprovalStatus описывает состояние модерации позиции каталога.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Source описывает источник поставки препарата.
type Source string

const (
	SourceJanAushadhi Source = "jan_aushadhi"
	SourceTataMG      Source = "tatamg"
	SourceLocal       Source = "local"
	SourceWestPharma  Source = "west_pharma"
)

// Valid сообщает, является ли источник одним из известных.
func (s Source) Valid() bool {
	switch s {
	case SourceJanAushadhi, SourceTataMG, SourceLocal, SourceWestPharma:
		return true
	}
	return false
}

// Medicine описывает позицию каталога.
type Medicine struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Manufacturer         string          `json:"manufacturer"`
	Category             string          `json:"category"`
	DosageForm           string          `json:"dosageForm"`
	ExpiryDate           string          `json:"expiryDate"`
	MRP                  decimal.Decimal `json:"mrp"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	ImageURL             string          `json:"imageUrl"`
	RequiresPrescription bool            `json:"requiresPrescription"`
	SellerID             string          `json:"sellerId"`
	Rating               float64         `json:"rating"`
	ReviewsCount         int             `json:"reviewsCount"`
	Source               Source          `json:"apiSource,omitempty"`
	IsGeneric            bool            `json:"isGeneric"`
	ApprovalStatus       ApprovalStatus  `json:"approvalStatus"`
	SubmittedAt          time.Time       `json:"-"`
	ApprovedAt           *time.Time      `json:"-"`
}

// MedicineDraft содержит данные, которые продавец передаёт при заявке на поставку.
type MedicineDraft struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Manufacturer         string          `json:"manufacturer"`
	Category             string          `json:"category"`
	DosageForm           string          `json:"dosageForm"`
	ExpiryDate           string          `json:"expiryDate"`
	MRP                  decimal.Decimal `json:"mrp"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	ImageURL             string          `json:"imageUrl"`
	RequiresPrescription bool            `json:"requiresPrescription"`
	Source               Source          `json:"apiSource,omitempty"`
	IsGeneric            bool            `json:"isGeneric"`
}

// CartItem описывает позицию корзины: препарат и количество.
type CartItem struct {
	Medicine Medicine `json:"medicine"`
	Quantity int      `json:"quantity"`
}

// LineTotal возвращает стоимость позиции: цена × количество.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Medicine.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// OrderStatus описывает статус доставки заказа.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// DeliveryTier описывает тариф доставки.
type DeliveryTier string

const (
	TierStandard DeliveryTier = "standard"
	TierExpress  DeliveryTier = "express"
)

// Coordinates задаёт точку на карте (широта, долгота).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Order описывает оформленный заказ.
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Items            []CartItem      `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee"`
	Total            decimal.Decimal `json:"total"`
	Status           OrderStatus     `json:"status"`
	Tier             DeliveryTier    `json:"tier"`
	Address          string          `json:"address,omitempty"`
	City             string          `json:"city"`
	Pincode          string          `json:"pincode,omitempty"`
	DistanceKm       int             `json:"distanceKm"`
	IsLocal          bool            `json:"isLocal"`
	EstimatedArrival string          `json:"estimatedArrival"`
	ArrivalDate      time.Time       `json:"arrivalDate"`
	DeliveryCoords   *Coordinates    `json:"deliveryCoords,omitempty"`
	CreatedAt        time.Time       `json:"date"`
	UpdatedAt        time.Time       `json:"-"`
}

// OrderDraft содержит данные оформления заказа.
type OrderDraft struct {
	Address string       `json:"address"`
	City    string       `json:"city"`
	Pincode string       `json:"pincode,omitempty"`
	Tier    DeliveryTier `json:"tier"`
}

// Supplier описывает поставщика субстанций.
type Supplier struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	LicenseNo      string   `json:"licenseNo"`
	IsGovtApproved bool     `json:"isGovtApproved"`
	APIProvided    []string `json:"apiProvided"`
	Rating         float64  `json:"rating"`
}

// SourcingStats содержит показатели закупок относительно месячного оборота.
type SourcingStats struct {
	TotalMonthlyTurnover decimal.Decimal `json:"totalMonthlyTurnover"`
	RequiredSourcingMin  decimal.Decimal `json:"requiredSourcingMin"`
	RequiredSourcingMax  decimal.Decimal `json:"requiredSourcingMax"`
	CurrentSourcingValue decimal.Decimal `json:"currentSourcingValue"`
}
