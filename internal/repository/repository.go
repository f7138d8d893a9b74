// Package repository содержит реализации хранилища каталога, заказов и пользователей.
package repository

import (
	"embed"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/davakhana/internal/model"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound возвращается, если запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrUserExists возвращается при попытке создать пользователя с уже занятым email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderExists возвращается при коллизии идентификатора заказа.
	ErrOrderExists = errors.New("order already exists")
	// ErrNotEnoughStock возвращается, если остатка препарата не хватает для заказа.
	ErrNotEnoughStock = errors.New("not enough stock")
)

// toPaise переводит сумму в рупиях в целое число пайс.
func toPaise(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// fromPaise переводит пайсы в рупии.
func fromPaise(p int64) decimal.Decimal {
	return decimal.New(p, -2)
}

func matchesQuery(m model.Medicine, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Name), q) ||
		strings.Contains(strings.ToLower(m.Category), q) ||
		strings.Contains(strings.ToLower(m.Manufacturer), q)
}

// sortCatalog упорядочивает каталог: сначала недавно одобренные, затем исходный каталог по идентификатору.
func sortCatalog(items []model.Medicine) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ApprovedAt, items[j].ApprovedAt
		switch {
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		}
		return items[i].ID < items[j].ID
	})
}

func sortPending(items []model.Medicine) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].SubmittedAt.After(items[j].SubmittedAt)
		}
		return items[i].ID > items[j].ID
	})
}

func sortOrdersNewestFirst(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// reservations суммирует количество по препаратам и возвращает идентификаторы в стабильном порядке.
func reservations(items []model.CartItem) ([]string, map[string]int) {
	qty := make(map[string]int, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := qty[it.Medicine.ID]; !ok {
			ids = append(ids, it.Medicine.ID)
		}
		qty[it.Medicine.ID] += it.Quantity
	}
	sort.Strings(ids)
	return ids, qty
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
