// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mmeshcher/davakhana/internal/model"
)

// ErrInvalidMedicine возвращается для некорректной заявки на поставку.
var ErrInvalidMedicine = errors.New("invalid medicine")

// DosageForms перечисляет лекарственные формы, принимаемые от продавцов.
var DosageForms = []string{"Tablet", "Capsule", "Syrup", "Inhaler", "Injection"}

const expiryLayout = "2006-01-02"

// IsValidPhone проверяет индийский мобильный номер: 10 цифр, первая 6–9, необязательный префикс +91.
func IsValidPhone(phone string) bool {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, phone)
	s = strings.TrimPrefix(s, "+91")

	if len(s) != 10 || !allDigits(s) {
		return false
	}
	return s[0] >= '6' && s[0] <= '9'
}

// IsValidPincode проверяет почтовый индекс: шесть цифр, первая не ноль.
func IsValidPincode(pin string) bool {
	return len(pin) == 6 && allDigits(pin) && pin[0] != '0'
}

// IsValidExpiryDate проверяет дату в формате ГГГГ-ММ-ДД.
func IsValidExpiryDate(s string) bool {
	_, err := time.Parse(expiryLayout, s)
	return err == nil
}

// IsKnownDosageForm сообщает, входит ли форма выпуска в DosageForms.
func IsKnownDosageForm(form string) bool {
	for _, f := range DosageForms {
		if strings.EqualFold(f, strings.TrimSpace(form)) {
			return true
		}
	}
	return false
}

// MedicineDraft проверяет заявку продавца на поставку препарата.
func MedicineDraft(d model.MedicineDraft) error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidMedicine)
	case strings.TrimSpace(d.Manufacturer) == "":
		return fmt.Errorf("%w: manufacturer is required", ErrInvalidMedicine)
	case strings.TrimSpace(d.Category) == "":
		return fmt.Errorf("%w: category is required", ErrInvalidMedicine)
	case !IsKnownDosageForm(d.DosageForm):
		return fmt.Errorf("%w: unknown dosage form %q", ErrInvalidMedicine, d.DosageForm)
	case !IsValidExpiryDate(d.ExpiryDate):
		return fmt.Errorf("%w: expiry date must be YYYY-MM-DD", ErrInvalidMedicine)
	case !d.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidMedicine)
	case d.MRP.LessThan(d.Price):
		return fmt.Errorf("%w: price exceeds MRP", ErrInvalidMedicine)
	case d.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidMedicine)
	case d.Source != "" && !d.Source.Valid():
		return fmt.Errorf("%w: unknown source %q", ErrInvalidMedicine, d.Source)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
