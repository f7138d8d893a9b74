package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/davakhana/internal/model"
	"github.com/mmeshcher/davakhana/internal/validation"
)

// FetchMedicines возвращает одобренные препараты. Непустой запрос ищет подстроку в названии, категории и производителе без учёта регистра.
func (s *Service) FetchMedicines(ctx context.Context, query string) ([]model.Medicine, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListMedicines(ctx, strings.TrimSpace(query))
}

// SubmitMedicineForSupply создаёт заявку продавца на поставку препарата. Заявка попадает на модерацию.
func (s *Service) SubmitMedicineForSupply(ctx context.Context, userID string, draft model.MedicineDraft) (*model.Medicine, error) {
	seller, err := s.requireRole(ctx, userID, model.RoleSeller)
	if err != nil {
		return nil, err
	}

	if draft.Source == "" {
		draft.Source = model.SourceLocal
	}
	if err := validation.MedicineDraft(draft); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.pause(ctx); err != nil {
		return nil, err
	}

	m := model.Medicine{
		ID:                   "med-" + uuid.NewString(),
		Name:                 strings.TrimSpace(draft.Name),
		Description:          strings.TrimSpace(draft.Description),
		Manufacturer:         strings.TrimSpace(draft.Manufacturer),
		Category:             strings.TrimSpace(draft.Category),
		DosageForm:           draft.DosageForm,
		ExpiryDate:           draft.ExpiryDate,
		MRP:                  draft.MRP,
		Price:                draft.Price,
		Stock:                draft.Stock,
		ImageURL:             draft.ImageURL,
		RequiresPrescription: draft.RequiresPrescription,
		SellerID:             seller.ID,
		Source:               draft.Source,
		IsGeneric:            draft.IsGeneric,
		ApprovalStatus:       model.ApprovalPending,
		SubmittedAt:          s.now(),
	}
	if err := s.repo.CreateMedicine(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("medicine submitted for supply",
		zap.String("medicine_id", m.ID),
		zap.String("seller_id", seller.ID),
	)
	return &m, nil
}

// FetchPendingApprovals возвращает заявки на модерации, новые первыми.
func (s *Service) FetchPendingApprovals(ctx context.Context, userID string) ([]model.Medicine, error) {
	if _, err := s.requireRole(ctx, userID, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListPendingMedicines(ctx)
}

// ApproveMedicine одобряет заявку и публикует препарат в каталоге. Возвращает false, если заявки на модерации нет.
func (s *Service) ApproveMedicine(ctx context.Context, userID, medicineID string) (bool, error) {
	return s.decide(ctx, userID, medicineID, model.ApprovalApproved)
}

// RejectMedicine отклоняет заявку. Возвращает false, если заявки на модерации нет.
func (s *Service) RejectMedicine(ctx context.Context, userID, medicineID string) (bool, error) {
	return s.decide(ctx, userID, medicineID, model.ApprovalRejected)
}

func (s *Service) decide(ctx context.Context, userID, medicineID string, status model.ApprovalStatus) (bool, error) {
	admin, err := s.requireRole(ctx, userID, model.RoleAdmin)
	if err != nil {
		return false, err
	}

	ok, err := s.repo.SetApprovalStatus(ctx, medicineID, status, s.now())
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("medicine moderated",
			zap.String("medicine_id", medicineID),
			zap.String("status", string(status)),
			zap.String("admin_id", admin.ID),
		)
	}
	return ok, nil
}
