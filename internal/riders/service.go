package riders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/tobiadeyinka/chowdash-backend/pkg/db"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages rider profiles and their verification lifecycle.
// Verification is document-driven: a profile starts inactive, moves to
// pending_verification once both documents are on file, and an admin review
// promotes it to active.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Rider, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	SubmitDocuments(ctx context.Context, input DocumentsInput) (*models.Rider, error)
	Verify(ctx context.Context, input VerifyInput) (*models.Rider, error)
	SetOnline(ctx context.Context, userID uuid.UUID, online bool) (*models.Rider, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// RegisterInput opens a rider profile for a user account.
type RegisterInput struct {
	UserID             uuid.UUID
	TransportMode      enums.TransportMode
	IDDocumentURL      *string
	VehicleDocumentURL *string
}

// DocumentsInput attaches or replaces verification documents.
type DocumentsInput struct {
	UserID             uuid.UUID
	IDDocumentURL      *string
	VehicleDocumentURL *string
}

// VerifyInput is the admin review decision.
type VerifyInput struct {
	RiderID   uuid.UUID
	ActorRole enums.UserRole
	ActorID   uuid.UUID
}

// NewService builds a rider service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("riders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func documentsComplete(idDoc, vehicleDoc *string) bool {
	return idDoc != nil && *idDoc != "" && vehicleDoc != nil && *vehicleDoc != ""
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Rider, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	mode := input.TransportMode
	if mode == "" {
		mode = enums.TransportModeBike
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transport mode").
			WithDetails(map[string]any{"transport_mode": string(input.TransportMode)})
	}

	status := enums.RiderStatusInactive
	if documentsComplete(input.IDDocumentURL, input.VehicleDocumentURL) {
		status = enums.RiderStatusPendingVerification
	}
	rider := &models.Rider{
		ID:                 uuid.New(),
		UserID:             input.UserID,
		TransportMode:      mode,
		Status:             status,
		IDDocumentURL:      input.IDDocumentURL,
		VehicleDocumentURL: input.VehicleDocumentURL,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRider(ctx, rider); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_riders_user_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "rider profile already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rider")
		}
		if status == enums.RiderStatusPendingVerification {
			return s.emitStatus(ctx, tx, rider)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rider, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	rider, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
	}
	return rider, nil
}

func (s *service) SubmitDocuments(ctx context.Context, input DocumentsInput) (*models.Rider, error) {
	if input.IDDocumentURL == nil && input.VehicleDocumentURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no documents provided")
	}

	var rider *models.Rider
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByUserIDLocked(ctx, input.UserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
		}

		updates := map[string]any{}
		if input.IDDocumentURL != nil {
			row.IDDocumentURL = input.IDDocumentURL
			updates["id_document_url"] = *input.IDDocumentURL
		}
		if input.VehicleDocumentURL != nil {
			row.VehicleDocumentURL = input.VehicleDocumentURL
			updates["vehicle_document_url"] = *input.VehicleDocumentURL
		}

		statusChanged := false
		if row.Status == enums.RiderStatusInactive &&
			documentsComplete(row.IDDocumentURL, row.VehicleDocumentURL) {
			row.Status = enums.RiderStatusPendingVerification
			updates["status"] = string(row.Status)
			statusChanged = true
		}

		if err := repo.UpdateRider(ctx, row.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider documents")
		}
		if statusChanged {
			if err := s.emitStatus(ctx, tx, row); err != nil {
				return err
			}
		}
		rider = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rider, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.Rider, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins verify riders")
	}

	var rider *models.Rider
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByID(ctx, input.RiderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rider not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
		}
		if row.Status == enums.RiderStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rider already verified")
		}
		if row.Status != enums.RiderStatusPendingVerification {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rider has not submitted documents")
		}

		now := time.Now().UTC()
		row.Status = enums.RiderStatusActive
		row.VerifiedAt = &now
		if err := repo.UpdateRider(ctx, row.ID, map[string]any{
			"status":      string(row.Status),
			"verified_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify rider")
		}
		if err := s.emitStatus(ctx, tx, row); err != nil {
			return err
		}
		rider = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rider, nil
}

func (s *service) SetOnline(ctx context.Context, userID uuid.UUID, online bool) (*models.Rider, error) {
	var rider *models.Rider
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByUserIDLocked(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
		}
		// Going offline is always allowed so a rider mid-delivery can stop
		// taking new work.
		if online && row.Status != enums.RiderStatusActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "rider is not verified")
		}
		if row.IsOnline == online {
			rider = row
			return nil
		}

		row.IsOnline = online
		if err := repo.UpdateRider(ctx, row.ID, map[string]any{"is_online": online}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider availability")
		}
		rider = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rider, nil
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, rider *models.Rider) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRiderStatusChanged,
		AggregateType: enums.AggregateRider,
		AggregateID:   rider.ID,
		Version:       1,
		Data: payloads.RiderStatusChangedEvent{
			RiderID: rider.ID,
			UserID:  rider.UserID,
			Status:  rider.Status,
		},
	})
}
