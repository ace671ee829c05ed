package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/tobiadeyinka/chowdash-backend/pkg/db"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes wallet operations. Order debits run inside the caller's
// transaction so payment and order creation commit atomically.
type Service interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	DebitForOrderTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error)
	Credit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// DebitInput describes a balance deduction tied to an order.
type DebitInput struct {
	UserID    uuid.UUID
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Narration string
}

// CreditInput describes a balance top-up or refund. Reference must be unique
// per movement so gateway webhook replays become no-ops.
type CreditInput struct {
	UserID    uuid.UUID
	OrderID   *uuid.UUID
	Amount    decimal.Decimal
	Reference string
	Provider  *string
	Narration string
	Actor     *outbox.ActorRef
}

// TransactionList is a cursor page of ledger rows.
type TransactionList struct {
	Items      []models.WalletTransaction
	NextCursor string
	HasMore    bool
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	wallet, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	wallet, err = s.repo.CreateWallet(ctx, &models.Wallet{UserID: userID, Balance: decimal.Zero})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_wallets_user_id") {
			return s.Balance(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	wallet, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

// DebitForOrderTx deducts the order total inside the caller's transaction.
// The conditional UPDATE returns zero rows when the balance cannot cover the
// amount, which surfaces as CodeInsufficientFunds.
func (s *service) DebitForOrderTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet debit")
	}
	if input.UserID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindByUserID(ctx, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	ok, err := repo.DebitBalance(ctx, wallet.ID, input.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low").WithDetails(map[string]interface{}{
			"balance":  wallet.Balance.String(),
			"required": input.Amount.String(),
		})
	}

	orderID := input.OrderID
	narration := input.Narration
	txn := &models.WalletTransaction{
		WalletID:  wallet.ID,
		UserID:    input.UserID,
		OrderID:   &orderID,
		Type:      enums.WalletTransactionDebit,
		Status:    enums.WalletTransactionCompleted,
		Amount:    input.Amount,
		Reference: fmt.Sprintf("order-%s-debit", input.OrderID),
	}
	if narration != "" {
		txn.Narration = &narration
	}
	txn, err = repo.CreateTransaction(ctx, txn)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet debit")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventWalletDebited,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   txn.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.WalletMovementEvent{
			TransactionID: txn.ID,
			UserID:        input.UserID,
			OrderID:       txn.OrderID,
			Type:          enums.WalletTransactionDebit,
			Amount:        input.Amount,
			Reference:     txn.Reference,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	if existing, err := s.repo.FindTransactionByReference(ctx, input.Reference); err == nil {
		return existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check reference")
	}

	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := s.CreditTx(ctx, tx, input)
		if err != nil {
			return err
		}
		txn = row
		return nil
	})
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
			return s.repo.FindTransactionByReference(ctx, input.Reference)
		}
		return nil, err
	}
	return txn, nil
}

// CreditTx applies a credit inside the caller's transaction. The caller is
// responsible for validating the input; Credit is the public entry point.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet credit")
	}
	if input.UserID == uuid.Nil || input.Reference == "" || !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id, reference and positive amount required")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindByUserID(ctx, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if err := repo.CreditBalance(ctx, wallet.ID, input.Amount); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}

	row := &models.WalletTransaction{
		WalletID:  wallet.ID,
		UserID:    input.UserID,
		OrderID:   input.OrderID,
		Type:      enums.WalletTransactionCredit,
		Status:    enums.WalletTransactionCompleted,
		Amount:    input.Amount,
		Reference: input.Reference,
		Provider:  input.Provider,
	}
	if input.Narration != "" {
		narration := input.Narration
		row.Narration = &narration
	}
	row, err = repo.CreateTransaction(ctx, row)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_wallet_transactions_reference") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "reference already processed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet credit")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventWalletCredited,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   row.ID,
		Version:       1,
		Actor:         input.Actor,
		Data: payloads.WalletMovementEvent{
			TransactionID: row.ID,
			UserID:        input.UserID,
			OrderID:       input.OrderID,
			Type:          enums.WalletTransactionCredit,
			Amount:        input.Amount,
			Reference:     input.Reference,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListTransactions(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	list := &TransactionList{Items: items}
	if pagination.HasMore(len(items), params.Limit) {
		list.Items = items[:params.Limit]
		list.HasMore = true
		last := list.Items[len(list.Items)-1]
		list.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return list, nil
}
