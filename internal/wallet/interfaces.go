package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

// Repository defines persistence operations for wallets and their ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateWallet(ctx context.Context, wallet *models.Wallet) (*models.Wallet, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	DebitBalance(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (bool, error)
	CreditBalance(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) (*models.WalletTransaction, error)
	FindTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error)
}
