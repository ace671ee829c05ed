package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

type stubWalletRepo struct {
	wallet       *models.Wallet
	debitOK      bool
	debitCalled  bool
	transactions map[string]*models.WalletTransaction
	created      []*models.WalletTransaction
	credited     decimal.Decimal
}

func (s *stubWalletRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubWalletRepo) CreateWallet(ctx context.Context, wallet *models.Wallet) (*models.Wallet, error) {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	s.wallet = wallet
	return wallet, nil
}

func (s *stubWalletRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if s.wallet == nil || s.wallet.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.wallet, nil
}

func (s *stubWalletRepo) DebitBalance(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (bool, error) {
	s.debitCalled = true
	return s.debitOK, nil
}

func (s *stubWalletRepo) CreditBalance(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	s.credited = s.credited.Add(amount)
	return nil
}

func (s *stubWalletRepo) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) (*models.WalletTransaction, error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if s.transactions == nil {
		s.transactions = make(map[string]*models.WalletTransaction)
	}
	s.transactions[txn.Reference] = txn
	s.created = append(s.created, txn)
	return txn, nil
}

func (s *stubWalletRepo) FindTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	if s.transactions == nil {
		return nil, gorm.ErrRecordNotFound
	}
	txn, ok := s.transactions[reference]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return txn, nil
}

func (s *stubWalletRepo) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	items := make([]models.WalletTransaction, 0, len(s.created))
	for _, txn := range s.created {
		items = append(items, *txn)
	}
	return items, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type capturingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func TestDebitForOrderTxInsufficientFunds(t *testing.T) {
	userID := uuid.New()
	repo := &stubWalletRepo{
		wallet:  &models.Wallet{ID: uuid.New(), UserID: userID, Balance: decimal.NewFromInt(100)},
		debitOK: false,
	}
	sink := &capturingOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, sink)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = svc.DebitForOrderTx(context.Background(), &gorm.DB{}, DebitInput{
		UserID:  userID,
		OrderID: uuid.New(),
		Amount:  decimal.NewFromInt(2500),
	})
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("error code = %s, want %s", pkgerrors.CodeOf(err), pkgerrors.CodeInsufficientFunds)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no ledger rows, got %d", len(repo.created))
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no outbox events, got %d", len(sink.events))
	}
}

func TestDebitForOrderTxRecordsLedgerAndEvent(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	repo := &stubWalletRepo{
		wallet:  &models.Wallet{ID: uuid.New(), UserID: userID, Balance: decimal.NewFromInt(5000)},
		debitOK: true,
	}
	sink := &capturingOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, sink)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	txn, err := svc.DebitForOrderTx(context.Background(), &gorm.DB{}, DebitInput{
		UserID:  userID,
		OrderID: orderID,
		Amount:  decimal.NewFromInt(2500),
	})
	if err != nil {
		t.Fatalf("DebitForOrderTx() error = %v", err)
	}
	if txn.Type != enums.WalletTransactionDebit {
		t.Fatalf("transaction type = %s", txn.Type)
	}
	if txn.Reference != "order-"+orderID.String()+"-debit" {
		t.Fatalf("reference = %q", txn.Reference)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventWalletDebited {
		t.Fatalf("unexpected outbox events: %+v", sink.events)
	}
}

func TestCreditIsIdempotentOnReference(t *testing.T) {
	userID := uuid.New()
	repo := &stubWalletRepo{
		wallet: &models.Wallet{ID: uuid.New(), UserID: userID, Balance: decimal.NewFromInt(100)},
	}
	sink := &capturingOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, sink)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	input := CreditInput{
		UserID:    userID,
		Amount:    decimal.NewFromInt(1000),
		Reference: "paystack-evt-1",
	}

	first, err := svc.Credit(context.Background(), input)
	if err != nil {
		t.Fatalf("Credit() error = %v", err)
	}
	second, err := svc.Credit(context.Background(), input)
	if err != nil {
		t.Fatalf("Credit() replay error = %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay created a new transaction: %s vs %s", first.ID, second.ID)
	}
	if !repo.credited.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("credited total = %s, want 1000", repo.credited)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected one outbox event, got %d", len(sink.events))
	}
}

func TestListTransactionsPaginates(t *testing.T) {
	userID := uuid.New()
	repo := &stubWalletRepo{
		wallet: &models.Wallet{ID: uuid.New(), UserID: userID},
	}
	for i := 0; i < 3; i++ {
		repo.created = append(repo.created, &models.WalletTransaction{ID: uuid.New(), UserID: userID})
	}
	svc, err := NewService(repo, stubTxRunner{}, &capturingOutbox{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	list, err := svc.ListTransactions(context.Background(), userID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list.Items) != 2 || !list.HasMore {
		t.Fatalf("page = %d items, hasMore = %v", len(list.Items), list.HasMore)
	}
	if list.NextCursor == "" {
		t.Fatal("expected next cursor")
	}
}
