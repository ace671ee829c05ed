package otp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/internal/orders"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/security"
)

type stubOtpRepo struct {
	order *models.Order
	rider *models.Rider
}

func (s *stubOtpRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOtpRepo) FindOrderByIDLocked(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOtpRepo) FindRiderByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	if s.rider == nil || s.rider.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.rider, nil
}

func (s *stubOtpRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if hash, ok := updates["delivery_otp_hash"]; ok {
		if hash == nil {
			s.order.DeliveryOTPHash = nil
		} else {
			h := hash.(string)
			s.order.DeliveryOTPHash = &h
		}
	}
	if exp, ok := updates["delivery_otp_expires_at"]; ok {
		if exp == nil {
			s.order.DeliveryOTPExpiresAt = nil
		} else {
			at := exp.(time.Time)
			s.order.DeliveryOTPExpiresAt = &at
		}
	}
	return nil
}

func (s *stubOtpRepo) ClearExpiredCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

// rollbackTxRunner mimics the real client: writes made inside the closure are
// undone when it returns an error.
type rollbackTxRunner struct {
	repo *stubOtpRepo
}

func (r rollbackTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	snapshot := *r.repo.order
	if err := fn(&gorm.DB{}); err != nil {
		*r.repo.order = snapshot
		return err
	}
	return nil
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type stubTransitioner struct {
	transitions []enums.OrderStatus
	err         error
}

func (s *stubTransitioner) ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, actor orders.Actor) error {
	if s.err != nil {
		return s.err
	}
	if !order.Status.CanTransition(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid transition")
	}
	s.transitions = append(s.transitions, target)
	order.Status = target
	return nil
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func otpFixture(status enums.OrderStatus) (*stubOtpRepo, *stubTransitioner) {
	riderID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		RiderID:    &riderID,
		Status:     status,
	}
	rider := &models.Rider{
		ID:     riderID,
		UserID: uuid.New(),
		Status: enums.RiderStatusActive,
	}
	return &stubOtpRepo{order: order, rider: rider}, &stubTransitioner{}
}

func newTestService(t *testing.T, repo Repository, trans orderTransitioner, sink *capturingOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, sink, trans,
		config.DeliveryConfig{OTPTTL: 10 * time.Minute}, testPasswordConfig())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestIssueStoresHashAndEmitsCode(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusInTransit)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, trans, sink)

	res, err := svc.Issue(context.Background(), IssueInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if res.ExpiresAt.Before(time.Now().UTC().Add(9 * time.Minute)) {
		t.Fatalf("expected expiry roughly ten minutes out, got %v", res.ExpiresAt)
	}
	if repo.order.DeliveryOTPHash == nil || repo.order.DeliveryOTPExpiresAt == nil {
		t.Fatal("expected hash and expiry stored on order")
	}

	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventDeliveryOTPIssued {
		t.Fatalf("expected one delivery_otp_issued event, got %+v", sink.events)
	}
	payload := sink.events[0].Data.(payloads.DeliveryOTPIssuedEvent)
	if payload.CustomerID != repo.order.CustomerID {
		t.Fatalf("event customer = %s, want %s", payload.CustomerID, repo.order.CustomerID)
	}
	if len(payload.Code) != security.DeliveryCodeDigits {
		t.Fatalf("event code %q has wrong length", payload.Code)
	}

	// The plaintext code lives only in the event. The stored value must be
	// a hash that verifies against it.
	if *repo.order.DeliveryOTPHash == payload.Code {
		t.Fatal("order stores the plaintext code")
	}
	ok, err := security.VerifyDeliveryCode(payload.Code, *repo.order.DeliveryOTPHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify emitted code: ok=%v err=%v", ok, err)
	}
}

func TestIssueReissueOverwritesPreviousCode(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusNearDelivery)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, trans, sink)

	input := IssueInput{OrderID: repo.order.ID, RiderUserID: repo.rider.UserID}
	if _, err := svc.Issue(context.Background(), input); err != nil {
		t.Fatalf("first Issue() error = %v", err)
	}
	firstHash := *repo.order.DeliveryOTPHash

	if _, err := svc.Issue(context.Background(), input); err != nil {
		t.Fatalf("second Issue() error = %v", err)
	}
	if *repo.order.DeliveryOTPHash == firstHash {
		t.Fatal("expected reissue to replace the stored hash")
	}

	firstCode := sink.events[0].Data.(payloads.DeliveryOTPIssuedEvent).Code
	ok, err := security.VerifyDeliveryCode(firstCode, *repo.order.DeliveryOTPHash)
	if err != nil {
		t.Fatalf("VerifyDeliveryCode error = %v", err)
	}
	if ok && firstCode != sink.events[1].Data.(payloads.DeliveryOTPIssuedEvent).Code {
		t.Fatal("superseded code still verifies")
	}
}

func TestIssueRejectsWrongRiderAndWrongState(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusInTransit)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, trans, sink)

	otherRider := &models.Rider{ID: uuid.New(), UserID: uuid.New(), Status: enums.RiderStatusActive}
	repo.rider = otherRider
	_, err := svc.Issue(context.Background(), IssueInput{
		OrderID:     repo.order.ID,
		RiderUserID: otherRider.UserID,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("foreign rider: code = %v, want forbidden", pkgerrors.CodeOf(err))
	}

	repo, trans = otpFixture(enums.OrderStatusPreparing)
	svc = newTestService(t, repo, trans, sink)
	_, err = svc.Issue(context.Background(), IssueInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("preparing order: code = %v, want state conflict", pkgerrors.CodeOf(err))
	}

	// A code exists only once the delivery is in transit; picked_up is too
	// early.
	repo, trans = otpFixture(enums.OrderStatusPickedUp)
	svc = newTestService(t, repo, trans, sink)
	_, err = svc.Issue(context.Background(), IssueInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("picked up order: code = %v, want state conflict", pkgerrors.CodeOf(err))
	}
}

func TestConfirmDeliversOnMatch(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusNearDelivery)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, trans, sink)

	if _, err := svc.Issue(context.Background(), IssueInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
	}); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	code := sink.events[0].Data.(payloads.DeliveryOTPIssuedEvent).Code

	order, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Code:        code,
	})
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if order.Status != enums.OrderStatusDelivered {
		t.Fatalf("order status = %s, want delivered", order.Status)
	}
	if len(trans.transitions) != 1 || trans.transitions[0] != enums.OrderStatusDelivered {
		t.Fatalf("transitions = %v, want [delivered]", trans.transitions)
	}
}

func TestConfirmWithoutIssuedCode(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusNearDelivery)
	svc := newTestService(t, repo, trans, &capturingOutbox{})

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Code:        "12345",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeOTPNotFound {
		t.Fatalf("code = %v, want OTP not found", pkgerrors.CodeOf(err))
	}
}

func TestConfirmExpiredCodeClearsStoredHash(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusNearDelivery)
	// Rollback semantics matter here: the clear must land even though the
	// call reports an error.
	svc, err := NewService(repo, rollbackTxRunner{repo: repo}, &capturingOutbox{}, trans,
		config.DeliveryConfig{OTPTTL: 10 * time.Minute}, testPasswordConfig())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	hash, err := security.HashDeliveryCode("12345", testPasswordConfig())
	if err != nil {
		t.Fatalf("HashDeliveryCode error = %v", err)
	}
	expired := time.Now().UTC().Add(-time.Minute)
	repo.order.DeliveryOTPHash = &hash
	repo.order.DeliveryOTPExpiresAt = &expired

	input := ConfirmInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Code:        "12345",
	}
	_, err = svc.Confirm(context.Background(), input)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeOTPExpired {
		t.Fatalf("code = %v, want OTP expired", pkgerrors.CodeOf(err))
	}
	if repo.order.DeliveryOTPHash != nil || repo.order.DeliveryOTPExpiresAt != nil {
		t.Fatal("expected expired code fields to be cleared")
	}
	if len(trans.transitions) != 0 {
		t.Fatalf("unexpected transitions %v", trans.transitions)
	}

	// With the stale code gone, the next attempt reads as missing.
	_, err = svc.Confirm(context.Background(), input)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeOTPNotFound {
		t.Fatalf("second attempt code = %v, want OTP not found", pkgerrors.CodeOf(err))
	}
}

func TestConfirmMismatchKeepsStoredHash(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusNearDelivery)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, trans, sink)

	if _, err := svc.Issue(context.Background(), IssueInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
	}); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	code := sink.events[0].Data.(payloads.DeliveryOTPIssuedEvent).Code
	wrong := "00000"
	if wrong == code {
		wrong = "00001"
	}

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Code:        wrong,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeOTPMismatch {
		t.Fatalf("code = %v, want OTP mismatch", pkgerrors.CodeOf(err))
	}
	if repo.order.DeliveryOTPHash == nil {
		t.Fatal("mismatch must not clear the stored hash")
	}

	// Right code still works afterwards.
	order, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Code:        code,
	})
	if err != nil {
		t.Fatalf("Confirm() after mismatch error = %v", err)
	}
	if order.Status != enums.OrderStatusDelivered {
		t.Fatalf("order status = %s, want delivered", order.Status)
	}
}

func TestConfirmRejectsBadCodeShape(t *testing.T) {
	repo, trans := otpFixture(enums.OrderStatusNearDelivery)
	svc := newTestService(t, repo, trans, &capturingOutbox{})

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Code:        "123",
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("code = %v, want validation", pkgerrors.CodeOf(err))
	}
}
