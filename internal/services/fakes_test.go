package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/stripe"
)

type fakeProductStore struct {
	products map[uuid.UUID]*models.Product
}

func newFakeProductStore(products ...*models.Product) *fakeProductStore {
	store := &fakeProductStore{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range products {
		store.products[p.ID] = p
	}
	return store
}

func (s *fakeProductStore) GetByIDs(_ context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	result := make(map[uuid.UUID]*models.Product)
	for _, id := range productIDs {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

type fakeOrderStore struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*models.Order
	deleted    []uuid.UUID
	restocked  []uuid.UUID
	restockErr error
	claimed    int64
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	store := &fakeOrderStore{orders: make(map[uuid.UUID]*models.Order)}
	for _, o := range orders {
		store.orders[o.ID] = o
	}
	return store
}

func (s *fakeOrderStore) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	s.orders[order.ID] = order
	return nil
}

func (s *fakeOrderStore) Delete(_ context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
	s.deleted = append(s.deleted, orderID)
	return nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) GetByStripeSessionID(_ context.Context, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.StripeSessionID == sessionID {
			return order, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeOrderStore) SetStripeSession(_ context.Context, orderID uuid.UUID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return db.ErrNotFound
	}
	order.StripeSessionID = sessionID
	return nil
}

func (s *fakeOrderStore) MarkProcessing(_ context.Context, orderID uuid.UUID, paymentIntentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return db.ErrNotFound
	}
	if order.Status != models.StatusPending {
		return fmt.Errorf("%w: %s", db.ErrInvalidStatusTransition, order.Status)
	}
	order.Status = models.StatusProcessing
	order.StripePaymentIntentID = paymentIntentID
	return nil
}

func (s *fakeOrderStore) CancelAndRestock(_ context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return db.ErrNotFound
	}
	if order.Status != models.StatusPending && order.Status != models.StatusProcessing {
		return fmt.Errorf("%w: %s", db.ErrInvalidStatusTransition, order.Status)
	}
	// A restock failure rolls back the whole transition, like the real
	// store's transaction: the status is left untouched.
	if s.restockErr != nil {
		err := s.restockErr
		s.restockErr = nil
		return err
	}
	order.Status = models.StatusCancelled
	s.restocked = append(s.restocked, orderID)
	return nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, orderID uuid.UUID, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return db.ErrNotFound
	}
	undoes := status == models.StatusPending || status == models.StatusCancelled
	if undoes && order.Status.Locked() {
		return fmt.Errorf("%w: %s", db.ErrInvalidStatusTransition, order.Status)
	}
	order.Status = status
	return nil
}

func (s *fakeOrderStore) ClaimGuestOrders(_ context.Context, userID uuid.UUID, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed int64
	for _, order := range s.orders {
		if order.Guest && order.UserID == nil && order.ShippingAddress.Email == email {
			id := userID
			order.UserID = &id
			order.Guest = false
			claimed++
		}
	}
	s.claimed = claimed
	return claimed, nil
}

type stockOp struct {
	productID uuid.UUID
	size      string
	quantity  int
}

type fakeInventory struct {
	mu          sync.Mutex
	reserved    []stockOp
	restored    []stockOp
	failReserve map[string]error
}

func stockKey(productID uuid.UUID, size string) string {
	return productID.String() + "|" + size
}

func (s *fakeInventory) failOn(productID uuid.UUID, size string, err error) {
	if s.failReserve == nil {
		s.failReserve = make(map[string]error)
	}
	s.failReserve[stockKey(productID, size)] = err
}

func (s *fakeInventory) Reserve(_ context.Context, productID uuid.UUID, size string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failReserve[stockKey(productID, size)]; ok {
		return err
	}
	s.reserved = append(s.reserved, stockOp{productID, size, quantity})
	return nil
}

func (s *fakeInventory) Restore(_ context.Context, productID uuid.UUID, size string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restored = append(s.restored, stockOp{productID, size, quantity})
	return nil
}

type fakeCoupons struct {
	coupon      *models.Coupon
	validateErr error
	used        []string
}

func (s *fakeCoupons) Validate(_ context.Context, code string, _ int64) (*models.Coupon, error) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	if s.coupon == nil {
		return nil, db.ErrCouponNotFound
	}
	return s.coupon, nil
}

func (s *fakeCoupons) RecordUse(_ context.Context, code string) error {
	s.used = append(s.used, code)
	return nil
}

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	created   []stripe.SessionParams
	session   *stripe.Session
	getErr    error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params stripe.SessionParams) (*stripe.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, params)
	return &stripe.Session{
		ID:  fmt.Sprintf("cs_test_%d", len(g.created)),
		URL: "https://checkout.stripe.example/pay",
	}, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*stripe.Session, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	return g.session, nil
}

type sentEmail struct {
	orderID uuid.UUID
	status  models.OrderStatus
}

type fakeEmailSender struct {
	mu            sync.Mutex
	confirmations []uuid.UUID
	statusUpdates []sentEmail
}

func (s *fakeEmailSender) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations = append(s.confirmations, order.ID)
	return nil
}

func (s *fakeEmailSender) SendOrderStatusUpdate(_ context.Context, order *models.Order, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusUpdates = append(s.statusUpdates, sentEmail{orderID: order.ID, status: status})
	return nil
}
