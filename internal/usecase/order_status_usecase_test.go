package usecase_test

import (
	"context"
	"testing"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type statusTestEnv struct {
	tx        *TxManagerMock
	orders    *OrderRepoMock
	items     *OrderItemRepoMock
	stores    *StoreRepoMock
	inventory *InventoryRepoMock
	audit     *AuditRepoMock
	uc        *usecase.OrderStatusUsecase
}

func newStatusTestEnv(strict bool) *statusTestEnv {
	env := &statusTestEnv{
		tx:        new(TxManagerMock),
		orders:    new(OrderRepoMock),
		items:     new(OrderItemRepoMock),
		stores:    new(StoreRepoMock),
		inventory: new(InventoryRepoMock),
		audit:     new(AuditRepoMock),
	}
	env.tx.Repos = &TxReposMock{
		orders:     env.orders,
		orderItems: env.items,
		stores:     env.stores,
		inventory:  env.inventory,
		auditLogs:  env.audit,
	}
	env.uc = usecase.NewOrderStatusUsecase(env.tx, strict, zap.NewNop())
	return env
}

func seller() model.Principal { return model.Principal{UserID: 20, Role: model.RoleSeller} }

func sellerStore() model.Store { return model.Store{ID: 2, OwnerID: 20} }

func orderInStatus(s model.OrderStatus) model.Order {
	return model.Order{ID: 5, BuyerID: 10, StoreID: 2, Status: s}
}

func TestUpdateStatus_ShippedStampsTimestampAndTracking(t *testing.T) {
	ctx := context.Background()
	env := newStatusTestEnv(false)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
	env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusProcessing), nil)

	var saved model.Order
	env.orders.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = *args.Get(1).(*model.Order)
	}).Return(nil)
	env.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == 5 &&
			l.ActorUserID == 20
	})).Return(nil)
	env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

	tracking := "TRK-123"
	url := "https://carrier.example.com/TRK-123"
	out, err := env.uc.UpdateStatus(ctx, seller(), 5, usecase.UpdateOrderStatusInput{
		Status:         model.OrderStatusShipped,
		TrackingNumber: &tracking,
		TrackingURL:    &url,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, out.Status)
	assert.Equal(t, model.OrderStatusShipped, saved.Status)
	assert.NotNil(t, saved.ShippedAt)
	assert.Equal(t, "TRK-123", saved.TrackingNumber)
	assert.Equal(t, url, saved.TrackingURL)

	env.audit.AssertExpectations(t)
	//出荷では在庫は動かさない
	env.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_CancelBeforeShipmentReleasesStock(t *testing.T) {
	ctx := context.Background()
	env := newStatusTestEnv(false)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
	env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusPending), nil)
	env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{
		{ID: 1, OrderID: 5, ProductID: 7, Quantity: 3},
	}, nil)

	env.inventory.On("IncreaseStock", mock.Anything, int64(7), int64(3)).Return(nil)
	env.inventory.On("MarkActiveIfInStock", mock.Anything, int64(7)).Return(nil)
	env.inventory.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(a model.InventoryAdjustment) bool {
		return a.ProductID == 7 && a.Delta == 3 && a.ActorUserID == 20
	})).Return(nil)

	env.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
	env.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := env.uc.UpdateStatus(ctx, seller(), 5, usecase.UpdateOrderStatusInput{
		Status: model.OrderStatusCancelled,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, out.Status)
	env.inventory.AssertExpectations(t)
}

func TestUpdateStatus_CancelAfterShipmentKeepsStock(t *testing.T) {
	ctx := context.Background()
	env := newStatusTestEnv(false)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
	env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusShipped), nil)
	env.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
	env.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

	_, err := env.uc.UpdateStatus(ctx, seller(), 5, usecase.UpdateOrderStatusInput{
		Status: model.OrderStatusCancelled,
	})

	assert.NoError(t, err)
	env.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_SameStatusIsNoOp(t *testing.T) {
	ctx := context.Background()
	env := newStatusTestEnv(false)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
	env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusPaid), nil)
	env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

	out, err := env.uc.UpdateStatus(ctx, seller(), 5, usecase.UpdateOrderStatusInput{
		Status: model.OrderStatusPaid,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, out.Status)
	env.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	env.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateStatus_TerminalStatusRejected(t *testing.T) {
	ctx := context.Background()
	env := newStatusTestEnv(false)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
	env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusCancelled), nil)

	_, err := env.uc.UpdateStatus(ctx, seller(), 5, usecase.UpdateOrderStatusInput{
		Status: model.OrderStatusPending,
	})

	assertErrContains(t, err, "cannot move order")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeInvalidTransition, he.Code)
	env.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateStatus_StrictModeBlocksSkipAhead(t *testing.T) {
	ctx := context.Background()
	env := newStatusTestEnv(true)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
	env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusPending), nil)

	_, err := env.uc.UpdateStatus(ctx, seller(), 5, usecase.UpdateOrderStatusInput{
		Status: model.OrderStatusDelivered,
	})

	assertErrContains(t, err, "cannot move order")
	env.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateStatus_PermissiveModeAllowsSkipAhead(t *testing.T) {
	ctx := context.Background()
	env := newStatusTestEnv(false)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
	env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusPending), nil)

	var saved model.Order
	env.orders.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = *args.Get(1).(*model.Order)
	}).Return(nil)
	env.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

	out, err := env.uc.UpdateStatus(ctx, seller(), 5, usecase.UpdateOrderStatusInput{
		Status: model.OrderStatusDelivered,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, out.Status)
	assert.NotNil(t, saved.DeliveredAt)
}

func TestUpdateStatus_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("buyer cannot update", func(t *testing.T) {
		env := newStatusTestEnv(false)
		_, err := env.uc.UpdateStatus(ctx, model.Principal{UserID: 10, Role: model.RoleBuyer}, 5,
			usecase.UpdateOrderStatusInput{Status: model.OrderStatusShipped})
		assertErrContains(t, err, "only sellers")
		env.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
	})

	t.Run("seller of another store is rejected", func(t *testing.T) {
		env := newStatusTestEnv(false)
		env.tx.On("WithinTx", mock.Anything).Return(nil)
		env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(model.Store{ID: 9, OwnerID: 20}, nil)
		env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusPending), nil)

		_, err := env.uc.UpdateStatus(ctx, seller(), 5,
			usecase.UpdateOrderStatusInput{Status: model.OrderStatusShipped})
		assertErrContains(t, err, "permissions")
		env.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("seller without store is rejected", func(t *testing.T) {
		env := newStatusTestEnv(false)
		env.tx.On("WithinTx", mock.Anything).Return(nil)
		env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(model.Store{}, repo.ErrNotFound)

		_, err := env.uc.UpdateStatus(ctx, seller(), 5,
			usecase.UpdateOrderStatusInput{Status: model.OrderStatusShipped})
		assertErrContains(t, err, "permissions")
	})

	t.Run("order not found", func(t *testing.T) {
		env := newStatusTestEnv(false)
		env.tx.On("WithinTx", mock.Anything).Return(nil)
		env.stores.On("FindByOwnerID", mock.Anything, int64(20)).Return(sellerStore(), nil)
		env.orders.On("FindByID", mock.Anything, int64(99)).Return(model.Order{}, repo.ErrNotFound)

		_, err := env.uc.UpdateStatus(ctx, seller(), 99,
			usecase.UpdateOrderStatusInput{Status: model.OrderStatusShipped})
		assertErrContains(t, err, "order not found")
	})
}

func TestRecordPaymentResult(t *testing.T) {
	ctx := context.Background()
	admin := model.Principal{UserID: 1, Role: model.RoleAdmin}

	t.Run("success marks order paid", func(t *testing.T) {
		env := newStatusTestEnv(false)
		env.tx.On("WithinTx", mock.Anything).Return(nil)
		env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusPending), nil)

		var saved model.Order
		env.orders.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			saved = *args.Get(1).(*model.Order)
		}).Return(nil)
		env.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
			return l.Action == model.AuditActionRecordPayment
		})).Return(nil)
		env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

		out, err := env.uc.RecordPaymentResult(ctx, admin, 5, usecase.PaymentResultInput{
			PaymentID: "pay_abc",
			Succeeded: true,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusCompleted, out.PaymentStatus)
		assert.Equal(t, model.OrderStatusPaid, saved.Status)
		assert.Equal(t, "pay_abc", saved.PaymentID)
		assert.NotNil(t, saved.PaidAt)
		env.audit.AssertExpectations(t)
	})

	t.Run("failure marks payment failed without touching status", func(t *testing.T) {
		env := newStatusTestEnv(false)
		env.tx.On("WithinTx", mock.Anything).Return(nil)
		env.orders.On("FindByID", mock.Anything, int64(5)).Return(orderInStatus(model.OrderStatusPending), nil)

		var saved model.Order
		env.orders.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			saved = *args.Get(1).(*model.Order)
		}).Return(nil)
		env.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

		_, err := env.uc.RecordPaymentResult(ctx, admin, 5, usecase.PaymentResultInput{
			PaymentID: "pay_abc",
			Succeeded: false,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusFailed, saved.PaymentStatus)
		assert.Equal(t, model.OrderStatusPending, saved.Status)
	})

	t.Run("already completed is idempotent", func(t *testing.T) {
		env := newStatusTestEnv(false)
		o := orderInStatus(model.OrderStatusPaid)
		o.PaymentStatus = model.PaymentStatusCompleted

		env.tx.On("WithinTx", mock.Anything).Return(nil)
		env.orders.On("FindByID", mock.Anything, int64(5)).Return(o, nil)
		env.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

		out, err := env.uc.RecordPaymentResult(ctx, admin, 5, usecase.PaymentResultInput{
			PaymentID: "pay_other",
			Succeeded: true,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusCompleted, out.PaymentStatus)
		env.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		env := newStatusTestEnv(false)
		_, err := env.uc.RecordPaymentResult(ctx, seller(), 5, usecase.PaymentResultInput{Succeeded: true})
		assertErrContains(t, err, "permissions")
		env.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
	})
}
