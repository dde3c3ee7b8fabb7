package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"go.uber.org/zap"
)

// 注文ステータスの状態機械を進める。変更できるのは注文を受けた店舗の販売者だけ。
type OrderStatusUsecase struct {
	tx repo.TransactionManager
	//trueなら前進順序を検証する。falseは参照実装どおり順序を見ない。
	strictTransitions bool
	log               *zap.Logger
}

func NewOrderStatusUsecase(tx repo.TransactionManager, strictTransitions bool, log *zap.Logger) *OrderStatusUsecase {
	return &OrderStatusUsecase{tx: tx, strictTransitions: strictTransitions, log: log}
}

// 部分更新。nilのフィールドは触らない。
type UpdateOrderStatusInput struct {
	Status            model.OrderStatus
	TrackingNumber    *string
	TrackingURL       *string
	EstimatedDelivery *time.Time
	Notes             *string
}

func (u *OrderStatusUsecase) UpdateStatus(ctx context.Context, p model.Principal, orderID int64, in UpdateOrderStatusInput) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeNotAuthorized, "unauthorized")
	}
	if p.Role != model.RoleSeller {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, CodeNotAuthorized, "only sellers can update order status")
	}
	if orderID <= 0 {
		return OrderOutput{}, errInvalid("invalid id")
	}
	if !in.Status.IsValid() {
		return OrderOutput{}, errInvalid("invalid status")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//店舗の所有はリクエストごとに引き直す
		store, err := r.Stores().FindByOwnerID(ctx, p.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotAuthorized()
		}
		if err != nil {
			return errInternal()
		}

		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errOrderNotFound()
		}
		if err != nil {
			return errInternal()
		}
		if o.StoreID != store.ID {
			return errNotAuthorized()
		}

		// すでに同じなら何もしない
		if o.Status == in.Status {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return errInternal()
			}
			out = toOrderOutput(o, items)
			return nil
		}

		if !model.CanTransition(o.Status, in.Status, u.strictTransitions) {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidTransition,
				fmt.Sprintf("cannot move order from %s to %s", o.Status, in.Status))
		}

		before := o.Status
		now := time.Now()

		//キャンセルは出荷前なら在庫を戻し、売り切れ解除まで行う
		if in.Status == model.OrderStatusCancelled && releasesStock(before) {
			if err := u.releaseStock(ctx, r, p.UserID, orderID); err != nil {
				return err
			}
		}

		o.Status = in.Status
		switch in.Status {
		case model.OrderStatusShipped:
			o.ShippedAt = &now
		case model.OrderStatusDelivered:
			o.DeliveredAt = &now
		}
		if in.TrackingNumber != nil {
			o.TrackingNumber = *in.TrackingNumber
		}
		if in.TrackingURL != nil {
			o.TrackingURL = *in.TrackingURL
		}
		if in.EstimatedDelivery != nil {
			o.EstimatedDelivery = in.EstimatedDelivery
		}
		if in.Notes != nil {
			o.SellerNotes = *in.Notes
		}
		o.UpdatedAt = now

		if err := r.Orders().Save(ctx, &o); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return errConflict()
			}
			return errInternal()
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + string(before) + `"}`
		afterJSON := `{"status":"` + string(in.Status) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return errInternal()
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return errInternal()
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(out.Status)),
		zap.Int64("actor_user_id", p.UserID),
	)
	return out, nil
}

// 決済結果の反映。外部イベントの代役で、管理者だけが叩ける。
type PaymentResultInput struct {
	PaymentID string
	Succeeded bool
}

func (u *OrderStatusUsecase) RecordPaymentResult(ctx context.Context, p model.Principal, orderID int64, in PaymentResultInput) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeNotAuthorized, "unauthorized")
	}
	if p.Role != model.RoleAdmin {
		return OrderOutput{}, errNotAuthorized()
	}
	if orderID <= 0 {
		return OrderOutput{}, errInvalid("invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errOrderNotFound()
		}
		if err != nil {
			return errInternal()
		}

		//同じ結果を二度適用しない
		if o.PaymentStatus == model.PaymentStatusCompleted {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return errInternal()
			}
			out = toOrderOutput(o, items)
			return nil
		}

		now := time.Now()
		before := o.PaymentStatus

		if in.Succeeded {
			o.PaymentStatus = model.PaymentStatusCompleted
			o.PaymentID = in.PaymentID
			o.PaidAt = &now
			if o.Status == model.OrderStatusPending {
				o.Status = model.OrderStatusPaid
			}
		} else {
			o.PaymentStatus = model.PaymentStatusFailed
			o.PaymentID = in.PaymentID
		}
		o.UpdatedAt = now

		if err := r.Orders().Save(ctx, &o); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return errConflict()
			}
			return errInternal()
		}

		beforeJSON := `{"payment_status":"` + string(before) + `"}`
		afterJSON := `{"payment_status":"` + string(o.PaymentStatus) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionRecordPayment,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return errInternal()
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return errInternal()
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 出荷前のキャンセルだけ在庫を戻す
func releasesStock(from model.OrderStatus) bool {
	return from == model.OrderStatusPending ||
		from == model.OrderStatusPaid ||
		from == model.OrderStatusProcessing
}

func (u *OrderStatusUsecase) releaseStock(ctx context.Context, r repo.TxRepos, actorUserID int64, orderID int64) error {
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return errInternal()
	}

	for _, it := range items {
		if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			return errInternal()
		}
		//売り切れで止まっていた商品を復帰させる
		if err := r.Inventory().MarkActiveIfInStock(ctx, it.ProductID); err != nil {
			return errInternal()
		}
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   it.ProductID,
			ActorUserID: actorUserID,
			Delta:       it.Quantity,
			Reason:      "order cancelled",
			CreatedAt:   time.Now(),
		}); err != nil {
			return errInternal()
		}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionReleaseStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   it.ProductID,
			AfterJSON:    fmt.Sprintf(`{"delta":%d}`, it.Quantity),
			CreatedAt:    time.Now(),
		}); err != nil {
			return errInternal()
		}
	}
	return nil
}
