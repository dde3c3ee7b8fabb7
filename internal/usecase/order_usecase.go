package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/domain/pricing"
	repo "marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx      repo.TransactionManager
	taxRate decimal.Decimal
	log     *zap.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, taxRate decimal.Decimal, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{tx: tx, taxRate: taxRate, log: log}
}

type OrderLineInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type PlaceOrderInput struct {
	Items           []OrderLineInput
	ShippingAddress model.ShippingAddress
	//未指定なら0
	ShippingCost  *decimal.Decimal
	PaymentMethod model.PaymentMethod
	Notes         string
	//二重送信防止キー（任意）
	IdempotencyKey string
}

type OrderOutput struct {
	model.Order
	Items []model.OrderItem `json:"items"`
}

type OrderListOutput struct {
	Total  int64         `json:"total"`
	Orders []OrderOutput `json:"orders"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

// PlaceOrderはカートを1つの注文として確定する。
// 商品検証→価格決定→在庫減算→注文＋明細の保存までを1トランザクションで行い、
// 途中で失敗したら何も残さない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, p model.Principal, in PlaceOrderInput) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeNotAuthorized, "unauthorized")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, errInvalid("items must not be empty")
	}
	for _, line := range in.Items {
		if line.ProductID <= 0 {
			return OrderOutput{}, errInvalid("invalid product_id")
		}
		if line.Quantity <= 0 {
			return OrderOutput{}, errInvalid("quantity must be > 0")
		}
	}
	if err := validateShippingAddress(in.ShippingAddress); err != nil {
		return OrderOutput{}, err
	}
	if !in.PaymentMethod.IsValid() {
		return OrderOutput{}, errInvalid("invalid payment_method")
	}

	shippingCost := decimal.Zero
	if in.ShippingCost != nil {
		if in.ShippingCost.IsNegative() {
			return OrderOutput{}, errInvalid("shipping_cost must be >= 0")
		}
		shippingCost = *in.ShippingCost
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, errInvalid("invalid idempotency_key")
	}

	var out OrderOutput

	//在庫のチェックと減算が競合しないようSERIALIZABLEで実行する
	err := u.tx.WithinSerializableTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, p.UserID, key)
			if err != nil {
				return errInternal()
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return errInternal()
				}
				out = toOrderOutput(existing, items)
				return nil
			}
		}

		now := time.Now()

		//商品検証＋価格決定。最初の商品の店舗に全明細を揃える。
		var storeID int64
		currency := ""
		lines := make([]pricing.Line, 0, len(in.Items))
		orderItems := make([]model.OrderItem, 0, len(in.Items))

		for _, line := range in.Items {
			product, err := r.Products().FindByID(ctx, line.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, CodeProductUnavailable,
					fmt.Sprintf("product %d not available", line.ProductID))
			}
			if err != nil {
				return errInternal()
			}
			if product.Status != model.ProductStatusActive {
				return NewHTTPError(http.StatusBadRequest, CodeProductUnavailable,
					fmt.Sprintf("product %d not available", line.ProductID))
			}

			if line.Quantity > product.StockQuantity {
				return NewHTTPError(http.StatusBadRequest, CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for product %s", product.Name))
			}

			//単一店舗の不変条件
			if storeID == 0 {
				storeID = product.StoreID
				currency = product.Currency
			} else if storeID != product.StoreID {
				return NewHTTPError(http.StatusBadRequest, CodeMixedStoreOrder,
					"all products must be from the same store")
			}

			unitPrice := pricing.EffectivePrice(product.Price, product.SalePrice,
				product.SaleStartDate, product.SaleEndDate, now)

			lines = append(lines, pricing.Line{UnitPrice: unitPrice, Quantity: line.Quantity})
			orderItems = append(orderItems, model.OrderItem{
				ProductID:   product.ID,
				Quantity:    line.Quantity,
				UnitPrice:   unitPrice,
				Subtotal:    pricing.LineSubtotal(unitPrice, line.Quantity),
				ProductName: product.Name,
				ProductSKU:  product.SKU,
				CreatedAt:   now,
			})
		}

		amounts := pricing.Quote(lines, shippingCost, u.taxRate)

		order := model.Order{
			BuyerID:         p.UserID,
			StoreID:         storeID,
			OrderNumber:     newOrderNumber(),
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusPending,
			PaymentMethod:   in.PaymentMethod,
			Currency:        currency,
			Subtotal:        amounts.Subtotal,
			ShippingCost:    shippingCost,
			Tax:             amounts.Tax,
			Discount:        decimal.Zero,
			TotalAmount:     amounts.Total,
			ShippingAddress: in.ShippingAddress,
			BuyerNotes:      in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//競合（同時に同じキーが入った等）はもう一回検索して同じ結果を返す
			if errors.Is(err, repo.ErrConflict) && key != "" {
				ex, found, err2 := r.Orders().FindByIdempotencyKey(ctx, p.UserID, key)
				if err2 == nil && found {
					items, err3 := r.OrderItems().ListByOrderID(ctx, ex.ID)
					if err3 != nil {
						return errInternal()
					}
					out = toOrderOutput(ex, items)
					return nil
				}
			}
			if errors.Is(err, repo.ErrConflict) {
				return errConflict()
			}
			return errInternal()
		}

		//在庫減算。足りなければ全体をロールバック。
		for i := range orderItems {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, orderItems[i].ProductID, orderItems[i].Quantity)
			if err != nil {
				if errors.Is(err, repo.ErrConflict) {
					return errConflict()
				}
				return errInternal()
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for product %s", orderItems[i].ProductName))
			}
			//ちょうど0になったらOUT_OF_STOCKへ
			if err := r.Inventory().MarkOutOfStockIfEmpty(ctx, orderItems[i].ProductID); err != nil {
				return errInternal()
			}
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return errInternal()
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return OrderOutput{}, errConflict()
		}
		return OrderOutput{}, err
	}

	u.log.Info("order placed",
		zap.Int64("order_id", out.ID),
		zap.String("order_number", out.OrderNumber),
		zap.Int64("buyer_id", p.UserID),
		zap.Int64("store_id", out.StoreID),
		zap.String("total_amount", out.TotalAmount.String()),
	)
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, p model.Principal, page, limit int) (OrderListOutput, error) {
	if p.UserID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, CodeNotAuthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, errInvalid("invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, errInvalid("invalid limit")
	}

	var out OrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByBuyerID(ctx, p.UserID, repo.OrderListQuery{Page: page, Limit: limit})
		if err != nil {
			return errInternal()
		}

		outs, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Total: total, Orders: outs, Page: page, Limit: limit}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// 販売者が自分の店舗の注文を見る。店舗の所有はリクエストごとにDBから引き直す。
func (u *OrderUsecase) ListStoreOrders(ctx context.Context, p model.Principal, status model.OrderStatus, page, limit int) (OrderListOutput, error) {
	if p.UserID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, CodeNotAuthorized, "unauthorized")
	}
	if p.Role != model.RoleSeller {
		return OrderListOutput{}, errNotAuthorized()
	}
	if page < 1 {
		return OrderListOutput{}, errInvalid("invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, errInvalid("invalid limit")
	}
	if status != "" && !status.IsValid() {
		return OrderListOutput{}, errInvalid("invalid status")
	}

	var out OrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		store, err := r.Stores().FindByOwnerID(ctx, p.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, CodeNotAuthorized, "store not found")
		}
		if err != nil {
			return errInternal()
		}

		orders, total, err := r.Orders().ListByStoreID(ctx, store.ID, repo.StoreOrderListQuery{
			Page:   page,
			Limit:  limit,
			Status: status,
		})
		if err != nil {
			return errInternal()
		}

		outs, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Total: total, Orders: outs, Page: page, Limit: limit}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetOrderDetail(ctx context.Context, p model.Principal, orderID int64) (OrderOutput, error) {
	if p.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeNotAuthorized, "unauthorized")
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

		//他人の注文は「存在しない扱い」にする
		switch p.Role {
		case model.RoleBuyer:
			if o.BuyerID != p.UserID {
				return errOrderNotFound()
			}
		case model.RoleSeller:
			store, err := r.Stores().FindByOwnerID(ctx, p.UserID)
			if err != nil || o.StoreID != store.ID {
				return errOrderNotFound()
			}
		case model.RoleAdmin:
			// OK
		default:
			return errNotAuthorized()
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

func validateShippingAddress(a model.ShippingAddress) error {
	//line2だけ任意
	if strings.TrimSpace(a.FullName) == "" {
		return errInvalid("shipping_address.full_name is required")
	}
	if strings.TrimSpace(a.AddressLine1) == "" {
		return errInvalid("shipping_address.address_line1 is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return errInvalid("shipping_address.city is required")
	}
	if strings.TrimSpace(a.State) == "" {
		return errInvalid("shipping_address.state is required")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return errInvalid("shipping_address.postal_code is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		return errInvalid("shipping_address.country is required")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return errInvalid("shipping_address.phone is required")
	}
	return nil
}

func newOrderNumber() string {
	return "ORD-" + uuid.NewString()
}

func withItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, errInternal()
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	if items == nil {
		items = []model.OrderItem{}
	}
	return OrderOutput{Order: o, Items: items}
}
