package usecase

import (
	"context"
	"net/http"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
)

// 管理者向けの横断的な注文一覧。ステータス変更は店舗の販売者だけの権限なので、ここには置かない。
type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

func (u *AdminOrderUsecase) List(ctx context.Context, p model.Principal, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if p.UserID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeNotAuthorized, "unauthorized")
	}
	if p.Role != model.RoleAdmin {
		return []OrderOutput{}, errNotAuthorized()
	}

	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, errInvalid("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, errInvalid("invalid limit")
	}
	if f.Status != "" && !f.Status.IsValid() {
		return []OrderOutput{}, errInvalid("invalid status")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return errInternal()
		}

		outs, err = withItems(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}
