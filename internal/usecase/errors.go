package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 安定したエラーコード。呼び出し側はcodeで
// 「カートを直す」「権限がない」「リトライする」を区別できる。
const (
	CodeProductUnavailable = "product_unavailable"
	CodeInsufficientStock  = "insufficient_stock"
	CodeMixedStoreOrder    = "mixed_store_order"
	CodeOrderNotFound      = "order_not_found"
	CodeNotAuthorized      = "not_authorized"
	CodeInvalidTransition  = "invalid_transition"
	//唯一リトライ可能なエラー
	CodeConflict = "conflict"

	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal_error"
)

type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(status int, code string, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func errInvalid(message string) error {
	return NewHTTPError(http.StatusBadRequest, CodeInvalidRequest, message)
}

func errInternal() error {
	return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
}

func errNotAuthorized() error {
	return NewHTTPError(http.StatusForbidden, CodeNotAuthorized, "not enough permissions")
}

func errOrderNotFound() error {
	return NewHTTPError(http.StatusNotFound, CodeOrderNotFound, "order not found")
}

func errConflict() error {
	return NewHTTPError(http.StatusConflict, CodeConflict, "conflict, retry the request")
}
