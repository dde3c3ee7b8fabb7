package middleware

import (
	"net/http"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
)

// PrincipalGuardはリクエストごとにユーザー行をDBから引き直し、
// 現在のroleでPrincipalを組み立てる。
// roleや所有はリクエスト間で変わりうるので、トークンやセッションの値を信用しない。
func PrincipalGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたuser_id を取得する
			rawUserID := c.Get(CtxUserIDKey)
			userID, ok := rawUserID.(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//無効化されたユーザーは拒否
			if !user.IsActive {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxPrincipalKey, model.Principal{
				UserID: user.ID,
				Role:   user.Role,
			})

			return next(c)
		}
	}
}

// handlerからPrincipalを取り出す
func GetPrincipal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(CtxPrincipalKey).(model.Principal)
	if !ok || p.UserID <= 0 {
		return model.Principal{}, false
	}
	return p, true
}
