package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kalambet/partystat/internal/session"
)

// SessionValidator is the slice of session.Manager the middleware needs.
type SessionValidator interface {
	Validate(ctx context.Context, token string) error
}

// bearerToken extracts the session token from the Authorization header. The
// "Bearer " prefix is optional; the browser client historically sent the raw
// token.
func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	return strings.TrimPrefix(auth, "Bearer ")
}

// AdminAuth guards admin endpoints: the request must carry a signed,
// unexpired token whose session is still live server-side.
func AdminAuth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpError(w, http.StatusUnauthorized, errAuth, "需要管理员权限")
				return
			}
			if err := sessions.Validate(r.Context(), token); err != nil {
				if errors.Is(err, session.ErrInvalidToken) {
					httpError(w, http.StatusUnauthorized, errAuth, "管理员会话无效或已过期")
					return
				}
				httpError(w, http.StatusInternalServerError, errAPI, "验证会话失败: %v", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, errValidation, "请求格式不正确: %v", err)
		return
	}

	token, err := h.deps.Sessions.Login(r.Context(), req.Password)
	if errors.Is(err, session.ErrBadCredentials) {
		httpError(w, http.StatusUnauthorized, errAuth, "密码错误")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, errAPI, "登录失败: %v", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"message": "管理员验证成功",
	})
}

func (h *handler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Sessions.Revoke(r.Context(), bearerToken(r)); err != nil {
		httpError(w, http.StatusUnauthorized, errAuth, "管理员会话无效或已过期")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "管理员会话已注销",
	})
}
