package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lenavs/backend/internal/models"
)

type ctxKey string

const accountIDKey ctxKey = "account_id"

// AccountProvisioner guarantees a ledger row exists for every authenticated
// token holder.
type AccountProvisioner interface {
	UpsertAccount(ctx context.Context, id uuid.UUID, email string, credits int) (*models.Account, error)
}

// JWTAuth validates HS256 bearer tokens. The token's sub claim is the
// account id; on first sight the account is upserted so the gate always has
// a ledger row to evaluate. Missing tokens are rejected with the no-token
// reason, malformed or forged tokens with 403.
func JWTAuth(secret string, accounts AccountProvisioner, freeCredits int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respondJSON(w, http.StatusUnauthorized, map[string]string{
					"error":  "access denied",
					"reason": string(models.DenyNoToken),
				})
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))

			if err != nil || !token.Valid {
				respondJSON(w, http.StatusForbidden, map[string]string{"error": "invalid token"})
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				respondJSON(w, http.StatusForbidden, map[string]string{"error": "invalid token claims"})
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				respondJSON(w, http.StatusForbidden, map[string]string{"error": "token missing subject"})
				return
			}

			accountID, err := uuid.Parse(sub)
			if err != nil {
				respondJSON(w, http.StatusForbidden, map[string]string{"error": "invalid account id in token"})
				return
			}

			email, _ := claims["email"].(string)

			if _, err := accounts.UpsertAccount(r.Context(), accountID, email, freeCredits); err != nil {
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to provision account"})
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFromContext returns the authenticated account id set by JWTAuth.
func AccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return id, ok
}
