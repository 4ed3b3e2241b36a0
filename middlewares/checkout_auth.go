package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feeriepay/checkout/utils"
)

// SessionIDKey is the gin context key holding the authenticated session id.
const SessionIDKey = "session_id"

// CheckoutAuthMiddleware accepts the checkout token as a bearer header or,
// for websocket upgrades where browsers cannot set headers, as ?token=.
func CheckoutAuthMiddleware(signer *utils.CheckoutTokenSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if header := c.GetHeader("Authorization"); header != "" {
			if !strings.HasPrefix(header, "Bearer ") {
				utils.RespondMessage(c, http.StatusUnauthorized, "Formato de token inválido.", nil)
				c.Abort()
				return
			}
			token = strings.TrimPrefix(header, "Bearer ")
		} else {
			token = c.Query("token")
		}

		if token == "" {
			utils.RespondMessage(c, http.StatusUnauthorized, "Token de checkout em falta.", nil)
			c.Abort()
			return
		}

		claims, err := signer.Parse(token)
		if err != nil {
			utils.RespondMessage(c, http.StatusUnauthorized, "Sessão de checkout inválida ou expirada.", nil)
			c.Abort()
			return
		}

		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}
