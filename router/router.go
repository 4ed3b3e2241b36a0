package router

import (
	"github.com/gin-gonic/gin"

	"github.com/feeriepay/checkout/controllers"
	"github.com/feeriepay/checkout/middlewares"
	"github.com/feeriepay/checkout/utils"
)

type Dependencies struct {
	Checkout       *controllers.CheckoutController
	Health         *controllers.HealthController
	Signer         *utils.CheckoutTokenSigner
	RateLimiter    *middlewares.RateLimiter
	AllowedOrigins []string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.RecoveryMiddleware())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.AllowedOrigins))

	r.GET("/healthz", deps.Health.Health)

	api := r.Group("/api/checkout")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.RateLimit())
	}
	{
		api.GET("/products", deps.Checkout.ListProducts)
		api.POST("/sessions", deps.Checkout.CreateSession)

		session := api.Group("/session")
		session.Use(middlewares.CheckoutAuthMiddleware(deps.Signer))
		{
			session.GET("", deps.Checkout.GetSession)
			session.DELETE("", deps.Checkout.DeleteSession)
			session.PUT("/product", deps.Checkout.SelectProduct)
			session.PUT("/method", deps.Checkout.SetMethod)
			session.POST("/submit", deps.Checkout.Submit)
			session.POST("/cancel", deps.Checkout.Cancel)
			session.GET("/qr.png", deps.Checkout.QRCode)
			session.DELETE("/notifications/:id", deps.Checkout.DismissNotification)
			session.GET("/events", deps.Checkout.Events)
		}
	}

	return r
}
