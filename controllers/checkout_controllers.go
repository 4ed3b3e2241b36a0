package controllers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/feeriepay/checkout/checkout"
	"github.com/feeriepay/checkout/hub"
	"github.com/feeriepay/checkout/middlewares"
	"github.com/feeriepay/checkout/models"
	"github.com/feeriepay/checkout/services"
	"github.com/feeriepay/checkout/utils"
)

const productListSize = 50

var upgrader = websocket.Upgrader{
	// Access is checked by the session token, not the origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionFactory builds a checkout session preselecting productID.
type SessionFactory func(ctx context.Context, id, productID string) (*checkout.Session, error)

// NewSessionFactory returns a SessionFactory building sessions from base.
func NewSessionFactory(base checkout.Config) SessionFactory {
	return func(ctx context.Context, id, productID string) (*checkout.Session, error) {
		cfg := base
		cfg.ProductID = productID
		return checkout.NewSession(ctx, id, cfg)
	}
}

type CheckoutController struct {
	Registry   *checkout.Registry
	Hub        *hub.CheckoutHub
	Signer     *utils.CheckoutTokenSigner
	Products   checkout.ProductLister
	NewSession SessionFactory
}

// ListProducts -> catalogue for the product selector. An unreachable
// catalogue yields the placeholder product.
func (cc *CheckoutController) ListProducts(c *gin.Context) {
	products := []models.Product{models.PlaceholderProduct()}
	page, err := cc.Products.List(c.Request.Context(), 1, productListSize)
	if err != nil {
		utils.Info().WithError(err).Warn("product catalogue unavailable")
	} else if page != nil && len(page.Data) > 0 {
		products = page.Data
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

// CreateSession -> starts a checkout and hands out its token
func (cc *CheckoutController) CreateSession(c *gin.Context) {
	var body struct {
		ProductID string `json:"product_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondMessage(c, http.StatusBadRequest, "Pedido inválido.", nil)
			return
		}
	}

	id := checkout.NewSessionID()
	session, err := cc.NewSession(c.Request.Context(), id, body.ProductID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	token, err := cc.Signer.Generate(id)
	if err != nil {
		session.Close()
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	cc.Registry.Put(session)

	utils.RespondJSON(c, http.StatusCreated, "Checkout session created", gin.H{
		"token":   token,
		"session": session.Snapshot(),
	})
}

func (cc *CheckoutController) session(c *gin.Context) (*checkout.Session, bool) {
	session, err := cc.Registry.Get(c.GetString(middlewares.SessionIDKey))
	if err != nil {
		utils.RespondMessage(c, http.StatusNotFound, "Sessão de checkout não encontrada.", nil)
		return nil, false
	}
	return session, true
}

func (cc *CheckoutController) GetSession(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checkout session", session.Snapshot())
}

func (cc *CheckoutController) SelectProduct(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}
	var body struct {
		ProductID string `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondMessage(c, http.StatusBadRequest, "Selecione um produto válido.", nil)
		return
	}

	snap, err := session.SelectProduct(body.ProductID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product selected", snap)
}

func (cc *CheckoutController) SetMethod(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}
	var body struct {
		Method models.Gateway `json:"method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondMessage(c, http.StatusBadRequest, "Método de pagamento inválido.", nil)
		return
	}

	snap, err := session.SetMethod(body.Method)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment method selected", snap)
}

// Submit -> places the order; on success the session is waiting for payment
func (cc *CheckoutController) Submit(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}
	var form checkout.SubmitForm
	if err := c.ShouldBindJSON(&form); err != nil {
		utils.RespondMessage(c, http.StatusBadRequest, "Pedido inválido.", nil)
		return
	}

	snap, err := session.Submit(c.Request.Context(), form)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", snap)
}

func (cc *CheckoutController) Cancel(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}
	snap, err := session.Cancel()
	if err != nil {
		respondSessionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checkout cancelled", snap)
}

// DeleteSession -> the buyer left the page
func (cc *CheckoutController) DeleteSession(c *gin.Context) {
	id := c.GetString(middlewares.SessionIDKey)
	if !cc.Registry.Remove(id) {
		utils.RespondMessage(c, http.StatusNotFound, "Sessão de checkout não encontrada.", nil)
		return
	}
	cc.Hub.Broadcast(id, hub.Message{Event: hub.EventClosed, Data: gin.H{"session_id": id}})
	cc.Hub.CloseSession(id)
	utils.RespondJSON(c, http.StatusOK, "Checkout session closed", nil)
}

// QRCode -> PNG of the E-Kwanza ticket being waited on
func (cc *CheckoutController) QRCode(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}
	qr, ok := session.QRCode()
	if !ok {
		utils.RespondMessage(c, http.StatusNotFound, "Código QR indisponível.", nil)
		return
	}

	png, err := qr.PNG()
	if errors.Is(err, checkout.ErrRemoteQRCode) {
		c.Redirect(http.StatusFound, qr.Source)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (cc *CheckoutController) DismissNotification(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}
	if !session.DismissNotification(c.Param("id")) {
		utils.RespondMessage(c, http.StatusNotFound, "Notificação não encontrada.", nil)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification dismissed", nil)
}

// Events -> websocket stream of checkout_state and checkout_notification
func (cc *CheckoutController) Events(c *gin.Context) {
	session, ok := cc.session(c)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	id := session.ID()
	client := cc.Hub.Register(id, ws)
	unsubscribe := session.Subscribe(func(u checkout.Update) {
		cc.Hub.Deliver(id, client, hub.FromUpdate(u))
	})

	// The browser never sends anything; reading detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	unsubscribe()
	cc.Hub.Unregister(id, client)
}

// respondSessionError maps session and backend failures to HTTP.
func respondSessionError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var apiErr *services.APIError
	var netErr net.Error

	switch {
	case errors.As(err, &vErr):
		utils.RespondMessage(c, http.StatusUnprocessableEntity, vErr.Message, nil)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status >= http.StatusInternalServerError || status == http.StatusUnauthorized {
			status = http.StatusBadGateway
		}
		var fields interface{}
		if len(apiErr.Errors) > 0 {
			fields = apiErr.Errors
		}
		utils.RespondMessage(c, status, services.FriendlyMessage(err), fields)
	case errors.Is(err, checkout.ErrProductNotFound):
		utils.RespondMessage(c, http.StatusNotFound, "Selecione um produto válido.", nil)
	case errors.Is(err, checkout.ErrInvalidTransition), errors.Is(err, checkout.ErrSubmitInFlight):
		utils.RespondMessage(c, http.StatusConflict, "O checkout já não aceita esta operação.", nil)
	case errors.Is(err, checkout.ErrSessionClosed):
		utils.RespondMessage(c, http.StatusGone, "Sessão de checkout terminada.", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		utils.RespondMessage(c, http.StatusBadGateway, services.FriendlyMessage(err), nil)
	default:
		utils.RespondMessage(c, http.StatusInternalServerError, services.FriendlyMessage(err), nil)
	}
}
