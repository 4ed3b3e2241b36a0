package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feeriepay/checkout/checkout"
	"github.com/feeriepay/checkout/services"
	"github.com/feeriepay/checkout/utils"
)

type HealthController struct {
	Registry *checkout.Registry
	Journal  *services.AttemptJournal
}

// Health -> liveness plus live session count and journal outcome totals
func (hc *HealthController) Health(c *gin.Context) {
	data := gin.H{"sessions": hc.Registry.Len()}

	if hc.Journal != nil {
		summary, err := hc.Journal.Summary(c.Request.Context())
		if err != nil {
			utils.Error().Errorf("health: %v", err)
			utils.RespondMessage(c, http.StatusServiceUnavailable, "database unavailable", nil)
			return
		}
		data["attempts"] = summary
	}
	utils.RespondJSON(c, http.StatusOK, "ok", data)
}
