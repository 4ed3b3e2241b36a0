package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// FriendlyMessage turns any error from the checkout path into text that can
// be shown to a buyer.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsValidation():
			if msg := apiErr.FirstFieldError(); msg != "" {
				return msg
			}
			return apiErr.Message
		case apiErr.Status == http.StatusUnauthorized:
			return "A sua sessão expirou. Inicie sessão novamente."
		case apiErr.Status == http.StatusForbidden:
			return "Não tem permissão para realizar esta operação."
		case apiErr.Status == http.StatusNotFound:
			return apiErr.Message
		case apiErr.Status == http.StatusTooManyRequests:
			return "Demasiadas tentativas. Aguarde um momento e tente novamente."
		case apiErr.Status >= 500:
			return "O serviço de pagamentos está temporariamente indisponível. Tente novamente."
		}
		return apiErr.Message
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "O servidor demorou demasiado a responder. Tente novamente."
	}
	var netErr net.Error
	if errors.As(err, &netErr) || strings.Contains(err.Error(), "error making request") {
		return "Sem ligação ao servidor. Verifique a sua internet e tente novamente."
	}

	return "Erro ao criar pedido."
}
