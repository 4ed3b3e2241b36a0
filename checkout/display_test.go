package checkout

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeriepay/checkout/models"
)

func TestMethodLabel(t *testing.T) {
	assert.Equal(t, "Multicaixa Express", MethodLabel(models.GatewayGPO))
	assert.Equal(t, "Referência Multicaixa", MethodLabel(models.GatewayReference))
	assert.Equal(t, "E-Kwanza", MethodLabel(models.GatewayEKwanzaTicket))
	assert.Equal(t, "paypay", MethodLabel("paypay"))
}

func TestOrderStatusLabel(t *testing.T) {
	assert.Equal(t, "PENDENTE", OrderStatusLabel(models.OrderStatusPending))
	assert.Equal(t, "PAGO", OrderStatusLabel(models.OrderStatusPaid))
	assert.Equal(t, "FALHOU", OrderStatusLabel(models.OrderStatusFailed))
	assert.Equal(t, "CANCELADO", OrderStatusLabel(models.OrderStatusCancelled))
	assert.Equal(t, "REEMBOLSADO", OrderStatusLabel(models.OrderStatusRefunded))
}

func TestFormatExpiry(t *testing.T) {
	assert.Empty(t, FormatExpiry(nil))

	deadline := time.Date(2026, 1, 10, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, "10/01/2026 10:15", FormatExpiry(&deadline))
}

func TestExtractQRCode(t *testing.T) {
	png, err := qrcode.Encode("123456789", qrcode.Low, 64)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(png)

	t.Run("data uri passes through", func(t *testing.T) {
		qr, ok := ExtractQRCode(map[string]any{"QRCode": "data:image/png;base64," + encoded, "Code": "123456789"})
		require.True(t, ok)
		assert.Equal(t, "data:image/png;base64,"+encoded, qr.Source)
		assert.Equal(t, "123456789", qr.Ticket)

		decoded, err := qr.PNG()
		require.NoError(t, err)
		assert.Equal(t, png, decoded)
	})

	t.Run("url passes through", func(t *testing.T) {
		qr, ok := ExtractQRCode(nil, map[string]any{"qr_code": "https://cdn.e-kwanza.ao/qr/1.png"})
		require.True(t, ok)
		assert.Equal(t, "https://cdn.e-kwanza.ao/qr/1.png", qr.Source)

		_, err := qr.PNG()
		assert.ErrorIs(t, err, ErrRemoteQRCode)
	})

	t.Run("bare base64 png becomes data uri", func(t *testing.T) {
		qr, ok := ExtractQRCode(map[string]any{"data": map[string]any{"qrCode": encoded}})
		require.True(t, ok)
		assert.Equal(t, "data:image/png;base64,"+encoded, qr.Source)
	})

	t.Run("plain text is rendered", func(t *testing.T) {
		qr, ok := ExtractQRCode(map[string]any{"Code": float64(987654321)})
		require.True(t, ok)
		assert.Equal(t, "987654321", qr.Ticket)
		assert.True(t, strings.HasPrefix(qr.Source, "data:image/png;base64,"))

		decoded, err := qr.PNG()
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(decoded, pngMagic))
	})

	t.Run("nothing to show", func(t *testing.T) {
		_, ok := ExtractQRCode(map[string]any{"Status": 0}, nil)
		assert.False(t, ok)
	})
}

func TestExtractReference(t *testing.T) {
	ref, ok := ExtractReference(models.Payment{
		RawResponse: map[string]any{"entity": float64(10116), "reference": "123 456 789"},
	}, nil)
	require.True(t, ok)
	assert.Equal(t, PaymentReference{Entity: "10116", Reference: "123 456 789"}, ref)

	ref, ok = ExtractReference(models.Payment{GatewayReference: "999888777"}, map[string]any{"entidade": "00123"})
	require.True(t, ok)
	assert.Equal(t, PaymentReference{Entity: "00123", Reference: "999888777"}, ref)

	_, ok = ExtractReference(models.Payment{}, nil)
	assert.False(t, ok)
}
