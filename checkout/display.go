package checkout

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/feeriepay/checkout/models"
)

const (
	ExpiryLayout = "02/01/2006 15:04"
	qrImageSize  = 256
	pngDataURI   = "data:image/png;base64,"
)

// ErrRemoteQRCode is returned by QRCode.PNG when the gateway only gave a URL.
var ErrRemoteQRCode = errors.New("qr code is hosted remotely")

// Angola does not observe daylight saving time.
var luanda = time.FixedZone("WAT", 60*60)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

var (
	qrKeys        = []string{"QRCode", "qr_code", "qrCode", "qr"}
	ticketKeys    = []string{"Code", "code", "ticket_code"}
	entityKeys    = []string{"entity", "Entity", "entidade", "entity_id"}
	referenceKeys = []string{"reference", "Reference", "referencia", "reference_number"}
)

func MethodLabel(g models.Gateway) string {
	switch g {
	case models.GatewayGPO:
		return "Multicaixa Express"
	case models.GatewayReference:
		return "Referência Multicaixa"
	case models.GatewayEKwanzaTicket:
		return "E-Kwanza"
	}
	return string(g)
}

func OrderStatusLabel(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusPending:
		return "PENDENTE"
	case models.OrderStatusPaid:
		return "PAGO"
	case models.OrderStatusFailed:
		return "FALHOU"
	case models.OrderStatusCancelled:
		return "CANCELADO"
	case models.OrderStatusRefunded:
		return "REEMBOLSADO"
	}
	return strings.ToUpper(string(s))
}

// FormatExpiry renders a payment deadline in Luanda time, or "" for none.
func FormatExpiry(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(luanda).Format(ExpiryLayout)
}

// QRCode is what the buyer scans for an E-Kwanza ticket. Source is always
// usable as an image src: a data URI or an http(s) URL.
type QRCode struct {
	Source string `json:"source"`
	Ticket string `json:"ticket,omitempty"`
}

// ExtractQRCode finds the QR code in the given gateway payloads, searched in
// order. Text that is neither an image nor a URL is rendered locally.
func ExtractQRCode(payloads ...map[string]any) (QRCode, bool) {
	ticket := lookup(payloads, ticketKeys)
	raw := strings.TrimSpace(lookup(payloads, qrKeys))
	if raw == "" {
		raw = ticket
	}
	if raw == "" {
		return QRCode{}, false
	}

	switch {
	case strings.HasPrefix(raw, "data:image/"):
		return QRCode{Source: raw, Ticket: ticket}, true
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return QRCode{Source: raw, Ticket: ticket}, true
	}

	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && bytes.HasPrefix(decoded, pngMagic) {
		return QRCode{Source: pngDataURI + raw, Ticket: ticket}, true
	}

	png, err := qrcode.Encode(raw, qrcode.Medium, qrImageSize)
	if err != nil {
		return QRCode{}, false
	}
	return QRCode{Source: pngDataURI + base64.StdEncoding.EncodeToString(png), Ticket: ticket}, true
}

// PNG returns the image bytes for data URI sources.
func (q QRCode) PNG() ([]byte, error) {
	if !strings.HasPrefix(q.Source, "data:") {
		return nil, ErrRemoteQRCode
	}
	comma := strings.IndexByte(q.Source, ',')
	if comma < 0 {
		return nil, errors.New("malformed data uri")
	}
	return base64.StdEncoding.DecodeString(q.Source[comma+1:])
}

// PaymentReference is the entity/reference pair paid at an ATM or in a
// banking app.
type PaymentReference struct {
	Entity    string `json:"entity"`
	Reference string `json:"reference"`
}

// ExtractReference reads the Multicaixa reference from the payment's raw
// response, the order gateway response, or gateway_reference as a last
// resort.
func ExtractReference(p models.Payment, gatewayResponse map[string]any) (PaymentReference, bool) {
	payloads := []map[string]any{p.RawResponse, gatewayResponse}
	ref := PaymentReference{
		Entity:    lookup(payloads, entityKeys),
		Reference: lookup(payloads, referenceKeys),
	}
	if ref.Reference == "" {
		ref.Reference = p.GatewayReference
	}
	return ref, ref.Reference != ""
}

// lookup returns the first non-empty scalar under any of keys. Nested
// "data" objects are searched as well.
func lookup(payloads []map[string]any, keys []string) string {
	for _, m := range payloads {
		if m == nil {
			continue
		}
		for _, k := range keys {
			if s := scalar(m[k]); s != "" {
				return s
			}
		}
		if nested, ok := m["data"].(map[string]any); ok {
			if s := lookup([]map[string]any{nested}, keys); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}
