package adapters

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

const (
	defaultIveriBaseURL = "https://portal.host.iveri.com"
	defaultIveriLiteURL = "https://portal.host.iveri.com/Lite/Authorise.aspx"
	defaultIveriVersion = "2.0"
	defaultIveriMode    = "Test"

	iveriApproved = "0"

	iveriMethodLite    = "lite"
	iveriMethodCard    = "card"
	iveriMethodEcocash = "ecocash"
)

var _ port.GatewayAdapter = (*IveriAdapter)(nil)

// iveriConfig is the gateway config blob for iveri.
type iveriConfig struct {
	ApplicationID string `json:"application_id" validate:"required"`
	CertificateID string `json:"certificate_id"`
	Mode          string `json:"mode" validate:"omitempty,oneof=Test Live"`
	Version       string `json:"version"`
	BaseURL       string `json:"base_url" validate:"omitempty,url"`
	LiteURL       string `json:"lite_url" validate:"omitempty,url"`
	LiteSecret    string `json:"lite_secret"`
	ReturnURL     string `json:"return_url" validate:"omitempty,url"`
	ErrorURL      string `json:"error_url" validate:"omitempty,url"`
}

type iveriMethod struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=lite card ecocash"`
}

type iveriCardDetails struct {
	CardNumber string `json:"card_number" validate:"required,credit_card"`
	ExpiryDate string `json:"expiry_date" validate:"required,len=4,numeric"`
	CVV        string `json:"cvv" validate:"omitempty,numeric,min=3,max=4"`
}

type iveriEcocashDetails struct {
	MobileNumber string `json:"mobile_number" validate:"required,numeric,min=9,max=15"`
}

// iveriRequest is the Enterprise REST envelope.
type iveriRequest struct {
	Version       string           `json:"Version"`
	CertificateID string           `json:"CertificateID,omitempty"`
	ProductType   string           `json:"ProductType"`
	Direction     string           `json:"Direction"`
	Transaction   iveriTransaction `json:"Transaction"`
}

type iveriTransaction struct {
	ApplicationID     string `json:"ApplicationID"`
	Command           string `json:"Command"`
	Mode              string `json:"Mode"`
	MerchantReference string `json:"MerchantReference"`
	Currency          string `json:"Currency"`
	Amount            string `json:"Amount"`
	PAN               string `json:"PAN,omitempty"`
	ExpiryDate        string `json:"ExpiryDate,omitempty"`
	CardSecurityCode  string `json:"CardSecurityCode,omitempty"`
	MobileNumber      string `json:"MobileNumber,omitempty"`
}

type iveriResponse struct {
	Transaction struct {
		RequestID string `json:"RequestID"`
		Result    struct {
			Status      string `json:"Status"`
			Code        string `json:"Code"`
			Description string `json:"Description"`
			Source      string `json:"Source"`
		} `json:"Result"`
	} `json:"Transaction"`
}

type iveriAttempt struct {
	cfg       iveriConfig
	req       port.PaymentRequest
	method    string
	card      iveriCardDetails
	ecocash   iveriEcocashDetails
	returnURL string
	errorURL  string
}

func (a iveriAttempt) LedgerMetadata() map[string]any {
	meta := map[string]any{"payment_method": a.method}
	switch a.method {
	case iveriMethodCard:
		meta["card_last4"] = lastN(a.card.CardNumber, 4)
	case iveriMethodEcocash:
		meta["mobile_last4"] = lastN(a.ecocash.MobileNumber, 4)
	}
	return meta
}

// IveriAdapter handles iVeri Enterprise debits (card, ecocash) and the
// iVeri Lite hosted page.
type IveriAdapter struct {
	client   *ProcessorClient
	validate *validator.Validate
	logger   *slog.Logger
}

func NewIveriAdapter(client *ProcessorClient, validate *validator.Validate, logger *slog.Logger) *IveriAdapter {
	return &IveriAdapter{client: client, validate: validate, logger: logger}
}

func (a *IveriAdapter) Type() valueobject.GatewayType { return valueobject.GatewayIveri }

func (a *IveriAdapter) Prepare(gateway model.Gateway, req port.PaymentRequest) (port.Attempt, error) {
	var cfg iveriConfig
	if err := gateway.DecodeConfig(&cfg); err != nil {
		return nil, err
	}
	if err := a.validate.Struct(cfg); err != nil {
		return nil, configError(valueobject.GatewayIveri, err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultIveriBaseURL
	}
	if cfg.LiteURL == "" {
		cfg.LiteURL = defaultIveriLiteURL
	}
	if cfg.Version == "" {
		cfg.Version = defaultIveriVersion
	}
	if cfg.Mode == "" {
		cfg.Mode = defaultIveriMode
	}

	var m iveriMethod
	if err := decodeDetails(req.Details, &m); err != nil {
		return nil, err
	}
	if err := a.validate.Struct(m); err != nil {
		return nil, detailsError(err)
	}

	attempt := iveriAttempt{cfg: cfg, req: req, method: strings.ToLower(m.PaymentMethod)}
	if attempt.method == "" {
		attempt.method = iveriMethodLite
	}

	switch attempt.method {
	case iveriMethodCard:
		if err := decodeDetails(req.Details, &attempt.card); err != nil {
			return nil, err
		}
		if err := a.validate.Struct(attempt.card); err != nil {
			return nil, detailsError(err)
		}
	case iveriMethodEcocash:
		if err := decodeDetails(req.Details, &attempt.ecocash); err != nil {
			return nil, err
		}
		if err := a.validate.Struct(attempt.ecocash); err != nil {
			return nil, detailsError(err)
		}
	case iveriMethodLite:
		if cfg.LiteSecret == "" {
			return nil, &model.ConfigurationError{Gateway: valueobject.GatewayIveri.String(), Field: "lite_secret"}
		}
		attempt.returnURL = req.ReturnURL
		if attempt.returnURL == "" {
			attempt.returnURL = cfg.ReturnURL
		}
		if attempt.returnURL == "" {
			return nil, model.NewValidationError("return_url", "return_url is required")
		}
		attempt.errorURL = cfg.ErrorURL
		if attempt.errorURL == "" {
			attempt.errorURL = attempt.returnURL
		}
	}

	return attempt, nil
}

func (a *IveriAdapter) Execute(ctx context.Context, attempt port.Attempt, txn model.Transaction) (port.Outcome, error) {
	ia, ok := attempt.(iveriAttempt)
	if !ok {
		return port.Outcome{}, fmt.Errorf("iveri: unexpected attempt type %T", attempt)
	}
	if ia.method == iveriMethodLite {
		return a.liteRedirect(ia, txn)
	}
	return a.debit(ctx, ia, txn)
}

func (a *IveriAdapter) debit(ctx context.Context, ia iveriAttempt, txn model.Transaction) (port.Outcome, error) {
	reference := merchantReference(txn)
	payload := iveriRequest{
		Version:       ia.cfg.Version,
		CertificateID: ia.cfg.CertificateID,
		ProductType:   "Enterprise",
		Direction:     "Request",
		Transaction: iveriTransaction{
			ApplicationID:     ia.cfg.ApplicationID,
			Command:           "Debit",
			Mode:              ia.cfg.Mode,
			MerchantReference: reference,
			Currency:          ia.req.Amount.Currency().Code(),
			Amount:            ia.req.Amount.MinorUnitsString(),
		},
	}
	if ia.method == iveriMethodCard {
		payload.Transaction.PAN = ia.card.CardNumber
		payload.Transaction.ExpiryDate = ia.card.ExpiryDate
		payload.Transaction.CardSecurityCode = ia.card.CVV
	} else {
		payload.Transaction.MobileNumber = ia.ecocash.MobileNumber
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return port.Outcome{}, fmt.Errorf("iveri: encoding request: %w", err)
	}

	endpoint := strings.TrimRight(ia.cfg.BaseURL, "/") + "/api/transactions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return port.Outcome{}, fmt.Errorf("iveri: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	res, err := a.client.do(ctx, valueobject.GatewayIveri.String(), httpReq)
	if err != nil {
		return port.Outcome{}, err
	}

	var reply iveriResponse
	if err := json.Unmarshal(res.Body, &reply); err != nil {
		a.logger.Error("iveri: unreadable debit response", "transaction_id", txn.ID(), "body", string(res.Body), "error", err)
		return port.Outcome{}, fmt.Errorf("iveri: decoding response: %w", err)
	}

	result := reply.Transaction.Result
	metadata := map[string]any{
		"merchant_reference": reference,
		"result_status":      result.Status,
		"result_code":        result.Code,
		"result_description": result.Description,
	}

	if result.Status == iveriApproved {
		return port.Outcome{
			Kind: port.OutcomeApproved,
			Update: model.TransactionUpdate{
				Status:               valueobject.TransactionStatusCompleted,
				GatewayTransactionID: result.Source,
				TransactionReference: reply.Transaction.RequestID,
				Metadata:             metadata,
			},
			MarkOrderPaid: true,
			Message:       "Payment processed successfully",
		}, nil
	}

	reason := result.Description
	if reason == "" {
		reason = "Payment declined"
	}
	a.logger.Info("iveri: debit declined", "transaction_id", txn.ID(), "status", result.Status, "description", result.Description)
	return port.Outcome{
		Kind: port.OutcomeDeclined,
		Update: model.TransactionUpdate{
			Status:               valueobject.TransactionStatusFailed,
			GatewayTransactionID: result.Source,
			TransactionReference: reply.Transaction.RequestID,
			ErrorMessage:         reason,
			Metadata:             metadata,
		},
		Error: reason,
	}, nil
}

// liteRedirect builds the signed iVeri Lite hosted page URL. No call is made;
// the attempt stays pending until the customer completes it.
func (a *IveriAdapter) liteRedirect(ia iveriAttempt, txn model.Transaction) (port.Outcome, error) {
	reference := merchantReference(txn)
	amount := ia.req.Amount.MinorUnitsString()

	q := url.Values{}
	q.Set("Lite_Merchant_ApplicationID", ia.cfg.ApplicationID)
	q.Set("Lite_Order_Amount", amount)
	q.Set("Lite_Currency_AlphaCode", ia.req.Amount.Currency().Code())
	q.Set("Lite_Order_Terminal", "Web")
	q.Set("Lite_Order_LineItems_Product_1", "Order #"+ia.req.Order.OrderNumber())
	q.Set("Lite_Order_LineItems_Quantity_1", "1")
	q.Set("Lite_Order_LineItems_Amount_1", amount)
	q.Set("Lite_Website_Successful_Url", ia.returnURL)
	q.Set("Lite_Website_Fail_Url", ia.errorURL)
	q.Set("Lite_Website_TryLater_Url", ia.errorURL)
	q.Set("Lite_Website_Error_Url", ia.errorURL)
	q.Set("Ecom_ConsumerOrderID", reference)
	q.Set("Ecom_Payment_Card_Protocols", "iVeri")
	q.Set("Ecom_TransactionComplete", "false")
	if ia.req.CustomerEmail != "" {
		q.Set("Ecom_BillTo_Online_Email", ia.req.CustomerEmail)
	}
	q.Set("Lite_Signature", liteSignature(q, ia.cfg.LiteSecret))

	redirectURL := ia.cfg.LiteURL + "?" + q.Encode()

	return port.Outcome{
		Kind: port.OutcomeRedirect,
		Update: model.TransactionUpdate{
			Status: valueobject.TransactionStatusPending,
			Metadata: map[string]any{
				"merchant_reference": reference,
				"redirect_url":       redirectURL,
			},
		},
		RedirectURL: redirectURL,
	}, nil
}

// liteSignature is the hex HMAC-SHA256 of the sorted, encoded query values
// (without the signature itself).
func liteSignature(q url.Values, secret string) string {
	unsigned := url.Values{}
	for k, v := range q {
		if k != "Lite_Signature" {
			unsigned[k] = v
		}
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unsigned.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// merchantReference is ZIM-<first 8 of order id>-<first 8 of transaction id>.
func merchantReference(txn model.Transaction) string {
	return "ZIM-" + strings.ToUpper(txn.OrderID().String()[:8]) + "-" + strings.ToUpper(txn.ID().String()[:8])
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// decodeDetails converts the free-form payment details into a typed schema.
func decodeDetails(details map[string]any, v any) error {
	if len(details) == 0 {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return &model.ValidationError{Message: "invalid payment details"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &model.ValidationError{Message: "invalid payment details: " + err.Error()}
	}
	return nil
}
