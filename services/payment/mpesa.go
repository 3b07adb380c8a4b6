package paymentsvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/billing"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	timestampLayout = "20060102150405"

	// token lifetime is 3599s; refresh a bit earlier
	tokenSlack = 60 * time.Second
)

var phoneRegex = regexp.MustCompile(`^254[17]\d{8}$`)

// Daraja transaction dates come without a zone, in Kenyan local time.
var nairobiTZ = time.FixedZone("EAT", 3*60*60)

// ErrInvalidPhoneNumber is returned when a phone number cannot be
// normalized into a valid Safaricom subscriber number.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// NowFunc can be mocked in tests
var NowFunc = time.Now

// MpesaClient talks to the Safaricom Daraja API. It implements
// billing.Gateway.
type MpesaClient struct {
	conf   core.MpesaConfig
	base   string
	http   *http.Client
	logger core.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ billing.Gateway = (*MpesaClient)(nil)

func NewMpesaClient(conf core.MpesaConfig, logger core.Logger) *MpesaClient {
	base := sandboxBaseURL
	if strings.EqualFold(conf.Environment, "production") {
		base = productionBaseURL
	}
	return &MpesaClient{
		conf:   conf,
		base:   base,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// FormatPhoneNumber normalizes a phone number to the 254XXXXXXXXX form.
func FormatPhoneNumber(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	p := digits.String()
	switch {
	case strings.HasPrefix(p, "0"):
		return "254" + p[1:]
	case strings.HasPrefix(p, "254"):
		return p
	default:
		return "254" + p
	}
}

// ValidatePhoneNumber reports whether phone is a valid Safaricom
// subscriber number once normalized.
func ValidatePhoneNumber(phone string) bool {
	return phoneRegex.MatchString(FormatPhoneNumber(phone))
}

// GeneratePassword builds the STK push password for the given timestamp.
func GeneratePassword(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (c *MpesaClient) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && NowFunc().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", errors.Wrap(err, "building token request")
	}
	req.SetBasicAuth(c.conf.ConsumerKey, c.conf.ConsumerSecret)

	res, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting access token")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("token request failed with status %d", res.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return "", errors.Wrap(err, "decoding token response")
	}
	if tr.AccessToken == "" {
		return "", errors.New("empty access token")
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = NowFunc().Add(time.Hour - tokenSlack)
	return c.accessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

// InitiateSTKPush sends a payment prompt to the subscriber's phone.
func (c *MpesaClient) InitiateSTKPush(ctx context.Context, phone string, amount float64, accountRef, desc string) (billing.STKPushResponse, error) {
	phone = FormatPhoneNumber(phone)
	if !phoneRegex.MatchString(phone) {
		return billing.STKPushResponse{}, ErrInvalidPhoneNumber
	}

	token, err := c.getAccessToken(ctx)
	if err != nil {
		return billing.STKPushResponse{}, err
	}

	txType := "CustomerPayBillOnline"
	if strings.EqualFold(c.conf.ShortCodeType, "till") {
		txType = "CustomerBuyGoodsOnline"
	}

	timestamp := NowFunc().Format(timestampLayout)
	body := stkPushRequest{
		BusinessShortCode: c.conf.ShortCode,
		Password:          GeneratePassword(c.conf.ShortCode, c.conf.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   txType,
		Amount:            int(amount),
		PartyA:            phone,
		PartyB:            c.conf.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.conf.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   desc,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return billing.STKPushResponse{}, errors.Wrap(err, "marshalling stk push request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(data))
	if err != nil {
		return billing.STKPushResponse{}, errors.Wrap(err, "building stk push request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return billing.STKPushResponse{}, errors.Wrap(err, "requesting stk push")
	}
	defer res.Body.Close()

	var sr stkPushResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return billing.STKPushResponse{}, errors.Wrap(err, "decoding stk push response")
	}
	if sr.ResponseCode != "0" {
		msg := sr.ResponseDescription
		if msg == "" {
			msg = sr.ErrorMessage
		}
		return billing.STKPushResponse{}, errors.Errorf("stk push rejected: %s", msg)
	}

	c.logger.Info(fmt.Sprintf("STK push sent to %s (checkout %s)", phone, sr.CheckoutRequestID))
	return billing.STKPushResponse{
		CheckoutRequestID: sr.CheckoutRequestID,
		MerchantRequestID: sr.MerchantRequestID,
		ResponseCode:      sr.ResponseCode,
		CustomerMessage:   sr.CustomerMessage,
	}, nil
}

type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes a Daraja payment callback payload.
func ParseCallback(data []byte) (billing.CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return billing.CallbackResult{}, errors.Wrap(err, "decoding mpesa callback")
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return billing.CallbackResult{}, errors.New("callback missing CheckoutRequestID")
	}

	res := billing.CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				res.Amount = v
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				res.ReceiptNumber = v
			}
		case "TransactionDate":
			var raw string
			switch v := item.Value.(type) {
			case float64:
				raw = fmt.Sprintf("%.0f", v)
			case string:
				raw = v
			}
			if ts, err := time.ParseInLocation(timestampLayout, raw, nairobiTZ); err == nil {
				res.TransactionDate = ts
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				res.PhoneNumber = fmt.Sprintf("%.0f", v)
			case string:
				res.PhoneNumber = v
			}
		}
	}
	return res, nil
}
