package vnpay

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

const (
	Version      = "2.1.0"
	CommandPay   = "pay"
	CommandQuery = "querydr"
	CurrencyVND  = "VND"
	OrderType    = "other"
	DefaultLang  = "vn"

	dateLayout = "20060102150405"
)

// Location is the gateway clock. Every vnp_*Date is rendered in GMT+7.
var Location = time.FixedZone("ICT", 7*60*60)

// Config holds merchant credentials and endpoints.
type Config struct {
	TMNCode    string
	HashSecret string
	PayURL     string
	APIURL     string
	ReturnURL  string
	Timeout    time.Duration
}

// Client builds signed payment URLs, verifies callbacks and queries
// transaction status over the merchant API.
type Client struct {
	cfg  Config
	http *resty.Client
	now  func() time.Time
}

// NewClient validates cfg and prepares the HTTP client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.TMNCode) == "" {
		return nil, fmt.Errorf("vnpay tmn code required")
	}
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return nil, fmt.Errorf("vnpay hash secret required")
	}
	if strings.TrimSpace(cfg.PayURL) == "" {
		return nil, fmt.Errorf("vnpay pay url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{cfg: cfg, http: httpClient, now: time.Now}, nil
}

// PaymentRequest describes one redirect to the hosted payment page.
type PaymentRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	IPAddress   string
	Locale      string
	BankCode    string
}

// PaymentURL is the signed redirect plus the correlation data to persist.
type PaymentURL struct {
	URL        string
	TxnRef     string
	OrderInfo  string
	CreatedAt  time.Time
	SecureHash string
}

// BuildPaymentURL assembles and signs the vnp_* parameters for req.
func (c *Client) BuildPaymentURL(req PaymentRequest) (*PaymentURL, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = DefaultLang
	}
	ip := strings.TrimSpace(req.IPAddress)
	if ip == "" {
		ip = "127.0.0.1"
	}

	created := c.now().In(Location)
	txnRef := fmt.Sprintf("%s_%d", req.OrderNumber, created.UnixMilli())
	orderInfo := "Payment for order " + req.OrderNumber

	params := map[string]string{
		"vnp_Version":    Version,
		"vnp_Command":    CommandPay,
		"vnp_TmnCode":    c.cfg.TMNCode,
		"vnp_Locale":     locale,
		"vnp_CurrCode":   CurrencyVND,
		"vnp_TxnRef":     txnRef,
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  OrderType,
		"vnp_Amount":     strconv.FormatInt(ToMinorUnits(req.Amount), 10),
		"vnp_ReturnUrl":  c.cfg.ReturnURL,
		"vnp_IpAddr":     ip,
		"vnp_CreateDate": FormatDate(created),
	}
	if code := strings.TrimSpace(req.BankCode); code != "" {
		params["vnp_BankCode"] = code
	}

	hash := SignParams(params, c.cfg.HashSecret)
	params[paramSecureHash] = hash

	return &PaymentURL{
		URL:        c.cfg.PayURL + "?" + encodeSorted(params),
		TxnRef:     txnRef,
		OrderInfo:  orderInfo,
		CreatedAt:  created,
		SecureHash: hash,
	}, nil
}

// Verify checks the signature of callback params.
func (c *Client) Verify(params map[string]string) bool {
	return VerifyParams(params, c.cfg.HashSecret)
}

func encodeSorted(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(params[key]))
	}
	return strings.Join(parts, "&")
}

// ToMinorUnits converts a major-unit amount to the gateway's x100 integer.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts a gateway amount back to major units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func FormatDate(t time.Time) string {
	return t.In(Location).Format(dateLayout)
}

func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, Location)
}

// Callback is the parsed vnp_* payload of a return redirect or IPN.
type Callback struct {
	TxnRef            string
	Amount            int64
	ResponseCode      string
	TransactionNo     string
	TransactionStatus string
	BankCode          string
	CardType          string
	PayDate           string
	OrderInfo         string
	SecureHash        string
}

// ParseCallback extracts the fields reconciliation relies on.
func ParseCallback(params map[string]string) (Callback, error) {
	cb := Callback{
		TxnRef:            strings.TrimSpace(params["vnp_TxnRef"]),
		ResponseCode:      strings.TrimSpace(params["vnp_ResponseCode"]),
		TransactionNo:     params["vnp_TransactionNo"],
		TransactionStatus: params["vnp_TransactionStatus"],
		BankCode:          params["vnp_BankCode"],
		CardType:          params["vnp_CardType"],
		PayDate:           params["vnp_PayDate"],
		OrderInfo:         params["vnp_OrderInfo"],
		SecureHash:        params[paramSecureHash],
	}
	if cb.TxnRef == "" {
		return cb, pkgerrors.New(pkgerrors.CodeValidation, "vnp_TxnRef missing")
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(params["vnp_Amount"]), 10, 64)
	if err != nil {
		return cb, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "vnp_Amount invalid")
	}
	cb.Amount = amount
	return cb, nil
}

// QueryRequest asks the gateway for the state of an earlier payment.
type QueryRequest struct {
	TxnRef          string
	OrderInfo       string
	TransactionDate time.Time
	IPAddress       string
}

// QueryResult is the querydr response body.
type QueryResult struct {
	ResponseID        string `json:"vnp_ResponseId"`
	Command           string `json:"vnp_Command"`
	ResponseCode      string `json:"vnp_ResponseCode"`
	Message           string `json:"vnp_Message"`
	TmnCode           string `json:"vnp_TmnCode"`
	TxnRef            string `json:"vnp_TxnRef"`
	Amount            string `json:"vnp_Amount"`
	OrderInfo         string `json:"vnp_OrderInfo"`
	BankCode          string `json:"vnp_BankCode"`
	PayDate           string `json:"vnp_PayDate"`
	TransactionNo     string `json:"vnp_TransactionNo"`
	TransactionType   string `json:"vnp_TransactionType"`
	TransactionStatus string `json:"vnp_TransactionStatus"`
	SecureHash        string `json:"vnp_SecureHash"`
}

// Settled reports whether the gateway confirmed the payment.
func (r QueryResult) Settled() bool {
	return IsSuccess(r.ResponseCode) && r.TransactionStatus == SuccessCode
}

// Pending reports whether the gateway has not resolved the payment yet.
func (r QueryResult) Pending() bool {
	return IsSuccess(r.ResponseCode) && r.TransactionStatus == "01"
}

// Callback adapts the query result to the callback shape used by
// reconciliation.
func (r QueryResult) Callback() (Callback, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(r.Amount), 10, 64)
	if err != nil {
		return Callback{}, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "querydr amount invalid")
	}
	code := r.TransactionStatus
	if code == "" {
		code = r.ResponseCode
	}
	return Callback{
		TxnRef:            r.TxnRef,
		Amount:            amount,
		ResponseCode:      code,
		TransactionNo:     r.TransactionNo,
		TransactionStatus: r.TransactionStatus,
		BankCode:          r.BankCode,
		PayDate:           r.PayDate,
		OrderInfo:         r.OrderInfo,
		SecureHash:        r.SecureHash,
	}, nil
}

type queryBody struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TxnRef          string `json:"vnp_TxnRef"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateDate      string `json:"vnp_CreateDate"`
	IPAddr          string `json:"vnp_IpAddr"`
	SecureHash      string `json:"vnp_SecureHash"`
}

// QueryTransaction calls the querydr merchant API.
func (c *Client) QueryTransaction(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if strings.TrimSpace(c.cfg.APIURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "vnpay api url not configured")
	}
	ip := strings.TrimSpace(req.IPAddress)
	if ip == "" {
		ip = "127.0.0.1"
	}
	body := queryBody{
		RequestID:       strings.ReplaceAll(uuid.NewString(), "-", "")[:32],
		Version:         Version,
		Command:         CommandQuery,
		TmnCode:         c.cfg.TMNCode,
		TxnRef:          req.TxnRef,
		OrderInfo:       req.OrderInfo,
		TransactionDate: FormatDate(req.TransactionDate),
		CreateDate:      FormatDate(c.now()),
		IPAddr:          ip,
	}
	body.SecureHash = Sign(strings.Join([]string{
		body.RequestID,
		body.Version,
		body.Command,
		body.TmnCode,
		body.TxnRef,
		body.TransactionDate,
		body.CreateDate,
		body.IPAddr,
		body.OrderInfo,
	}, "|"), c.cfg.HashSecret)

	var result QueryResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(c.cfg.APIURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "vnpay querydr request failed")
	}
	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("vnpay querydr returned %d", resp.StatusCode()))
	}
	return &result, nil
}
