package provider

import (
	"crypto/md5"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
)

const (
	FieldTransactionUID   = "transaction_uid"
	FieldStatus           = "status"
	FieldOrderUID         = "order_uid"
	FieldOrderAmount      = "order_amount"
	FieldOrderCurrency    = "order_currency"
	FieldVaultTokenUID    = "vault_token_uid"
	FieldSubscriptionUID  = "subscription_uid"
	FieldRand             = "rand"
	FieldVerificationHash = "verificationhash"

	amountDecimals = 8
	randPrefix     = "rnd"
)

type Credentials struct {
	MerchantSiteUID string
	SecretKey       string
}

func (c Credentials) Validate() error {
	if c.MerchantSiteUID == "" || c.SecretKey == "" {
		return ErrConfiguration
	}
	return nil
}

// SignatureFields are the eight values covered by a verification hash.
type SignatureFields struct {
	TransactionUID  string
	Status          string
	OrderUID        string
	OrderAmount     string
	OrderCurrency   string
	VaultTokenUID   string
	SubscriptionUID string
	Rand            string
}

func FieldsFromObject(obj *payload.Object) SignatureFields {
	return SignatureFields{
		TransactionUID:  obj.Text(FieldTransactionUID),
		Status:          obj.Text(FieldStatus),
		OrderUID:        obj.Text(FieldOrderUID),
		OrderAmount:     obj.Text(FieldOrderAmount),
		OrderCurrency:   obj.Text(FieldOrderCurrency),
		VaultTokenUID:   obj.Text(FieldVaultTokenUID),
		SubscriptionUID: obj.Text(FieldSubscriptionUID),
		Rand:            obj.Text(FieldRand),
	}
}

func (f SignatureFields) trimmed() SignatureFields {
	return SignatureFields{
		TransactionUID:  strings.TrimSpace(f.TransactionUID),
		Status:          strings.TrimSpace(f.Status),
		OrderUID:        strings.TrimSpace(f.OrderUID),
		OrderAmount:     strings.TrimSpace(f.OrderAmount),
		OrderCurrency:   strings.TrimSpace(f.OrderCurrency),
		VaultTokenUID:   strings.TrimSpace(f.VaultTokenUID),
		SubscriptionUID: strings.TrimSpace(f.SubscriptionUID),
		Rand:            strings.TrimSpace(f.Rand),
	}
}

// FormatAmount renders an amount with exactly eight fractional digits,
// rounding half away from zero.
func FormatAmount(raw string) (string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: order_amount %q is not a number", ErrValidation, raw)
	}
	return amount.StringFixed(amountDecimals), nil
}

// Sign computes the verification hash:
//
//	sha512(md5(tx|status|uid|amount|currency|vault|subscription + rand + merchantSiteUID) + secretKey)
//
// Note that rand is appended without a separator.
func Sign(fields SignatureFields, creds Credentials) (string, error) {
	f := fields.trimmed()

	switch {
	case f.OrderUID == "":
		return "", fmt.Errorf("%w: order_uid is required", ErrValidation)
	case f.OrderAmount == "":
		return "", fmt.Errorf("%w: order_amount is required", ErrValidation)
	case f.OrderCurrency == "":
		return "", fmt.Errorf("%w: order_currency is required", ErrValidation)
	}
	if utf8.RuneCountInString(f.OrderCurrency) != 3 {
		return "", fmt.Errorf("%w: invalid currency code %q", ErrValidation, f.OrderCurrency)
	}

	amount, err := FormatAmount(f.OrderAmount)
	if err != nil {
		return "", err
	}
	if err := creds.Validate(); err != nil {
		return "", err
	}

	src := strings.Join([]string{
		f.TransactionUID,
		f.Status,
		f.OrderUID,
		amount,
		f.OrderCurrency,
		f.VaultTokenUID,
		f.SubscriptionUID,
	}, "|") + f.Rand

	stage1 := md5Hex(src + creds.MerchantSiteUID)
	sum := sha512.Sum512([]byte(stage1 + creds.SecretKey))
	return strings.ToLower(hex.EncodeToString(sum[:])), nil
}

// Verify recomputes the hash for fields and compares it in constant time.
func Verify(fields SignatureFields, hash string, creds Credentials) bool {
	expected, err := Sign(fields, creds)
	if err != nil {
		return false
	}
	got := strings.ToLower(strings.TrimSpace(hash))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// CheckString is the value HolestPay sends to prove a POS configuration push
// came from the account that owns the merchant site.
func CheckString(creds Credentials) string {
	return md5Hex(creds.MerchantSiteUID + creds.SecretKey)
}

func VerifyCheckString(checkstr string, creds Credentials) bool {
	if creds.Validate() != nil {
		return false
	}
	expected := CheckString(creds)
	got := strings.ToLower(strings.TrimSpace(checkstr))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Signer signs request documents with fixed merchant credentials.
type Signer struct {
	creds Credentials
	nonce func() string
}

func NewSigner(creds Credentials) (*Signer, error) {
	nonce, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}
	return &Signer{creds: creds, nonce: nonce}, nil
}

func (s *Signer) Credentials() Credentials {
	return s.creds
}

// NewRand returns a fresh nonce for the rand field.
func (s *Signer) NewRand() string {
	return randPrefix + s.nonce()
}

// SignObject returns a copy of request with every signed field present and
// verificationhash set. Unrelated keys pass through untouched.
func (s *Signer) SignObject(request *payload.Object) (*payload.Object, error) {
	signed := request.Clone()
	for _, key := range []string{
		FieldTransactionUID,
		FieldStatus,
		FieldOrderUID,
		FieldOrderAmount,
		FieldOrderCurrency,
		FieldVaultTokenUID,
		FieldSubscriptionUID,
	} {
		if !signed.Has(key) {
			signed.SetString(key, "")
		}
	}
	if strings.TrimSpace(signed.Text(FieldRand)) == "" {
		signed.SetString(FieldRand, s.NewRand())
	}

	hash, err := Sign(FieldsFromObject(signed), s.creds)
	if err != nil {
		return nil, err
	}
	signed.SetString(FieldVerificationHash, hash)
	return signed, nil
}

func (s *Signer) Verify(fields SignatureFields, hash string) bool {
	return Verify(fields, hash, s.creds)
}

func (s *Signer) VerifyCheckString(checkstr string) bool {
	return VerifyCheckString(checkstr, s.creds)
}

// SignRequest signs request with creds without keeping a Signer around.
func SignRequest(request *payload.Object, creds Credentials) (*payload.Object, error) {
	signer, err := NewSigner(creds)
	if err != nil {
		return nil, err
	}
	return signer.SignObject(request)
}
