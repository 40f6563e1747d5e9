package jwt

import (
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
)

const resetTokenType = "password_reset"

// Generator signs and validates the service's JWTs. Access tokens and
// password-reset tokens are signed with separate secrets so one class
// of token can never stand in for the other.
type Generator struct {
	accessSecret []byte
	resetSecret  []byte
	accessTTL    time.Duration
	resetTTL     time.Duration
	issuer       string
}

// NewGenerator constructs a JWT generator.
func NewGenerator(accessSecret, resetSecret, issuer string, accessTTL, resetTTL time.Duration) *Generator {
	return &Generator{
		accessSecret: []byte(accessSecret),
		resetSecret:  []byte(resetSecret),
		accessTTL:    accessTTL,
		resetTTL:     resetTTL,
		issuer:       issuer,
	}
}

// AccessClaims is the custom JWT payload for access tokens. The user ID
// travels in the standard subject claim.
type AccessClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type resetClaims struct {
	Phone string `json:"phone_number"`
	Type  string `json:"type"`
}

var allowedAlgorithms = []gojose.SignatureAlgorithm{gojose.HS256}

// GenerateAccessToken produces a signed, time-limited access token
// embedding the user's identity and role.
func (g *Generator) GenerateAccessToken(user domain.User) (string, error) {
	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:   strconv.FormatInt(user.ID, 10),
		Issuer:    g.issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(g.accessTTL)),
	}
	custom := AccessClaims{
		Role:  user.Role,
		Email: user.Email,
		Phone: user.Phone,
	}
	return g.sign(g.accessSecret, std, custom)
}

// ValidateAccessToken verifies signature, issuer and expiry and returns
// the embedded claims.
func (g *Generator) ValidateAccessToken(token string) (*gojwt.Claims, *AccessClaims, error) {
	parsed, err := gojwt.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return nil, nil, fmt.Errorf("parse token: %w", err)
	}

	var std gojwt.Claims
	var custom AccessClaims
	if err := parsed.Claims(g.accessSecret, &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("verify token: %w", err)
	}

	if err := std.Validate(gojwt.Expected{Issuer: g.issuer, Time: time.Now()}); err != nil {
		return nil, nil, fmt.Errorf("validate claims: %w", err)
	}

	return &std, &custom, nil
}

// Subject parses the user ID out of validated standard claims.
func Subject(std *gojwt.Claims) (int64, error) {
	id, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse subject: %w", err)
	}
	return id, nil
}

// GenerateResetToken produces a short-lived password-reset token bound
// to the phone number that passed OTP verification.
func (g *Generator) GenerateResetToken(phone string) (string, error) {
	now := time.Now().UTC()
	std := gojwt.Claims{
		Issuer:   g.issuer,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(g.resetTTL)),
	}
	return g.sign(g.resetSecret, std, resetClaims{Phone: phone, Type: resetTokenType})
}

// ValidateResetToken verifies a password-reset token and returns the
// phone number it was issued for.
func (g *Generator) ValidateResetToken(token string) (string, error) {
	parsed, err := gojwt.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return "", fmt.Errorf("parse reset token: %w", err)
	}

	var std gojwt.Claims
	var custom resetClaims
	if err := parsed.Claims(g.resetSecret, &std, &custom); err != nil {
		return "", fmt.Errorf("verify reset token: %w", err)
	}
	if err := std.Validate(gojwt.Expected{Issuer: g.issuer, Time: time.Now()}); err != nil {
		return "", fmt.Errorf("validate reset claims: %w", err)
	}
	if custom.Type != resetTokenType || custom.Phone == "" {
		return "", fmt.Errorf("wrong token type")
	}

	return custom.Phone, nil
}

func (g *Generator) sign(secret []byte, std gojwt.Claims, custom any) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, nil
}
