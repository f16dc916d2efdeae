// Package utils 提供通用工具函数
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims 访问令牌声明，Subject 即 owner id
type Claims struct {
	Email string `json:"email,omitempty"`
	Plan  string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// OwnerID 返回令牌所属的用户 ID
func (c *Claims) OwnerID() string {
	return c.Subject
}

// JWTManager 签发与校验 HS256 令牌
// 轮换密钥时旧密钥只用于校验，签发始终使用当前密钥。
type JWTManager struct {
	secret   []byte
	previous [][]byte
	issuer   string
	audience string
	leeway   time.Duration
}

// JWTOption 可选校验参数
type JWTOption func(*JWTManager)

// WithAudience 签发时写入并在校验时要求 aud
func WithAudience(aud string) JWTOption {
	return func(m *JWTManager) { m.audience = aud }
}

// WithLeeway 容忍签发方与本机的时钟偏差
func WithLeeway(d time.Duration) JWTOption {
	return func(m *JWTManager) { m.leeway = d }
}

// WithPreviousSecrets 轮换期内仍接受旧密钥签发的令牌
func WithPreviousSecrets(secrets ...string) JWTOption {
	return func(m *JWTManager) {
		for _, s := range secrets {
			if s != "" {
				m.previous = append(m.previous, []byte(s))
			}
		}
	}
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(secret, issuer string, opts ...JWTOption) *JWTManager {
	m := &JWTManager{secret: []byte(secret), issuer: issuer}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateToken 签发访问令牌（用于测试与本地引导）
func (m *JWTManager) GenerateToken(ownerID, email, plan string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Plan:  plan,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   ownerID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	if m.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.leeway))
	}
	return opts
}

func keyfunc(secret []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return secret, nil }
}

// ParseToken 校验签名与时间窗口；过期返回 ErrExpiredToken，其余失败都归为 ErrInvalidToken
func (m *JWTManager) ParseToken(tokenString string) (*Claims, error) {
	opts := m.parserOptions()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyfunc(m.secret), opts...)
	// 仅签名不匹配时才尝试旧密钥
	for i := 0; i < len(m.previous) && errors.Is(err, jwt.ErrTokenSignatureInvalid); i++ {
		token, err = jwt.ParseWithClaims(tokenString, &Claims{}, keyfunc(m.previous[i]), opts...)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
