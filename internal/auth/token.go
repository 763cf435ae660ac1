package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/forky/internal/model"
)

// TokenLifetime はセッショントークンの有効期間。固定値。
const TokenLifetime = 24 * time.Hour

// Claims はセッショントークンに含める主張。
// ユーザーIDはsub、テナントはaudに入れる。ロールは含めない。
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService はテナントごとに独立した署名鍵でセッショントークンを発行・検証する。
type TokenService struct {
	secrets map[model.Tenant][]byte
	now     func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// secretsに含まれないテナントへの発行はErrSigning、検証はErrInvalidTokenになる。
func NewTokenService(secrets map[model.Tenant][]byte) *TokenService {
	copied := make(map[model.Tenant][]byte, len(secrets))
	for tenant, secret := range secrets {
		copied[tenant] = slices.Clone(secret)
	}
	return &TokenService{
		secrets: copied,
		now:     time.Now,
	}
}

// Issue は指定テナント向けのトークンを発行する。
func (s *TokenService) Issue(userID string, tenant model.Tenant) (string, error) {
	secret, ok := s.secrets[tenant]
	if !ok || len(secret) == 0 {
		return "", fmt.Errorf("%w: no signing secret for tenant %s", ErrSigning, tenant)
	}
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrSigning)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{string(tenant)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify はトークンを検証しユーザーIDを返す。
// 形式不正・署名不正・期限切れ・別テナントのいずれも拒否する。
func (s *TokenService) Verify(tokenString string, tenant model.Tenant) (string, error) {
	tokenString = StripBearer(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	secret, ok := s.secrets[tenant]
	if !ok || len(secret) == 0 {
		return "", ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			// 署名検証前にaudを確認し、別テナントのトークンを区別して拒否する
			aud, err := t.Claims.GetAudience()
			if err != nil || !slices.Contains([]string(aud), string(tenant)) {
				return nil, ErrWrongTenant
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(string(tenant)),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrWrongTenant):
			return "", ErrWrongTenant
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		default:
			return "", ErrInvalidToken
		}
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// StripBearer はAuthorizationヘッダー値から"Bearer "接頭辞を取り除く。
// 接頭辞がない場合は値をそのまま返す。
func StripBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
