package usecase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
)

var timeNow = time.Now

type impl struct {
	jwtSecret []byte
	account   account.UseCase
}

func New(jwtSecret string, account account.UseCase) domain.AuthUseCase {
	return &impl{
		jwtSecret: []byte(jwtSecret),
		account:   account,
	}
}

func (im *impl) SignToken(ctx ctx.Ctx, acc domain.AccountId) (string, error) {
	if _, err := im.account.Get(ctx, acc); err != nil {
		return "", err
	}

	claims := domain.JwtCustomClaims{
		AccountId: acc.String(),
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: timeNow().Add(24 * time.Hour).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	ss, err := token.SignedString(im.jwtSecret)
	if err != nil {
		ctx.WithField("err", err).Error("token.SignedString failed")
		return "", err
	}
	return ss, nil
}

func (im *impl) ParseToken(ctx ctx.Ctx, str string) (domain.AccountId, error) {
	token, err := jwt.ParseWithClaims(str, &domain.JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return im.jwtSecret, nil
	})
	if err != nil {
		return "", domain.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*domain.JwtCustomClaims); ok && token.Valid {
		return domain.AccountId(claims.AccountId), nil
	}
	return "", domain.ErrInvalidToken
}
