package domain

import (
	"github.com/golang-jwt/jwt"

	"github.com/bidhaus/goapi/base/ctx"
)

type JwtCustomClaims struct {
	AccountId string `json:"data"`
	jwt.StandardClaims
}

type AuthUseCase interface {
	SignToken(ctx ctx.Ctx, account AccountId) (string, error)
	ParseToken(ctx ctx.Ctx, token string) (account AccountId, err error)
}
