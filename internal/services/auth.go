package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/learninglab-backend/internal/platform/ctxutil"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	// SetContextFromToken verifies an HS256 bearer token and stores its subject as the
	// request's user id.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// IssueToken mints a token for userID; used by the CLI and tests.
	IssueToken(userID uuid.UUID, ttl time.Duration) (string, error)
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
	issuer       string
}

func NewAuthService(baseLog *logger.Logger, jwtSecretKey, issuer string) (AuthService, error) {
	if strings.TrimSpace(jwtSecretKey) == "" {
		return nil, errors.New("jwt secret key is required")
	}
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		jwtSecretKey: jwtSecretKey,
		issuer:       strings.TrimSpace(issuer),
	}, nil
}

func (as *authService) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    as.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, errors.New("missing token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, errors.New("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}

	td := ctxutil.GetTraceData(ctx)
	if td == nil {
		td = &ctxutil.TraceData{}
	} else {
		cp := *td
		td = &cp
	}
	td.UserID = userID.String()
	return ctxutil.WithTraceData(ctx, td), nil
}

// UserIDFromContext returns the authenticated user, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(ctxutil.UserID(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}
