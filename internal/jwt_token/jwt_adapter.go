package jwttoken

import (
	"emailscore/pkg/domain"
	dErrors "emailscore/pkg/domain-errors"
	authmw "emailscore/pkg/platform/middleware/auth"
)

// ToPrincipal converts validated claims into the middleware principal.
func ToPrincipal(claims *Claims) (*authmw.Principal, error) {
	workspaceID, err := domain.ParseWorkspaceID(claims.WorkspaceID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	principal := &authmw.Principal{WorkspaceID: workspaceID}
	if claims.UserID != "" {
		userID, err := domain.ParseUserID(claims.UserID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		principal.UserID = userID
	}
	return principal, nil
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.Principal, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToPrincipal(claims)
}
