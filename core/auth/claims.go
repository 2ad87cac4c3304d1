package auth

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

const (
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"
	RoleTeacher        = "teacher:"
	RoleStudent        = "student:"

	audience = "Academia"
)

var (
	SigningMethod = jwt.SigningMethodHS256

	ErrInvalidRole = errors.New("invalid role")
)

var allRoles = map[string]bool{
	RoleAdmin:          true,
	RoleAdminOwner:     true,
	RoleAdminPrincipal: true,
	RoleTeacher:        true,
	RoleStudent:        true,
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	IsStudent bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher bool     `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin   bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles     []string `json:"roles,omitempty"`
}

func hasRolePrefix(roles []string, prefix string) bool {
	for _, role := range roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// NewClaims returns the claims of id holding roles, expiring after conf.Server.JWTExpirationDelta.
func NewClaims(conf *core.Config, id core.Identity, roles ...string) (*Claims, error) {
	for _, role := range roles {
		if !allRoles[role] {
			return nil, errors.Wrap(ErrInvalidRole, role)
		}
	}
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   id.ID,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:  id.Username,
		Email:     id.Email,
		IsStudent: hasRolePrefix(roles, RoleStudent),
		IsTeacher: hasRolePrefix(roles, RoleTeacher),
		IsAdmin:   hasRolePrefix(roles, RoleAdmin),
		Roles:     roles,
	}, nil
}

func (c Claims) Identity() core.Identity {
	return core.Identity{ID: c.Subject, Username: c.Username, Email: c.Email}
}

// IsStaff reports whether the claims grant catalogue management.
func (c Claims) IsStaff() bool {
	return c.IsAdmin || c.IsTeacher
}

// HasAnyRole is true when roles is empty or one of them is held.
func (c Claims) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		for _, held := range c.Roles {
			if role == held {
				return true
			}
		}
	}
	return false
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(secretKey string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(SigningMethod, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}
