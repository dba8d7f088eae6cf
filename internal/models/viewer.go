package models

// Viewer is the authenticated caller of a request.
type Viewer struct {
	UserID   string
	Role     UserRole
	FullName string
	Email    string
}

// ViewerFromClaims builds a viewer from access token claims.
func ViewerFromClaims(claims *JWTClaims) Viewer {
	if claims == nil {
		return Viewer{}
	}
	return Viewer{
		UserID:   claims.UserID,
		Role:     claims.Role,
		FullName: claims.FullName,
		Email:    claims.Email,
	}
}

func (v Viewer) IsStudent() bool { return v.Role == RoleStudent }
func (v Viewer) IsStaff() bool   { return v.Role == RoleStaff }
func (v Viewer) IsAdmin() bool   { return v.Role == RoleAdmin }

// Authenticated reports whether the viewer carries an identity.
func (v Viewer) Authenticated() bool {
	return v.UserID != "" && v.Role.Valid()
}
