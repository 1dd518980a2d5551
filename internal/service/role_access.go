package service

import "go-contacts-api/internal/model"

// RoleAccess permits a request when the resolved user's role is in the
// route's allow-set.
type RoleAccess struct {
	allowed map[model.Role]struct{}
}

func NewRoleAccess(roles ...model.Role) RoleAccess {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return RoleAccess{allowed: allowed}
}

func (a RoleAccess) Allows(role model.Role) bool {
	_, ok := a.allowed[role]
	return ok
}

func (a RoleAccess) Check(user model.User) error {
	if !a.Allows(user.Role) {
		return forbidden("Operation forbidden")
	}
	return nil
}
