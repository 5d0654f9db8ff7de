package services

import (
	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

// Caller is the authenticated profile behind a request, re-read from the
// database by the LoadCaller middleware.
type Caller struct {
	ID   string
	Role models.Role
}

func CallerOf(p *models.Profile) Caller {
	return Caller{ID: p.ID, Role: p.Role}
}

func (c Caller) Is(roles ...models.Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// CanManage reports whether c may act on target: admins and skill masters on
// anyone, managers on their direct reports.
func (c Caller) CanManage(target *models.Profile) bool {
	switch c.Role {
	case models.RoleSuperAdmin, models.RoleSkillMaster:
		return true
	case models.RoleManager:
		return target.ManagerID != nil && *target.ManagerID == c.ID
	default:
		return false
	}
}

func (c Caller) CanView(target *models.Profile) bool {
	return c.ID == target.ID || c.CanManage(target)
}

func forbidden(op string) error {
	return utils.E(utils.CodeForbidden, op, "accès refusé", nil)
}

func invalid(op, msg string) error {
	return utils.E(utils.CodeInvalidArgument, op, msg, nil)
}
