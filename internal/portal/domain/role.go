package domain

import "strings"

// Role is the role claim carried by a session token.
type Role string

const (
	RoleCustomer           Role = "customer"
	RoleOrganization       Role = "organization"
	RoleOrganizationAdmin  Role = "organization_admin"
	RoleOrganizationDriver Role = "organization_driver"
	RoleDriver             Role = "driver"
	RoleAdmin              Role = "admin"
)

// RoleSet is the set of roles permitted on a route group.
type RoleSet []Role

// Contains reports whether role is in the set, ignoring case.
func (s RoleSet) Contains(role string) bool {
	role = strings.TrimSpace(role)
	for _, r := range s {
		if strings.EqualFold(string(r), role) {
			return true
		}
	}
	return false
}
