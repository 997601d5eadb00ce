package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMostPrivilegedRole(t *testing.T) {
	cases := []struct {
		name  string
		roles []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{RoleMember}, RoleMember},
		{"owner wins over member", []string{RoleMember, RoleAcademyOwner}, RoleAcademyOwner},
		{"order does not matter", []string{RoleAcademyOwner, RoleCoach, RoleMember}, RoleAcademyOwner},
		{"coach over member", []string{RoleMember, RoleCoach}, RoleCoach},
		{"unknown ranks below member", []string{"visitor", RoleMember}, RoleMember},
		{"only unknown", []string{"visitor"}, "visitor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MostPrivilegedRole(tc.roles))
		})
	}
}
