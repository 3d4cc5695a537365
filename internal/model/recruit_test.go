package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecruitAccessAuthorizes(t *testing.T) {
	access := RecruitAccess{RecruitID: 1, AuthorID: 100, MemberIDs: []uint64{200, 300}}

	assert.True(t, access.Authorizes(100), "author")
	assert.True(t, access.Authorizes(200), "member")
	assert.True(t, access.Authorizes(300), "member")
	assert.False(t, access.Authorizes(400), "stranger")

	empty := RecruitAccess{RecruitID: 2, AuthorID: 100}
	assert.True(t, empty.Authorizes(100))
	assert.False(t, empty.Authorizes(200))
}

func TestElevated(t *testing.T) {
	assert.False(t, Elevated(RoleUser))
	assert.True(t, Elevated(RoleStaff))
	assert.True(t, Elevated(RoleAdmin))
	assert.False(t, Elevated(""))
	assert.False(t, Elevated("staff"), "role comparison is case-sensitive")
}
