package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserStatus(t *testing.T) {
	st, ok := ParseUserStatus(" picture_requested ")
	assert.True(t, ok)
	assert.Equal(t, StatusPictureRequested, st)

	_, ok = ParseUserStatus("banned")
	assert.False(t, ok)
}

func TestUser_Roles(t *testing.T) {
	assert.Equal(t, []string{RoleUser}, (&User{}).Roles())
	assert.Equal(t, []string{RoleAdmin, RoleUser}, (&User{IsAdmin: true}).Roles())
}

func TestProfileUpdate_Apply(t *testing.T) {
	age := 30
	loc := "Hamburg"
	u := &User{Age: &age}

	ProfileUpdate{Location: &loc}.Apply(u)
	assert.Equal(t, 30, *u.Age)
	assert.Equal(t, "Hamburg", *u.Location)

	ProfileUpdate{ClearAge: true}.Apply(u)
	assert.Nil(t, u.Age)
}
