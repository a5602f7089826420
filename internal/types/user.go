package types

import (
	"time"

	"gorm.io/datatypes"
)

// User is a registered participant. DeviceEndpoints grows on login
// (add-if-absent) and is never shrunk within this service.
type User struct {
	Username        string                      `gorm:"primaryKey;column:username" json:"username"`
	DisplayName     string                      `gorm:"not null;column:display_name" json:"displayName"`
	DeviceEndpoints datatypes.JSONSlice[string] `gorm:"column:device_endpoints" json:"-"`
	CreatedAt       time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string {
	return "user"
}

// HasEndpoint reports whether endpoint is already registered for the user.
func (u *User) HasEndpoint(endpoint string) bool {
	for _, e := range u.DeviceEndpoints {
		if e == endpoint {
			return true
		}
	}
	return false
}
