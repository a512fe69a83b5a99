package user

import (
	"strings"
	"time"
)

// Role 用户角色（持久化为字符串）。
type Role string

const (
	RoleIndividual Role = "individual" // 普通卖家
	RoleAdmin      Role = "admin"      // 平台管理员
)

// User 是 users 表的 GORM 模型（卖家账号）。
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	PasswordSalt string `gorm:"size:64;not null"`

	// 资料
	FirstName string `gorm:"size:100"`
	LastName  string `gorm:"size:100"`
	Phone     string `gorm:"size:20"`
	City      string `gorm:"size:100"`
	Province  string `gorm:"size:100"`

	// Active / CanPublish 不加列默认值：带 default 标签的 bool 零值
	// 会被 GORM 从 INSERT 中省略，false 会被列默认值悄悄改写
	Role       Role `gorm:"type:varchar(16);not null;default:'individual'"`
	Active     bool `gorm:"not null"`
	CanPublish bool `gorm:"not null"` // 是否允许发布车辆

	// 运营统计
	VehiclesPublished int `gorm:"not null;default:0"`
	VehiclesSold      int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
