package domain

import (
	"strings"
	"time"
)

// User roles. Closed set; new accounts default to RoleUser.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type SysConfig struct {
	ID        int64     `json:"id,string" form:"id"`
	Sort      int       `json:"sort" form:"sort"`
	Type      string    `gorm:"index" json:"type" form:"type"`
	Name      string    `gorm:"index" json:"name" form:"name"`
	Value     string    `json:"value" form:"value"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysConfig) TableName() string {
	return "sys_config"
}

type SysUser struct {
	ID        int64     `json:"id,string" form:"id"`
	Username  string    `gorm:"size:150;index" json:"username" form:"username"`
	Email     string    `gorm:"size:254;uniqueIndex" json:"email" form:"email"`
	Password  string    `json:"-" form:"-"`
	Role      string    `gorm:"size:16;index" json:"role" form:"role"`
	Status    string    `gorm:"size:16" json:"status" form:"status"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysUser) TableName() string {
	return "sys_user"
}

// IsAdmin reports whether the account holds the admin role.
func (u *SysUser) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin)
}

type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `json:"opr_name"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
