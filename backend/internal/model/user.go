package model

// 角色常量，与身份服务签发的 role 声明一致
const (
	RoleStudent             = "student"
	RoleProfessor           = "professor"
	RoleGraduationAssistant = "graduation_assistant"
	RoleAdmin               = "admin"
)

// IsSupervisorRole 可担任论文指导的角色
func IsSupervisorRole(role string) bool {
	return role == RoleProfessor || role == RoleGraduationAssistant
}

// IsKnownRole 是否为已知角色
func IsKnownRole(role string) bool {
	switch role {
	case RoleStudent, RoleProfessor, RoleGraduationAssistant, RoleAdmin:
		return true
	}
	return false
}

// User 用户表，对应 users
// 身份服务中用户的本地投影，由认证中间件按 JWT 声明同步
type User struct {
	UserID   string `gorm:"type:uuid;primaryKey"         json:"user_id"`
	Name     string `gorm:"type:varchar(100);not null"   json:"name"`
	Email    string `gorm:"type:varchar(255);not null"   json:"email"`
	Role     string `gorm:"type:varchar(30);not null"    json:"role"`
	IsActive bool   `gorm:"not null"                     json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
