package models

// UserContext - информация о вызывающем, извлеченная из JWT токена.
// Аутентификация внешняя: ядро только проверяет токен и роль.
type UserContext struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Роли пользователей
const (
	RoleAdmin  = "ADMIN"
	RoleQuant  = "QUANT"
	RoleViewer = "VIEWER"
)

// CanKillSwitch - только ADMIN может дернуть kill switch
func (u *UserContext) CanKillSwitch() bool {
	return u.Role == RoleAdmin
}

// CanEditMandates - правка лимитов доступна ADMIN и QUANT
func (u *UserContext) CanEditMandates() bool {
	return u.Role == RoleAdmin || u.Role == RoleQuant
}
