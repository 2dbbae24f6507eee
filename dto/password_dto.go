package dto

// ChangePasswordDTO is the body of PUT /auth/me/password.
type ChangePasswordDTO struct {
	Current string `json:"currentPassword" binding:"required"`
	New     string `json:"newPassword" binding:"required,min=8,nefield=Current"`
}
