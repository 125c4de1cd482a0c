package dto

// UpsertEntityTypeConfigRequest is the admin payload for creating or replacing a configuration.
type UpsertEntityTypeConfigRequest struct {
	IsActive               bool     `json:"isActive"`
	RecipientEmailPath     string   `json:"recipientEmailPath" validate:"required,max=255"`
	RecipientNamePath      string   `json:"recipientNamePath" validate:"omitempty,max=255"`
	RecipientRefPath       string   `json:"recipientRefPath" validate:"omitempty,max=255"`
	DefaultExpirationDays  int      `json:"defaultExpirationDays" validate:"required,min=1,max=365"`
	MaxFileSizeBytes       int64    `json:"maxFileSizeBytes" validate:"required,min=1"`
	MaxFilesPerUpload      int      `json:"maxFilesPerUpload" validate:"required,min=1,max=100"`
	AllowedExtensions      []string `json:"allowedExtensions" validate:"required,min=1,dive,required,max=16"`
	QuickActionLabel       string   `json:"quickActionLabel" validate:"omitempty,max=120"`
	NotificationTemplateID string   `json:"notificationTemplateId" validate:"omitempty,max=120"`
}

// SetEntityTypeActiveRequest toggles a configuration.
type SetEntityTypeActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}
