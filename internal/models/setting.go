package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SettingLogoURL      = "logo_url"
	SettingCompanyName  = "company_name"
	SettingPrimaryColor = "primary_color"
	SettingWelcomeText  = "welcome_text"
	SettingDefaultScore = "default_expected_score"
)

// SettingKeys lists the keys PUT /api/settings accepts.
var SettingKeys = map[string]bool{
	SettingLogoURL:      true,
	SettingCompanyName:  true,
	SettingPrimaryColor: true,
	SettingWelcomeText:  true,
	SettingDefaultScore: true,
}

type AppSetting struct {
	Key       string         `gorm:"column:key;type:text;primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value;type:jsonb" json:"value"`
	UpdatedBy string         `gorm:"column:updated_by;type:uuid" json:"updated_by,omitempty"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (AppSetting) TableName() string { return "app_settings" }

type FileKind string

const (
	FileAvatar FileKind = "avatar"
	FileLogo   FileKind = "logo"
)

type StoredFile struct {
	ID       string   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID  string   `gorm:"column:owner_id;type:uuid;index" json:"owner_id"`
	Kind     FileKind `gorm:"column:kind;type:text" json:"kind"`
	FileName string   `gorm:"column:file_name;type:text" json:"file_name"`
	FilePath string   `gorm:"column:file_path;type:text" json:"file_path"`
	FileSize int      `gorm:"column:file_size;type:integer" json:"file_size"`
	MimeType string   `gorm:"column:mime_type;type:text" json:"mime_type"`

	UploadAt time.Time `gorm:"column:upload_at;type:timestamptz" json:"upload_at"`
}

func (StoredFile) TableName() string { return "stored_files" }
