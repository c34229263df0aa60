package db

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used by GormStore.
type clientModel struct {
	ID                   string `gorm:"primaryKey"`
	Name                 string `gorm:"size:255;not null"`
	Email                string `gorm:"size:255;not null;uniqueIndex"`
	Company              string `gorm:"size:255"`
	Website              string `gorm:"size:500"`
	ServiceOffering      datatypes.JSON
	ICPProfile           datatypes.JSON
	PositioningStatement string `gorm:"type:text;not null"`
	ContentPreferences   datatypes.JSON
	Constraints          datatypes.JSON
	VoiceExamples        datatypes.JSON
	ProofAssets          datatypes.JSON
	AdditionalNotes      string `gorm:"type:text"`
	Status               string `gorm:"size:50;not null"`
	CreatedAt            time.Time `gorm:"not null;index:idx_clients_created,priority:1"`
	UpdatedAt            time.Time `gorm:"not null"`

	Runs []runModel `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
}

func (clientModel) TableName() string { return "clients" }

type runModel struct {
	ID                    string `gorm:"primaryKey"`
	ClientID              string `gorm:"not null;index:idx_runs_client_created,priority:1"`
	Status                string `gorm:"size:50;not null"`
	Stage                 string `gorm:"size:100;not null"`
	InputData             datatypes.JSON
	DraftContent          datatypes.JSON
	QualityScore          *float64
	ProcessingTimeSeconds *int
	AIModelCalls          datatypes.JSON `gorm:"column:ai_model_calls"`
	ErrorMessage          *string        `gorm:"type:text"`
	CreatedAt             time.Time      `gorm:"not null;index:idx_runs_client_created,priority:2"`
	CompletedAt           *time.Time
}

func (runModel) TableName() string { return "content_pipeline_runs" }
