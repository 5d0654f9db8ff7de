package models

import (
	"time"

	"github.com/lib/pq"
)

// Module is a competency category. Nesting is one level deep: a module with a
// ParentID never has children of its own.
type Module struct {
	ID          string  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string  `gorm:"column:name;type:text" json:"name"`
	Description string  `gorm:"column:description;type:text" json:"description,omitempty"`
	ParentID    *string `gorm:"column:parent_id;type:uuid;index" json:"parent_id,omitempty"`
	Icon        string  `gorm:"column:icon;type:text" json:"icon,omitempty"`
	Color       string  `gorm:"column:color;type:text" json:"color,omitempty"`
	SortOrder   int     `gorm:"column:sort_order;not null;default:0" json:"sort_order"`

	Children     []Module     `gorm:"-" json:"children,omitempty"`
	Competencies []Competency `gorm:"foreignKey:ModuleID" json:"competencies,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Module) TableName() string { return "modules" }

type Competency struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ModuleID    string         `gorm:"column:module_id;type:uuid;index" json:"module_id"`
	Name        string         `gorm:"column:name;type:text" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Keywords    pq.StringArray `gorm:"column:keywords;type:text[]" json:"keywords,omitempty"`
	SortOrder   int            `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Competency) TableName() string { return "competencies" }

type QualifierType string

const (
	QualifierSingleChoice   QualifierType = "single_choice"
	QualifierMultipleChoice QualifierType = "multiple_choice"
)

type Qualifier struct {
	ID          string            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string            `gorm:"column:name;type:text" json:"name"`
	Description string            `gorm:"column:description;type:text" json:"description,omitempty"`
	Type        QualifierType     `gorm:"column:type;type:text" json:"type"`
	SortOrder   int               `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	Options     []QualifierOption `gorm:"foreignKey:QualifierID;constraint:OnDelete:CASCADE" json:"options"`
	CreatedAt   time.Time         `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Qualifier) TableName() string { return "qualifiers" }

// MaxValue is the best score a single answer to q can reach.
func (q Qualifier) MaxValue() float64 {
	var max, sum float64
	for _, o := range q.Options {
		if o.Value > max {
			max = o.Value
		}
		if o.Value > 0 {
			sum += o.Value
		}
	}
	if q.Type == QualifierMultipleChoice {
		return sum
	}
	return max
}

type QualifierOption struct {
	ID          string  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	QualifierID string  `gorm:"column:qualifier_id;type:uuid;index" json:"qualifier_id"`
	Label       string  `gorm:"column:label;type:text" json:"label"`
	Value       float64 `gorm:"column:value;not null;default:0" json:"value"`
	SortOrder   int     `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
}

func (QualifierOption) TableName() string { return "qualifier_options" }
