package model

// Test 一份测验，学生通过 slug 访问
type Test struct {
	BaseModel
	Title     string     `gorm:"size:255;not null" json:"title"`
	Slug      string     `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	PassScore int        `gorm:"not null" json:"passScore"`
	Questions []Question `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Attempts  []Attempt  `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Test) TableName() string {
	return "tests"
}
