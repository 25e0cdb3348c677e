package model

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt 一次提交记录，创建后不再修改
type Attempt struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TestID      uint   `gorm:"not null;index" json:"testId"`
	StudentName string `gorm:"size:255;not null;index" json:"studentName"`
	// 提交时测验的标题与 slug，证书文件名依赖它们
	TestTitle string            `gorm:"size:255" json:"testTitle"`
	TestSlug  string            `gorm:"size:255" json:"testSlug"`
	Score     int               `gorm:"not null" json:"score"`
	Passed    bool              `gorm:"not null;default:false" json:"passed"`
	Answers   datatypes.JSONMap `json:"answers,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"createdAt"`
	Test      *Test             `gorm:"foreignKey:TestID" json:"test,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Status 导出与结果页使用
func (a *Attempt) Status() string {
	if a.Passed {
		return "PASS"
	}
	return "FAIL"
}
