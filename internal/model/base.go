package model

import (
	"time"
)

// BaseModel 题库相关表使用物理删除，删除测试时级联清理题目与作答记录
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
