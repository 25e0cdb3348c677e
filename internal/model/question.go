package model

import "strings"

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MCQ"
	QuestionTrueFalse      QuestionType = "TF"
)

func (t QuestionType) Valid() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// OptionLetter 选项字母，只允许 A-D
type OptionLetter string

const (
	OptionA OptionLetter = "A"
	OptionB OptionLetter = "B"
	OptionC OptionLetter = "C"
	OptionD OptionLetter = "D"
)

// OptionLetters 按展示顺序排列
var OptionLetters = [...]OptionLetter{OptionA, OptionB, OptionC, OptionD}

// ParseOptionLetter 忽略大小写与首尾空白
func ParseOptionLetter(s string) (OptionLetter, bool) {
	switch l := OptionLetter(strings.ToUpper(strings.TrimSpace(s))); l {
	case OptionA, OptionB, OptionC, OptionD:
		return l, true
	}
	return "", false
}

const (
	TrueText  = "True"
	FalseText = "False"
)

type Question struct {
	ID       uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	TestID   uint         `gorm:"not null;index" json:"testId"`
	Position int          `gorm:"not null;default:0" json:"position"`
	Type     QuestionType `gorm:"column:qtype;size:8;not null;default:MCQ" json:"type"`
	Prompt   string       `gorm:"type:text;not null" json:"prompt"`
	A        string       `gorm:"type:text;not null" json:"a"`
	B        string       `gorm:"type:text;not null" json:"b"`
	C        string       `gorm:"type:text;not null" json:"c"`
	D        string       `gorm:"type:text;not null" json:"d"`
	Correct  OptionLetter `gorm:"size:1;not null" json:"correct"`
}

func (Question) TableName() string {
	return "questions"
}

// Option 返回字母对应的选项文本，未知字母返回空串
func (q *Question) Option(l OptionLetter) string {
	switch l {
	case OptionA:
		return q.A
	case OptionB:
		return q.B
	case OptionC:
		return q.C
	case OptionD:
		return q.D
	}
	return ""
}

type QuestionOption struct {
	Letter OptionLetter
	Text   string
}

// Options 返回非空选项，判断题只有 A/B
func (q *Question) Options() []QuestionOption {
	opts := make([]QuestionOption, 0, len(OptionLetters))
	for _, l := range OptionLetters {
		if text := q.Option(l); text != "" {
			opts = append(opts, QuestionOption{Letter: l, Text: text})
		}
	}
	return opts
}

// HasOption 字母是否对应一个非空选项
func (q *Question) HasOption(l OptionLetter) bool {
	return q.Option(l) != ""
}
