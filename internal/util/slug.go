package util

import (
	"regexp"
	"strconv"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify 转小写，非字母数字串替换为单个连字符，去掉首尾连字符，空则为 "test"
func Slugify(title string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return DefaultSlug
	}
	return s
}

// SlugCandidate 第 n 个候选：n<=1 为 base，否则 base-n
func SlugCandidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// UniqueSlug 依次尝试 base, base-2, base-3 ... 直到 isTaken 返回 false
func UniqueSlug(base string, isTaken func(string) (bool, error)) (string, error) {
	for n := 1; ; n++ {
		candidate := SlugCandidate(base, n)
		taken, err := isTaken(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}
