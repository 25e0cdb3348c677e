package controller

import (
	"fmt"
	"net/url"
)

func testPath(slug, action string) string {
	return "/tests/" + url.PathEscape(slug) + "/" + action
}

func certificatePath(slug string, attemptID uint) string {
	return fmt.Sprintf("/tests/%s/certificate/%d", url.PathEscape(slug), attemptID)
}
