package candihelper

import (
	"net/url"
	"strings"
)

// MaskingPasswordURL replace password part of url with xxxxx
func MaskingPasswordURL(stringURL string) string {
	u, err := url.Parse(stringURL)
	if err != nil || u.User == nil {
		return stringURL
	}
	pass, ok := u.User.Password()
	if pass == "" || !ok {
		return stringURL
	}

	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}

// SplitLines split text by newline, carriage returns are dropped
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
