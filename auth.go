package efdl

import (
	"encoding/base64"
	"net/url"
)

// Credentials holds an HTTP Basic username/password pair (RFC 7617).
type Credentials struct {
	User string
	Pass string
}

// Empty reports whether no credentials were supplied.
func (c Credentials) Empty() bool {
	return c.User == "" && c.Pass == ""
}

// header renders the "Authorization: Basic ..." header value.
func (c Credentials) header() string {
	raw := c.User + ":" + c.Pass
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// credentialsFromURL extracts user:pass@ credentials embedded in a URL,
// per spec.md §6. It returns the URL with userinfo stripped (so
// downstream requests don't leak it twice) and the extracted
// Credentials, which are empty if none were present.
func credentialsFromURL(u *url.URL) (*url.URL, Credentials) {
	if u.User == nil {
		return u, Credentials{}
	}
	pass, _ := u.User.Password()
	creds := Credentials{User: u.User.Username(), Pass: pass}

	stripped := *u
	stripped.User = nil
	return &stripped, creds
}
