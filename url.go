package lambdatrace

import "net/url"

// safeURL removes sensitive information from a URL before it is recorded:
// user information, query parameters, and fragments never appear in the
// request.uri attribute.
func safeURL(u *url.URL) string {
	if nil == u {
		return ""
	}
	if "" != u.Opaque {
		// Cannot be safely redacted.
		return ""
	}
	ur := url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   u.Path,
	}
	return ur.String()
}
