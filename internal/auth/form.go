package auth

import (
	"fmt"
	"io"
	"net/url"

	"golang.org/x/net/html"
)

const loginFormID = "kc-form-login"

// LoginData are the Keycloak session parameters embedded in the login form.
type LoginData struct {
	SessionCode string
	Execution   string
	TabID       string
}

// ExtractLoginData pulls the session parameters out of the login page served
// by the OpenID authorization endpoint.
func ExtractLoginData(page io.Reader) (LoginData, error) {
	doc, err := html.Parse(page)
	if err != nil {
		return LoginData{}, fmt.Errorf("%w: unable to parse login page: %v", ErrInvalidResponse, err)
	}
	form := findByID(doc, loginFormID)
	if form == nil {
		return LoginData{}, fmt.Errorf("%w: unable to parse login page", ErrInvalidResponse)
	}
	action, ok := attr(form, "action")
	if !ok {
		return LoginData{}, fmt.Errorf("%w: unable to extract login url", ErrInvalidResponse)
	}
	u, err := url.Parse(action)
	if err != nil {
		return LoginData{}, fmt.Errorf("%w: unable to parse login url", ErrInvalidResponse)
	}
	q := u.Query()
	var out LoginData
	for key, dst := range map[string]*string{
		"session_code": &out.SessionCode,
		"execution":    &out.Execution,
		"tab_id":       &out.TabID,
	} {
		v, ok := q[key]
		if !ok || len(v) == 0 {
			return LoginData{}, fmt.Errorf("%w: unable to parse login url", ErrInvalidResponse)
		}
		*dst = v[0]
	}
	return out, nil
}

// findByID does a depth-first search for the element with the given id.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := attr(n, "id"); ok && v == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
