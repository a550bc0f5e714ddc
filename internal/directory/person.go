package directory

import "strings"

// Person is a resolved directory identity. It is transient state: only the
// login key is ever written back into the persisted approver list.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Login       string `json:"login"`
}

// Fallback builds a placeholder Person from a raw stored key, used when the
// directory cannot resolve the key (the row still renders something sensible).
func Fallback(key string) Person {
	key = strings.TrimSpace(key)
	return Person{DisplayName: key, Login: key}
}

func (p Person) Label() string {
	name := strings.TrimSpace(p.DisplayName)
	login := strings.TrimSpace(p.Login)
	if name == "" {
		return login
	}
	if login == "" || strings.EqualFold(name, login) {
		return name
	}
	return name + " <" + login + ">"
}
