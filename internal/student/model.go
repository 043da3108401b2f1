package student

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	keyID        = "id"
	keyLogin     = "login"
	keyPassword  = "password"
	keyFullName  = "fullName"
	keyPhone     = "phone"
	keyStudentID = "studentId"
)

// Student is a persisted student account. Keys a record carries beyond the
// typed fields live in Extra and are written back verbatim.
type Student struct {
	ID        int                        `json:"id"`
	Login     string                     `json:"login"`
	Password  string                     `json:"password"`
	FullName  string                     `json:"fullName"`
	Phone     string                     `json:"phone"`
	StudentID string                     `json:"studentId"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type textField struct {
	key   string
	value *string
}

func (s *Student) textFields() []textField {
	return []textField{
		{keyLogin, &s.Login},
		{keyPassword, &s.Password},
		{keyFullName, &s.FullName},
		{keyPhone, &s.Phone},
		{keyStudentID, &s.StudentID},
	}
}

// GivenName returns the first whitespace-delimited token of FullName.
func (s Student) GivenName() string {
	parts := strings.Fields(s.FullName)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// Surname returns every token of FullName after the first, joined by single spaces.
func (s Student) Surname() string {
	parts := strings.Fields(s.FullName)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

// MarshalJSON writes the typed fields first, in a fixed order, followed by the
// extra keys sorted by name.
func (s Student) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"%s":%d`, keyID, s.ID)
	for _, f := range s.textFields() {
		value, err := json.Marshal(*f.value)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"` + f.key + `":`)
		buf.Write(value)
	}

	keys := make([]string, 0, len(s.Extra))
	for key, raw := range s.Extra {
		if isTypedKey(key) || len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(s.Extra[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any JSON scalar for the text fields and keeps every
// unknown key in Extra.
func (s *Student) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	var out Student
	texts := out.textFields()
	for key, raw := range fields {
		if key == keyID {
			if isNull(raw) {
				continue
			}
			if err := json.Unmarshal(raw, &out.ID); err != nil {
				return fmt.Errorf("%s: %w", keyID, err)
			}
			continue
		}
		if target := lookupText(texts, key); target != nil {
			text, err := scalarText(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*target = text
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = compact(raw)
	}
	*s = out
	return nil
}

// Patch carries a partial record. Nil fields are left untouched on update;
// Extra keys are added or replaced one by one.
type Patch struct {
	ID        *int                       `json:"id,omitempty"`
	Login     *string                    `json:"login,omitempty"`
	Password  *string                    `json:"password,omitempty"`
	FullName  *string                    `json:"fullName,omitempty"`
	Phone     *string                    `json:"phone,omitempty"`
	StudentID *string                    `json:"studentId,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

func (p *Patch) textField(key string) **string {
	switch key {
	case keyLogin:
		return &p.Login
	case keyPassword:
		return &p.Password
	case keyFullName:
		return &p.FullName
	case keyPhone:
		return &p.Phone
	case keyStudentID:
		return &p.StudentID
	}
	return nil
}

// UnmarshalJSON accepts any JSON scalar for the text fields and keeps every
// unknown key in Extra. A non-integer id is rejected.
func (p *Patch) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	var out Patch
	for key, raw := range fields {
		if key == keyID {
			if isNull(raw) {
				continue
			}
			var id int
			if err := json.Unmarshal(raw, &id); err != nil {
				return fmt.Errorf("%s: %w", keyID, err)
			}
			out.ID = &id
			continue
		}
		if target := out.textField(key); target != nil {
			text, err := scalarText(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*target = &text
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = compact(raw)
	}
	*p = out
	return nil
}

// Record builds a new record from the supplied fields. ID is ignored; the
// store assigns it.
func (p Patch) Record() Student {
	var s Student
	p.merge(&s)
	return s
}

// applyTo merges the supplied fields over s. The identifier is immutable: a
// patch carrying a different id is rejected before anything changes.
func (p Patch) applyTo(s *Student) error {
	if p.ID != nil && *p.ID != s.ID {
		return ErrImmutableID
	}
	p.merge(s)
	return nil
}

func (p Patch) merge(s *Student) {
	if p.Login != nil {
		s.Login = *p.Login
	}
	if p.Password != nil {
		s.Password = *p.Password
	}
	if p.FullName != nil {
		s.FullName = *p.FullName
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.StudentID != nil {
		s.StudentID = *p.StudentID
	}
	if len(p.Extra) == 0 {
		return
	}
	// Copy so records handed out earlier keep their own map.
	extra := make(map[string]json.RawMessage, len(s.Extra)+len(p.Extra))
	for k, v := range s.Extra {
		extra[k] = v
	}
	for k, v := range p.Extra {
		if !isTypedKey(k) {
			extra[k] = v
		}
	}
	s.Extra = extra
}

// RegisterInput is the explicit field set accepted by registration.
type RegisterInput struct {
	Login     string
	Password  string
	FullName  string
	Phone     string
	StudentID string
}

func (in RegisterInput) record() Student {
	return Student{
		Login:     in.Login,
		Password:  in.Password,
		FullName:  in.FullName,
		Phone:     in.Phone,
		StudentID: in.StudentID,
	}
}

// scalar is a text value that also accepts JSON numbers and booleans.
type scalar string

func (v *scalar) UnmarshalJSON(b []byte) error {
	text, err := scalarText(b)
	if err != nil {
		return err
	}
	*v = scalar(text)
	return nil
}

// scalarText renders a JSON scalar as text: strings as-is, numbers and
// booleans by their literal, null as empty.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case isNull(raw):
		return "", nil
	case raw[0] == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case raw[0] == '{' || raw[0] == '[':
		return "", fmt.Errorf("expected a string, number or boolean")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	return string(raw), nil
}

// compact strips insignificant whitespace so a value reads back byte-identical
// however the file around it was indented.
func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func isTypedKey(key string) bool {
	switch key {
	case keyID, keyLogin, keyPassword, keyFullName, keyPhone, keyStudentID:
		return true
	}
	return false
}

func lookupText(fields []textField, key string) *string {
	for _, f := range fields {
		if f.key == key {
			return f.value
		}
	}
	return nil
}
