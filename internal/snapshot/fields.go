package snapshot

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Form is a group of fields submitted together to POST /api/{form}.
type Form string

const (
	FormNetwork Form = "network"
	FormArtNet  Form = "artnet"
	FormPixel   Form = "pixel"
	FormAP      Form = "ap"
)

// Forms lists every submittable form in display order.
var Forms = []Form{FormNetwork, FormArtNet, FormPixel, FormAP}

// Label is the name used in notifications.
func (f Form) Label() string {
	switch f {
	case FormNetwork:
		return "Network"
	case FormArtNet:
		return "Art-Net"
	case FormPixel:
		return "Pixel"
	case FormAP:
		return "Access point"
	default:
		return string(f)
	}
}

// ParseForm validates a form name.
func ParseForm(name string) (Form, error) {
	f := Form(strings.ToLower(strings.TrimSpace(name)))
	if !lo.Contains(Forms, f) {
		return "", fmt.Errorf("unknown form %q (expected one of %s)", name, strings.Join(lo.Map(Forms, func(f Form, _ int) string { return string(f) }), ", "))
	}
	return f, nil
}

// Field describes one known configuration key.
type Field struct {
	Key     string
	Kind    Kind
	Form    Form
	Label   string
	Default Value

	// Secret fields are masked in the dashboard and never cached.
	Secret bool
}

// ElementID is the kebab-case widget id for the field, e.g. "dhcp-enabled".
func (f Field) ElementID() string {
	return kebab(f.Key)
}

var registry = []Field{
	{Key: "deviceName", Kind: KindString, Form: FormNetwork, Label: "Device name", Default: String("ESP32-2DMX")},
	{Key: "dhcpEnabled", Kind: KindBool, Form: FormNetwork, Label: "DHCP", Default: Bool(true)},
	{Key: "staticIP", Kind: KindString, Form: FormNetwork, Label: "Static IP", Default: String("192.168.1.100")},
	{Key: "staticMask", Kind: KindString, Form: FormNetwork, Label: "Subnet mask", Default: String("255.255.255.0")},
	{Key: "staticGateway", Kind: KindString, Form: FormNetwork, Label: "Gateway", Default: String("192.168.1.1")},
	{Key: "artnetNet", Kind: KindInt, Form: FormArtNet, Label: "Net", Default: Int(0)},
	{Key: "artnetSubnet", Kind: KindInt, Form: FormArtNet, Label: "Subnet", Default: Int(0)},
	{Key: "artnetUniverse", Kind: KindInt, Form: FormArtNet, Label: "Universe", Default: Int(0)},
	{Key: "dmxStartAddress", Kind: KindInt, Form: FormArtNet, Label: "DMX start address", Default: Int(1)},
	{Key: "pixelCount", Kind: KindInt, Form: FormPixel, Label: "Pixel count", Default: Int(0)},
	{Key: "pixelType", Kind: KindInt, Form: FormPixel, Label: "Pixel type", Default: Int(0)},
	{Key: "pixelEnabled", Kind: KindBool, Form: FormPixel, Label: "Pixel output", Default: Bool(false)},
	{Key: "ssid", Kind: KindString, Form: FormAP, Label: "AP SSID", Default: String("")},
	{Key: "password", Kind: KindString, Form: FormAP, Label: "AP password", Default: String(""), Secret: true},
	{Key: "enabled", Kind: KindBool, Form: FormAP, Label: "AP enabled", Default: Bool(false)},
}

var byKey = lo.KeyBy(registry, func(f Field) string { return f.Key })

// Fields returns every known field in display order.
func Fields() []Field {
	out := make([]Field, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the field registered under key.
func Lookup(key string) (Field, bool) {
	f, ok := byKey[key]
	return f, ok
}

// LookupElement resolves a widget id such as "static-ip" back to its field.
func LookupElement(id string) (Field, bool) {
	return lo.Find(registry, func(f Field) bool { return f.ElementID() == id })
}

// FormFields returns the fields submitted by form.
func FormFields(form Form) []Field {
	return lo.Filter(registry, func(f Field, _ int) bool { return f.Form == form })
}

// Defaults returns a snapshot holding every field's default value.
func Defaults() *Snapshot {
	s := New()
	for _, f := range registry {
		s.Set(f.Key, f.Default)
	}
	return s
}

// Known returns a copy of s without unknown keys.
func Known(s *Snapshot) *Snapshot {
	out := New()
	s.Range(func(k string, v Value) bool {
		if _, ok := byKey[k]; ok {
			out.Set(k, v)
		}
		return true
	})
	return out
}

// Public returns a copy of s without secret fields.
func Public(s *Snapshot) *Snapshot {
	out := s.Clone()
	for _, f := range registry {
		if f.Secret {
			out.Delete(f.Key)
		}
	}
	return out
}

// CoerceField converts v to the field's kind.
func CoerceField(f Field, v Value) (Value, bool) {
	return v.Coerce(f.Kind)
}

// kebab converts a camelCase key to its widget id: "staticIP" -> "static-ip".
func kebab(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
