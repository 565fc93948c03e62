// Package formfield guesses what a free-form intake field holds from its label.
package formfield

import (
	"regexp"
	"sort"
	"strings"

	"github.com/phenrril/orderdesk/internal/domain"
)

type FieldType string

const (
	Text     FieldType = "text"
	Email    FieldType = "email"
	Phone    FieldType = "phone"
	Address  FieldType = "address"
	City     FieldType = "city"
	Name     FieldType = "name"
	Quantity FieldType = "quantity"
	Date     FieldType = "date"
	Image    FieldType = "image"
	Notes    FieldType = "notes"
)

type rule struct {
	pattern *regexp.Regexp
	typ     FieldType
}

// First match wins, so the more specific labels go first
// ("email address" is an email, "delivery address" an address).
var rules = []rule{
	{regexp.MustCompile(`(?i)e-?mail|correo`), Email},
	{regexp.MustCompile(`(?i)phone|mobile|cell|whats ?app|contact (no|number)|tel[eé]fono|celular`), Phone},
	{regexp.MustCompile(`(?i)address|street|direcci[oó]n|shipping to|deliver(y)? to`), Address},
	{regexp.MustCompile(`(?i)\bcity\b|town|district|ciudad|localidad`), City},
	{regexp.MustCompile(`(?i)\bname\b|full ?name|nombre|customer`), Name},
	{regexp.MustCompile(`(?i)qty|quantity|cantidad|how many`), Quantity},
	{regexp.MustCompile(`(?i)\bdate\b|\bday\b|fecha|when`), Date},
	{regexp.MustCompile(`(?i)image|photo|picture|receipt|screenshot|proof|comprobante`), Image},
	{regexp.MustCompile(`(?i)note|comment|remark|instruction|message|observaci`), Notes},
}

// Infer returns the field type for a form label, Text when nothing matches.
func Infer(label string) FieldType {
	label = strings.TrimSpace(label)
	if label == "" {
		return Text
	}
	for _, r := range rules {
		if r.pattern.MatchString(label) {
			return r.typ
		}
	}
	return Text
}

// ExtractCustomer picks the customer's contact details out of submitted form
// data. Labels are visited in sorted order so the first matching field of each
// type wins deterministically. Empty values never overwrite.
func ExtractCustomer(formData map[string]string) domain.Customer {
	labels := make([]string, 0, len(formData))
	for k := range formData {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	var c domain.Customer
	var city string
	for _, label := range labels {
		v := strings.TrimSpace(formData[label])
		if v == "" {
			continue
		}
		switch Infer(label) {
		case Name:
			if c.Name == "" {
				c.Name = v
			}
		case Phone:
			if c.Phone == "" {
				c.Phone = NormalizePhone(v)
			}
		case Email:
			if c.Email == "" {
				c.Email = strings.ToLower(v)
			}
		case Address:
			if c.Address == "" {
				c.Address = v
			}
		case City:
			if city == "" {
				city = v
			}
		}
	}
	switch {
	case city == "":
	case c.Address == "":
		c.Address = city
	case !strings.Contains(strings.ToLower(c.Address), strings.ToLower(city)):
		c.Address += ", " + city
	}
	return c
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
