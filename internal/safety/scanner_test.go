package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sentinal-safety/internal/domain/message"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		text string
		want message.SafetyFlags
	}{
		{
			name: "plain phone number",
			text: "call me at 9876543210",
			want: message.SafetyFlags{ContainsPhone: true},
		},
		{
			name: "international phone with separators",
			text: "my number is +91 98765-43210",
			want: message.SafetyFlags{ContainsPhone: true},
		},
		{
			name: "phone with parentheses and dots",
			text: "(022) 555.0199 after 6",
			want: message.SafetyFlags{ContainsPhone: true},
		},
		{
			name: "email address",
			text: "reach me at a@b.com",
			want: message.SafetyFlags{ContainsEmail: true},
		},
		{
			name: "email with trailing punctuation",
			text: "write to priya.sharma@example.co.in.",
			want: message.SafetyFlags{ContainsEmail: true},
		},
		{
			name: "upi handle is not an email",
			text: "pay via john@upi",
			want: message.SafetyFlags{ContainsPaymentHandle: true},
		},
		{
			name: "bank upi suffix",
			text: "send it to ramesh.k@okaxis please",
			want: message.SafetyFlags{ContainsPaymentHandle: true},
		},
		{
			name: "www link",
			text: "visit www.example.com",
			want: message.SafetyFlags{ContainsExternalLink: true},
		},
		{
			name: "https link",
			text: "see HTTPS://example.org/profile?id=1",
			want: message.SafetyFlags{ContainsExternalLink: true},
		},
		{
			name: "full-width phone digits",
			text: "ｍｙ ｎｕｍｂｅｒ ９８７６５４３２１０",
			want: message.SafetyFlags{ContainsPhone: true},
		},
		{
			name: "full-width at sign",
			text: "priya＠example．com",
			want: message.SafetyFlags{ContainsEmail: true},
		},
		{
			name: "normal message",
			text: "just a normal message",
			want: message.SafetyFlags{},
		},
		{
			name: "short numbers are not phones",
			text: "I am 29 and live in sector 62",
			want: message.SafetyFlags{},
		},
		{
			name: "iso date and time",
			text: "interview on 2024-01-15 10:30 at the office",
			want: message.SafetyFlags{},
		},
		{
			name: "spaced day month year",
			text: "meet 12 05 2024",
			want: message.SafetyFlags{},
		},
		{
			name: "dotted date",
			text: "joining from 15.01.2024",
			want: message.SafetyFlags{},
		},
		{
			name: "phone after a date",
			text: "on 12 05 2024 call 98765 43210",
			want: message.SafetyFlags{ContainsPhone: true},
		},
		{
			name: "empty text",
			text: "   ",
			want: message.SafetyFlags{},
		},
		{
			name: "several detectors at once",
			text: "call 9876543210 or mail a@b.com or pay john@paytm, details on www.x.io",
			want: message.SafetyFlags{
				ContainsPhone:         true,
				ContainsEmail:         true,
				ContainsPaymentHandle: true,
				ContainsExternalLink:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Any(), got.Any())
		})
	}
}

func TestDateLike(t *testing.T) {
	assert.True(t, dateLike([]string{"2024", "01", "15", "10"}))
	assert.True(t, dateLike([]string{"12", "05", "2024"}))
	assert.False(t, dateLike([]string{"91", "98765", "43210"}))
	assert.False(t, dateLike([]string{"022", "555", "0199"}))
	assert.False(t, dateLike([]string{"2024", "01", "15", "9876"}))
	assert.False(t, dateLike([]string{"9876543210"}))
}

func TestClassifyDomain(t *testing.T) {
	assert.Equal(t, domainEmail, classifyDomain("gmail.com"))
	assert.Equal(t, domainPayment, classifyDomain("upi"))
	assert.Equal(t, domainPayment, classifyDomain("ybl"))
	assert.Equal(t, domainUnknown, classifyDomain("host.1"))
	assert.Equal(t, domainUnknown, classifyDomain(""))
}
