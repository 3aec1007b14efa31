package rag

import "testing"

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "pH ideal adalah **5.5-6.5** untuk NFT", "pH ideal adalah 5.5-6.5 untuk NFT"},
		{"italic", "gunakan *pH meter* digital", "gunakan pH meter digital"},
		{"underscore", "cek _dua kali_ sehari", "cek dua kali sehari"},
		{"double underscore", "ini __penting__ banget", "ini penting banget"},
		{"strikethrough", "~~salah~~ benar", "salah benar"},
		{"mixed", "**Penting:** cek *pH* dan _EC_ rutin", "Penting: cek pH dan EC rutin"},
		{"clean text untouched", "pH ideal 5.5 sampai 6.5", "pH ideal 5.5 sampai 6.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdown(tt.in); got != tt.want {
				t.Errorf("StripMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripMarkdown_Idempotent(t *testing.T) {
	inputs := []string{
		"**bold** dan *italic* dan _underscore_",
		"__double__ dan ~~strike~~",
		"tanpa formatting sama sekali",
	}
	for _, in := range inputs {
		once := StripMarkdown(in)
		twice := StripMarkdown(once)
		if once != twice {
			t.Errorf("StripMarkdown not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}
