package inputval

import (
	"errors"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"parent@example.com", true},
		{"first.last+aba@example.co.uk", true},
		{"a@b.co", true},
		{"", false},
		{"   ", false},
		{"parent", false},
		{"parent@", false},
		{"@example.com", false},
		{".parent@example.com", false},
		{"parent..name@example.com", false},
		{"parent@example..com", false},
		{"Parent Name <parent@example.com>", false},
		{"par ent@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"(555) 123-4567", true},
		{"+1 555 123 4567", true},
		{"555-1234", true},
		{"123", false},
		{"call me", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidPhone(tt.phone); got != tt.want {
			t.Errorf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestIsValidURL(t *testing.T) {
	if !IsValidURL("https://www.youtube.com/watch?v=abc") {
		t.Fatal("expected https URL to be valid")
	}
	for _, bad := range []string{"", "youtube.com/watch", "javascript:alert(1)", "ftp://files.example"} {
		if IsValidURL(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}

func TestLength(t *testing.T) {
	if err := Length("name", "  ", 1, 100, "Name"); err == nil || err.Error() != "Name is required" {
		t.Fatalf("expected required error, got %v", err)
	}
	if err := Length("name", "A", 2, 100, "Name"); err == nil || err.Error() != "Name must be at least 2 characters" {
		t.Fatalf("expected min error, got %v", err)
	}
	if err := Length("message", "abcdef", 1, 5, "Message"); err == nil {
		t.Fatal("expected max error")
	}
	if err := Length("message", "héllo", 1, 5, "Message"); err != nil {
		t.Fatalf("expected multibyte string within bounds, got %v", err)
	}
}

func TestFieldErrorUnwrap(t *testing.T) {
	err := Field("familyEmail", "Please enter a valid email address")
	if !errors.Is(err, ErrInvalid) {
		t.Fatal("expected FieldError to match ErrInvalid")
	}
	fe, ok := AsFieldError(err)
	if !ok || fe.Field != "familyEmail" {
		t.Fatalf("unexpected field error %+v", fe)
	}
	if _, ok := AsFieldError(errors.New("other")); ok {
		t.Fatal("plain error should not be a FieldError")
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(`  Hello <script>alert(1)</script><b>there</b>  `)
	if got != "Hello there" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}

func TestPlainTextKeepsEntitiesLiteral(t *testing.T) {
	tests := map[string]string{
		"Blue Cross & Blue Shield": "Blue Cross & Blue Shield",
		"Children's Health":        "Children's Health",
		`Ages 2 < 5 "early"`:       `Ages 2 < 5 "early"`,
		"Tom &amp; Jerry":          "Tom & Jerry",
		"<i>Sean</i> O'Brien":      "Sean O'Brien",
	}
	for in, want := range tests {
		if got := PlainText(in); got != want {
			t.Fatalf("PlainText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"  Bright Futures ABA!! ", 0, "bright-futures-aba"},
		{"RBT -- Denver", 80, "rbt-denver"},
		{"abc-def", 4, "abc"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in, tt.max); got != tt.want {
			t.Errorf("Slugify(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
	if !IsValidSlug("bright-futures") {
		t.Error("expected bright-futures to be valid")
	}
	for _, bad := range []string{"Bright_Futures", "-x", ""} {
		if IsValidSlug(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}
