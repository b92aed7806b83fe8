package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestAlphaNumUnderValidation(t *testing.T) {
	type subject struct {
		Name string `json:"name" validate:"alphanum_"`
	}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "letters and digits", value: "Grade7"},
		{name: "underscore", value: "class_7b"},
		{name: "space", value: "Creative Arts"},
		{name: "punctuation rejected", value: "Arts & Crafts!", wantErr: true},
		{name: "dash rejected", value: "co-scholastic", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate.Struct(subject{Name: tt.value})
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate.Struct(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}

	// the translated message promises exactly what the validator accepts
	err := Validate.Struct(subject{Name: "no!"})
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("Validate.Struct() error = %v, want validator.ValidationErrors", err)
	}
	if got := verrs[0].Translate(Translator); got != alphaNumUnderText {
		t.Errorf("translated message = %q, want %q", got, alphaNumUnderText)
	}
}
