package errors

import (
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "app", false},
		{"valid camel", "vendorStyles", false},
		{"valid with dash", "vendor-scripts", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"slash", "vendor/styles", true},
		{"backslash", "vendor\\styles", true},
		{"newline", "app\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName("chunk", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidConfig) {
				t.Errorf("ValidateName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidConfig)
			}
		})
	}
}

func TestValidateModuleID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"src/index.tsx", false},
		{"node_modules/bootstrap/scss/bootstrap.scss", false},
		{"", true},
		{"src/\x00index.tsx", true},
	}

	for _, tt := range tests {
		if err := ValidateModuleID(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateModuleID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "app_1a2b.js", false},
		{"nested", "css/app_1a2b.css", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../app.js", true},
		{"backslash", "css\\app.css", true},
		{"control", "app\x01.js", true},
		{"too long", string(make([]byte, 600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePath(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTemplate(t *testing.T) {
	allowed := []string{"chunkName", "fingerprint", "ext"}
	tests := []struct {
		tmpl    string
		wantErr bool
	}{
		{"{chunkName}_{fingerprint}.{ext}", false},
		{"appBundle_{fingerprint:8}.js", false},
		{"static.js", false},

		{"", true},
		{"{name}_{hash}.js", true},
		{"{chunkName.js", true},
	}

	for _, tt := range tests {
		err := ValidateTemplate(tt.tmpl, allowed...)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTemplate(%q) error = %v, wantErr %v", tt.tmpl, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeInvalidTemplate) {
			t.Errorf("ValidateTemplate(%q) code = %v", tt.tmpl, GetCode(err))
		}
	}
}
