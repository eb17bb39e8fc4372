package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	StudentID string `validate:"studentid"`
	IFSC      string `validate:"omitempty,ifsc"`
	Mobile    string `validate:"omitempty,mobile"`
	Password  string `validate:"omitempty,password"`
}

func TestRegisterRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterRules(v))

	tests := []struct {
		name  string
		input sample
		ok    bool
	}{
		{"minimal", sample{StudentID: "S1"}, true},
		{"full", sample{StudentID: "2021/CSE-042", IFSC: "SBIN0001234", Mobile: "+919876543210", Password: "abc12345"}, true},
		{"bad student id", sample{StudentID: "-x"}, false},
		{"bad ifsc", sample{StudentID: "S1", IFSC: "SBIN1001234"}, false},
		{"bad mobile", sample{StudentID: "S1", Mobile: "12ab"}, false},
		{"weak password", sample{StudentID: "S1", Password: "abcdefgh"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, StrongPassword("passw0rd"))
	assert.False(t, StrongPassword("short1"))
	assert.False(t, StrongPassword("12345678"))
}
