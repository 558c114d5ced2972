package entity

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskID(t *testing.T) {
	t.Parallel()

	valid := "0192f0c1-7a3b-7c4d-8e5f-0123456789ab"

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "canonical", input: valid, want: valid},
		{name: "uppercase is normalized", input: strings.ToUpper(valid), want: valid},
		{name: "empty", input: "", wantErr: true},
		{name: "numeric id", input: "42", wantErr: true},
		{name: "braced form", input: "{" + valid + "}", wantErr: true},
		{name: "urn form", input: "urn:uuid:" + valid, wantErr: true},
		{name: "no hyphens", input: strings.ReplaceAll(valid, "-", ""), wantErr: true},
		{name: "bad hex", input: "zz92f0c1-7a3b-7c4d-8e5f-0123456789ab", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTaskID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNewTaskID は生成されたIDがUUIDv7で、生成順に並ぶことを検証します。
func TestNewTaskID(t *testing.T) {
	t.Parallel()

	prev := ""
	for i := 0; i < 50; i++ {
		id, err := NewTaskID()
		require.NoError(t, err)

		parsed, err := ParseTaskID(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), uuid.MustParse(parsed).Version())
		assert.Greater(t, id, prev)
		prev = id
	}
}
