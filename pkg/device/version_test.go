package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "2.2.0", want: Version{2, 2, 0}},
		{in: "1.0.7", want: Version{1, 0, 7}},
		{in: "1.3", want: Version{1, 3, 0}},
		{in: "3", want: Version{3, 0, 0}},
		{in: "1.2.3.4", wantErr: true},
		{in: "1.x.3", wantErr: true},
		{in: "300.0.0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVersion(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "2.0.5", Version{2, 0, 5}.String())
	assert.Equal(t, "0.0.0", Version{}.String())
}

func TestVersionLess(t *testing.T) {
	assert.True(t, Version{1, 9, 9}.Less(Version{2, 0, 0}))
	assert.True(t, Version{2, 0, 4}.Less(Version{2, 0, 5}))
	assert.False(t, Version{2, 0, 5}.Less(Version{2, 0, 5}))
	assert.False(t, Version{2, 1, 0}.Less(Version{2, 0, 5}))
}

func TestVersionIsZero(t *testing.T) {
	assert.True(t, Version{}.IsZero())
	assert.False(t, Version{0, 0, 1}.IsZero())
}
