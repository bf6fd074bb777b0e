package telemetry

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		tag  string
		want Kind
	}{
		{"IGN", KindIgnitionOn},
		{"ign", KindIgnitionOn},
		{"IGF", KindIgnitionOff},
		{"IDL", KindIdle},
		{"PRK", KindPark},
		{"UPD", KindUpdate},
		{"", KindUpdate},
		{" POS ", KindUpdate},
		{"XYZ", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.tag))
		})
	}
}

func TestKindJSON(t *testing.T) {
	var s Sample
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","cmd":"IGF","statusOverride":"Start"}`), &s))
	assert.Equal(t, KindIgnitionOff, s.Command)
	assert.Equal(t, OverrideStart, s.Override)

	out, err := json.Marshal(s.Command)
	require.NoError(t, err)
	assert.Equal(t, `"IGF"`, string(out))
}

func TestKindMissingTag(t *testing.T) {
	var s Sample
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","s":12}`), &s))
	assert.Equal(t, ParseKind(""), s.Command)
	assert.Equal(t, KindUpdate, s.Command)
	assert.Equal(t, KindUpdate, Sample{}.Command)
}

func TestParseOverride(t *testing.T) {
	o, ok := ParseOverride("Start")
	assert.True(t, ok)
	assert.Equal(t, OverrideStart, o)

	o, ok = ParseOverride("stop")
	assert.True(t, ok)
	assert.Equal(t, OverrideStop, o)

	o, ok = ParseOverride("Towed")
	assert.False(t, ok)
	assert.Equal(t, OverrideNone, o)
}

func TestPositionValid(t *testing.T) {
	assert.True(t, Position{Lat: 37.77, Lon: -122.41}.Valid())
	assert.False(t, Position{}.Valid(), "(0,0) is the no-fix placeholder")
	assert.False(t, Position{Lat: 91, Lon: 0.5}.Valid())
	assert.False(t, Position{Lat: 10, Lon: 181}.Valid())
	assert.False(t, Position{Lat: math.NaN(), Lon: 1}.Valid())
}

func TestSampleOptionalFields(t *testing.T) {
	s := Sample{ID: "x", Timestamp: time.Now()}
	assert.False(t, s.HasOdometer())
	assert.False(t, s.HasPosition())

	s.OdometerMiles = Float(math.NaN())
	assert.False(t, s.HasOdometer(), "NaN must read as missing")

	s.OdometerMiles = Float(0)
	assert.True(t, s.HasOdometer(), "zero is a real reading")
}

func TestStatusPrecedence(t *testing.T) {
	st, ok := FromOverride(OverrideStop)
	require.True(t, ok)
	assert.True(t, st.Overridden)
	assert.True(t, st.IsBoundary())

	_, ok = FromOverride(OverrideNone)
	assert.False(t, ok)

	assert.False(t, Derived(StatusMoving).IsBoundary())
	assert.Equal(t, "Start", Derived(StatusStart).String())
	assert.Equal(t, "#F0AD4E", Derived(StatusStopped).Color(true))
}

func TestStatusJSON(t *testing.T) {
	for _, v := range []StatusValue{StatusStopped, StatusMoving, StatusStart, StatusStop} {
		b, err := json.Marshal(Derived(v))
		require.NoError(t, err)

		var got Status
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, v, got.Value, string(b))
	}
	assert.Error(t, json.Unmarshal([]byte(`1`), new(Status)))
}
