package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labPool builds: phone1 (android 12.1.0) --usb--> pc1, phone2 (android 9.0.0),
// sw1 --eth--> sw2.
func labPool(t *testing.T) *Pool {
	t.Helper()
	p := NewPool()

	phone1 := NewDevice("phone1", "android")
	phone1.Properties["version"] = "12.1.0"
	phone1.Properties["vendor"] = "acme"
	_, err := phone1.AddPort("usb0", "usb", "")
	require.NoError(t, err)

	phone2 := NewDevice("phone2", "android")
	phone2.Properties["version"] = "9.0.0"

	pc := NewDevice("pc1", "host")
	_, err = pc.AddPort("usb3", "usb", "")
	require.NoError(t, err)

	sw1 := NewDevice("sw1", "switch")
	_, err = sw1.AddPort("eth1", "eth", "")
	require.NoError(t, err)
	sw2 := NewDevice("sw2", "switch")
	_, err = sw2.AddPort("eth1", "eth", "")
	require.NoError(t, err)

	for _, d := range []*Device{phone1, phone2, pc, sw1, sw2} {
		require.NoError(t, p.AddDevice(d))
	}
	require.NoError(t, p.Link(PortRef{"phone1", "usb0"}, PortRef{"pc1", "usb3"}))
	require.NoError(t, p.Link(PortRef{"sw1", "eth1"}, PortRef{"sw2", "eth1"}))
	return p
}

func names(devices []*Device) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Name)
	}
	return out
}

func TestCollectDevice(t *testing.T) {
	p := labPool(t)

	v12, err := NewVersionConstraint(">= 12.0")
	require.NoError(t, err)

	tests := []struct {
		name        string
		deviceType  string
		constraints []Constraint
		want        []string
	}{
		{name: "by type", deviceType: "android", want: []string{"phone1", "phone2"}},
		{name: "any type", deviceType: "", constraints: []Constraint{TypeConstraint{Type: "switch"}}, want: []string{"sw1", "sw2"}},
		{name: "version", deviceType: "android", constraints: []Constraint{v12}, want: []string{"phone1"}},
		{name: "property", deviceType: "android", constraints: []Constraint{PropertyConstraint{Key: "vendor", Value: "acme"}}, want: []string{"phone1"}},
		{name: "all must hold", deviceType: "android", constraints: []Constraint{v12, PropertyConstraint{Key: "vendor", Value: "other"}}, want: []string{}},
		{name: "unknown type", deviceType: "router", want: []string{}},
		{name: "connected only", deviceType: "android", constraints: []Constraint{PortConnection{LocalType: "usb"}}, want: []string{"phone1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.CollectDevice(tt.deviceType, tt.constraints...)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestVersionConstraint(t *testing.T) {
	_, err := NewVersionConstraint("not a range ~~")
	assert.Error(t, err)

	c, err := NewVersionConstraint("< 10")
	require.NoError(t, err)
	assert.Equal(t, "version must satisfy < 10", c.Description())

	d := NewDevice("x", "android")
	assert.False(t, c.IsMeet(d), "missing version never matches")
	d.Properties["version"] = "garbage"
	assert.False(t, c.IsMeet(d))
	d.Properties["version"] = "9.1"
	assert.True(t, c.IsMeet(d))
}

func TestPropertyConstraint_NumericValue(t *testing.T) {
	d := NewDevice("x", "host")
	d.Properties["slots"] = float64(4)

	assert.True(t, PropertyConstraint{Key: "slots", Value: "4"}.IsMeet(d))
	assert.False(t, PropertyConstraint{Key: "missing", Value: ""}.IsMeet(d))
}

func TestCollectConnectionRoute(t *testing.T) {
	p := labPool(t)

	conns, err := p.CollectConnectionRoute("phone1", PortConnection{LocalType: "usb", RemoteDeviceType: "host"})
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, Connection{Local: PortRef{"phone1", "usb0"}, Remote: PortRef{"pc1", "usb3"}}, conns[0])
	assert.Equal(t, "phone1:usb0 -> pc1:usb3", conns[0].String())

	conns, err = p.CollectConnectionRoute("sw1", PortConnection{})
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestCollectConnectionRoute_Failures(t *testing.T) {
	p := labPool(t)

	ok := PortConnection{LocalType: "usb"}
	bad := PortConnection{LocalType: "usb", RemoteDeviceType: "switch"}

	_, err := p.CollectConnectionRoute("phone1", ok, bad)
	require.Error(t, err)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindNotMeetConstraint, re.Kind)
	assert.Equal(t, []string{ok.Description(), bad.Description()}, re.Constraints)
	assert.Equal(t, []string{bad.Description()}, re.Failed)
	assert.Contains(t, err.Error(), "usb port connected to switch device")

	_, err = p.CollectConnectionRoute("ghost", ok)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "not-released", KindNotReleased.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
	assert.False(t, IsKind(assert.AnError, KindLoad))
}
