package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFinalize_AppliesDefaults(t *testing.T) {
	m := &Model{}

	require.NoError(t, m.Finalize())

	require.Equal(t, DefaultEndpoint, m.Endpoint)
	require.Equal(t, "/", m.Namespace)
	require.Equal(t, DefaultReadyEvent, m.ReadyEvent)
	require.Equal(t, DefaultConnectTimeout, m.ConnectTimeout)
	if diff := cmp.Diff(DefaultBindings(), m.Bindings); diff != "" {
		t.Errorf("default bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalize_FillsBindingField(t *testing.T) {
	m := &Model{Bindings: []Binding{{Event: "forecast", Region: "left_column_top"}}}

	require.NoError(t, m.Finalize())
	require.Equal(t, DefaultField, m.Bindings[0].Field)
}

func TestFinalize_RejectsIncompleteBinding(t *testing.T) {
	testCases := []struct {
		name    string
		binding Binding
		wantErr string
	}{
		{name: "missing event", binding: Binding{Region: "services"}, wantErr: "missing an event name"},
		{name: "missing region", binding: Binding{Event: "services"}, wantErr: `event "services" is missing a region`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Model{Bindings: []Binding{tc.binding}}
			err := m.Finalize()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMerge_LaterSettingsWin(t *testing.T) {
	m := NewModel()
	m.Merge(&Model{
		Endpoint:       "http://status.lan:8080",
		ConnectTimeout: 3 * time.Second,
		Bindings:       []Binding{{Event: "plex", Region: "now_playing_wrapper"}},
	})
	m.Merge(&Model{
		ReadyEvent: "hello",
		Bindings:   []Binding{{Event: "services", Region: "services"}},
	})

	require.Equal(t, "http://status.lan:8080", m.Endpoint)
	require.Equal(t, "hello", m.ReadyEvent)
	require.Equal(t, 3*time.Second, m.ConnectTimeout)
	require.Len(t, m.Bindings, 2)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("")
	require.NoError(t, err)
	require.Zero(t, d)

	d, err = ParseDuration("2s")
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, d)

	_, err = ParseDuration("soon")
	require.Error(t, err)

	_, err = ParseDuration("-1s")
	require.Error(t, err)
}
