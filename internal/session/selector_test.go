package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prproute/mapclient/internal/session"
)

var (
	berlin  = session.Coordinate{Lat: 52.5200, Lng: 13.4050}
	munich  = session.Coordinate{Lat: 48.1351, Lng: 11.5820}
	hamburg = session.Coordinate{Lat: 53.5511, Lng: 9.9937}
)

func TestPointSelector_StartsEmpty(t *testing.T) {
	var s session.PointSelector
	assert.Equal(t, session.PhaseEmpty, s.Phase())
	assert.False(t, s.IsComplete())

	_, _, ok := s.Endpoints()
	assert.False(t, ok)
}

func TestPointSelector_ConfirmWithoutPickIsNoop(t *testing.T) {
	var s session.PointSelector

	_, ok := s.Confirm(session.RoleStart)
	assert.False(t, ok)
	assert.Equal(t, session.PhaseEmpty, s.Phase())

	s.Pick(berlin)
	_, ok = s.Confirm(session.RoleStart)
	require.True(t, ok)

	before := s
	_, ok = s.Confirm(session.RoleEnd)
	assert.False(t, ok)
	assert.Equal(t, before, s)
}

func TestPointSelector_ConfirmRejectsProvisionalRole(t *testing.T) {
	var s session.PointSelector
	s.Pick(berlin)

	_, ok := s.Confirm(session.RoleProvisional)
	assert.False(t, ok)
	assert.Equal(t, session.PhaseProvisional, s.Phase())
}

func TestPointSelector_PickReplacesProvisional(t *testing.T) {
	var s session.PointSelector
	s.Pick(berlin)
	s.Pick(munich)

	c, ok := s.Provisional()
	require.True(t, ok)
	assert.Equal(t, munich, c)
}

func TestPointSelector_PickKeepsCommitted(t *testing.T) {
	var s session.PointSelector
	s.Pick(berlin)
	s.Confirm(session.RoleStart)
	s.Pick(munich)

	start, ok := s.Start()
	require.True(t, ok)
	assert.Equal(t, berlin, start)
	assert.Equal(t, session.PhaseProvisional, s.Phase())
}

func TestPointSelector_ReconfirmReplaces(t *testing.T) {
	var s session.PointSelector
	s.Pick(berlin)
	s.Confirm(session.RoleStart)
	s.Pick(hamburg)
	c, ok := s.Confirm(session.RoleStart)
	require.True(t, ok)
	assert.Equal(t, hamburg, c)

	start, _ := s.Start()
	assert.Equal(t, hamburg, start)
	_, ok = s.End()
	assert.False(t, ok)
	assert.Equal(t, session.PhaseCommitted, s.Phase())
}

func TestPointSelector_Complete(t *testing.T) {
	var s session.PointSelector
	s.Pick(berlin)
	s.Confirm(session.RoleStart)
	assert.False(t, s.IsComplete())

	s.Pick(munich)
	s.Confirm(session.RoleEnd)
	assert.True(t, s.IsComplete())

	start, end, ok := s.Endpoints()
	require.True(t, ok)
	assert.Equal(t, berlin, start)
	assert.Equal(t, munich, end)

	_, ok = s.Provisional()
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	r, err := session.ParseRole("start")
	require.NoError(t, err)
	assert.Equal(t, session.RoleStart, r)

	r, err = session.ParseRole("end")
	require.NoError(t, err)
	assert.Equal(t, session.RoleEnd, r)

	_, err = session.ParseRole("provisional")
	assert.Error(t, err)
	_, err = session.ParseRole("")
	assert.Error(t, err)
}

func TestCoordinate(t *testing.T) {
	c := session.Coordinate{Lat: 52.52049, Lng: 13.40451}
	assert.Equal(t, "52.520, 13.405", c.String())
	assert.Equal(t, session.Coordinate{Lat: 52.52, Lng: 13.405}, c.Rounded())

	p := c.Point()
	assert.Equal(t, 13.40451, p.Lon())
	assert.Equal(t, 52.52049, p.Lat())
}

func TestBounds_Contains(t *testing.T) {
	germany := session.Bounds{South: 47.1, West: 5.7, North: 55.2, East: 16.9}
	assert.True(t, germany.Contains(berlin))
	assert.True(t, germany.Contains(session.Coordinate{Lat: 47.1, Lng: 5.7}))
	assert.False(t, germany.Contains(session.Coordinate{Lat: 48.8566, Lng: 2.3522}))
	assert.False(t, germany.Contains(session.Coordinate{Lat: 60, Lng: 10}))
}
