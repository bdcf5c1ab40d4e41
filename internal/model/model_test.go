package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/bcvwp"
)

func TestWordKey_SanitizesAndPrefixes(t *testing.T) {
	assert.Equal(t, "sources:010010010011", WordKey(SideSources, "o010010010011"))
	assert.Equal(t, "targets:400010010011", WordKey(SideTargets, " 400010010011 "))
	assert.Equal(t, "400010010011", StripSide("targets:400010010011"))
	assert.Equal(t, "400010010011", StripSide("400010010011"))
}

func TestSide(t *testing.T) {
	s, err := ParseSide("Target")
	require.NoError(t, err)
	assert.Equal(t, SideTargets, s)
	assert.Equal(t, SideSources, s.Other())
	assert.Equal(t, "links__target_words", s.JunctionTable())
	assert.Equal(t, "sources_text", s.Other().TextColumn())

	_, err = ParseSide("middle")
	assert.Error(t, err)
}

func TestLinkDefaults(t *testing.T) {
	l := Link{ID: "a"}.WithDefaults()
	assert.Equal(t, OriginManual, l.Meta.Origin)
	assert.Equal(t, StatusCreated, l.Meta.Status)
	assert.NotNil(t, l.Sources)
	assert.NotNil(t, l.Targets)
}

func TestErrorClassification(t *testing.T) {
	base := NewError(ErrCodeTransportFailure, "remote.patch", "unexpected status 500", nil)
	wrapped := fmt.Errorf("sync: %w", base)

	assert.True(t, IsTransportFailure(wrapped))
	assert.False(t, IsQueryInjectionRisk(wrapped))
	assert.Equal(t, "remote.patch: TRANSPORT_FAILURE: unexpected status 500", base.Error())

	_, err := bcvwp.Parse("xx")
	assert.True(t, IsMalformedReference(fmt.Errorf("import: %w", err)))
}

func TestMarshalBody_DoesNotEscapeHTML(t *testing.T) {
	body, err := MarshalBody(ServerLink{
		ID:      "<id>",
		Sources: []string{"a&b"},
		Targets: []string{},
		Meta:    LinkMeta{Origin: OriginManual, Status: StatusCreated},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"<id>","sources":["a&b"],"targets":[],"meta":{"origin":"manual","status":"CREATED"}}`, string(body))
}
