package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreen_MatchesDefaultKeywords(t *testing.T) {
	s := NewScreener()

	tests := []struct {
		name    string
		message string
	}{
		{"exact phrase", "I want to die"},
		{"upper case", "I WANT TO DIE"},
		{"mixed case inside sentence", "sometimes I think I should Kill Myself, honestly"},
		{"self harm", "thinking about self harm again"},
		{"substring without spaces around", "iwant to dienow"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reply, matched := s.Screen(tc.message)
			assert.True(t, matched)
			assert.Equal(t, CrisisReply, reply)
		})
	}
}

func TestScreen_NoMatch(t *testing.T) {
	s := NewScreener()

	for _, msg := range []string{"", "I had a good day", "self-harm", "I want to dine out", "killing time"} {
		reply, matched := s.Screen(msg)
		assert.False(t, matched, "message %q", msg)
		assert.Empty(t, reply)
	}
}

func TestScreen_ExampleReply(t *testing.T) {
	reply, matched := NewScreener().Screen("I want to die")
	assert.True(t, matched)
	assert.Equal(t, "It sounds like you are in crisis. Please reach out for help. You can connect with people who can support you by calling or texting 988 anytime in the US and Canada. In the UK, you can call 111.", reply)
}

func TestNewScreener_ExtraKeywords(t *testing.T) {
	s := NewScreener("  End It All ", "", "want to die")

	assert.Equal(t, []string{"kill myself", "want to die", "self harm", "end it all"}, s.Keywords())

	_, matched := s.Screen("I just want to END IT ALL")
	assert.True(t, matched)
}
