package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIdentifier(t *testing.T) {
	cases := []struct {
		prefix  string
		current string
		want    string
	}{
		{"ALRT", "", "ALRT001"},
		{"ALRT", "ALRT001", "ALRT002"},
		{"ALRT", "ALRT099", "ALRT100"},
		{"ALRT", "ALRT999", "ALRT1000"},
		{"RF", "RF041", "RF042"},
		{"RF", "RF-bad", "RF001"},
		{"ALRT", "garbage", "ALRT001"},
	}
	for _, c := range cases {
		t.Run(c.current, func(t *testing.T) {
			assert.Equal(t, c.want, NextIdentifier(c.prefix, c.current))
		})
	}
}

func TestIdentifierSeq(t *testing.T) {
	assert.Equal(t, int64(12), IdentifierSeq("ALRT012"))
	assert.Equal(t, int64(0), IdentifierSeq("ALRT"))
}
