package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"127.0.0.1", "port"},
		{"127.0.0.1", "2055", "127.0.0.1", "2055", "extra"},
		{"--filter", "notAnElement", "127.0.0.1", "0"},
	} {
		cmd := newRootCmd()
		out := new(bytes.Buffer)
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), args)
	}
}
