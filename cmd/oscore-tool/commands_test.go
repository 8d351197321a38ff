package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"golang.org/x/crypto/hkdf"

	"github.com/oscore-edhoc/wire/pkg/cli"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

func newTestEnvironment(storeType cli.StoreType) (*environment, *bytes.Buffer) {
	var out bytes.Buffer
	config := cli.NewConfig()
	config.StoreType = storeType
	return &environment{config: config, out: &out}, &out
}

func run(t *testing.T, env *environment, out *bytes.Buffer, args ...string) string {
	t.Helper()
	out.Reset()
	if err := execute(env, args); err != nil {
		t.Fatalf("%s: %s", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestEncodingCommands(t *testing.T) {
	gx := strings.Repeat("ab", 32)
	testCases := []struct {
		args     []string
		expected string
	}{
		{
			args:     []string{"option-decode", "19140237cb42"},
			expected: "n: 1\npiv: h'14' (ssn 20)\nkid_context: h'37cb'\nkid: h'42'\n",
		},
		{
			args:     []string{"option-decode", "0800"},
			expected: "n: 0\nkid: h'00'\n",
		},
		{
			args:     []string{"option-encode", "20", "42", "37cb"},
			expected: "hex: 19140237cb42\n",
		},
		{
			args:     []string{"option-encode", "0", ""},
			expected: "hex: 0900\n",
		},
		{
			args:     []string{"message1-decode", "03005820" + gx + "37"},
			expected: fmt.Sprintf("method: 3\nsuites: [0]\nselected_suite: 0\ng_x: h'%s'\nc_i: -24\n", gx),
		},
		{
			args:     []string{"diag", "820102"},
			expected: "[1, 2]\n",
		},
	}
	for _, test := range testCases {
		env, out := newTestEnvironment("")
		if actual := run(t, env, out, test.args...); actual != test.expected {
			t.Errorf("%s: expected %q but got %q", test.args[0], test.expected, actual)
		}
	}
}

func TestStructureCommands(t *testing.T) {
	testCases := []struct {
		args []string
		hex  string
	}{
		{[]string{"external-aad", "10", "", "14"}, "8501810a40411440"},
		{[]string{"enc-structure", "", "8501810a40411440"}, "8368456e63727970743040488501810a40411440"},
		{[]string{"enc-structure", ""}, "8368456e6372797074304040"},
		{[]string{"info", "aa", "IV", "13"}, "8441aa624956400d"},
	}
	for _, test := range testCases {
		env, out := newTestEnvironment("")
		actual := run(t, env, out, test.args...)
		if !strings.HasPrefix(actual, "hex: "+test.hex+"\n") {
			t.Errorf("%s: expected encoding %s but got %q", test.args[0], test.hex, actual)
		}
		if !strings.Contains(actual, "diag: ") {
			t.Errorf("%s: missing diagnostic notation in %q", test.args[0], actual)
		}
	}
}

func TestInfoExpandsPRK(t *testing.T) {
	prk := bytes.Repeat([]byte{0x5a}, 32)
	env, out := newTestEnvironment("")
	actual := run(t, env, out, "info", "aa", "IV", "13", "", hex.EncodeToString(prk))

	info, err := hex.DecodeString("8441aa624956400d")
	if err != nil {
		t.Fatal(err)
	}
	expected := make([]byte, 13)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), expected); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(actual, fmt.Sprintf("output: %x\n", expected)) {
		t.Errorf("Unexpected KDF output: %q", actual)
	}
}

func TestSequenceNumberCommands(t *testing.T) {
	env, out := newTestEnvironment(cli.StoreMemory)
	steps := []struct {
		args     []string
		expected string
	}{
		{[]string{"ssn-show", "42"}, "no checkpoint\n"},
		{[]string{"ssn-init", "42"}, "ssn: 20\n"},
		{[]string{"ssn-next", "42", "-", "3"}, "20 091442\n21 091542\n22 091642\n"},
		{[]string{"ssn-show", "42"}, "checkpoint: 20\n"},
		{[]string{"ssn-init", "42"}, "ssn: 40\n"},
		{[]string{"ssn-store", "42", "35"}, "35 is not on a checkpoint boundary\n"},
		{[]string{"ssn-show", "42"}, "checkpoint: 20\n"},
		{[]string{"ssn-store", "42", "30"}, "checkpointed 30\n"},
		{[]string{"ssn-show", "42"}, "checkpoint: 30\n"},
		{[]string{"ssn-show", "42", "37cb"}, "no checkpoint\n"},
	}
	for _, step := range steps {
		if actual := run(t, env, out, step.args...); actual != step.expected {
			t.Errorf("%s: expected %q but got %q", strings.Join(step.args, " "), step.expected, actual)
		}
	}
	if err := env.config.Close(); err != nil {
		t.Error(err)
	}
}

func TestCommandErrors(t *testing.T) {
	testCases := []struct {
		storeType cli.StoreType
		args      []string
		err       error
	}{
		{"", []string{"launch"}, ErrUnknownCommand},
		{"", []string{"ssn-init", "42"}, ErrRequiresStore},
		{"", []string{"option-decode"}, ErrCommandLineArgs},
		{"", []string{"option-decode", "09", "42"}, ErrCommandLineArgs},
		{"", []string{"option-decode", "zz"}, ErrCommandLineArgs},
		{"", []string{"option-decode", ""}, protocol.ErrMalformedInput},
		{"", []string{"option-decode", "06"}, protocol.ErrPolicyViolation},
		{"", []string{"option-encode", "1099511627776"}, ErrCommandLineArgs},
		{"", []string{"external-aad", "ten", "", ""}, ErrCommandLineArgs},
		{"", []string{"message1-decode", "03"}, protocol.ErrMalformedInput},
		{cli.StoreMemory, []string{"ssn-next", "42", "-", "5000"}, ErrCommandLineArgs},
	}
	for _, test := range testCases {
		env, _ := newTestEnvironment(test.storeType)
		if err := execute(env, test.args); !errors.Is(err, test.err) {
			t.Errorf("%s: expected %s but got %v", strings.Join(test.args, " "), test.err, err)
		}
	}
	env, _ := newTestEnvironment("")
	if err := execute(env, nil); err == nil {
		t.Error("Expected error for missing command")
	}
}
