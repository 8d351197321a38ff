package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	fxcbor "github.com/fxamacker/cbor/v2"

	"github.com/oscore-edhoc/wire/pkg/cli"
	"github.com/oscore-edhoc/wire/pkg/cose"
	"github.com/oscore-edhoc/wire/pkg/edhoc"
	"github.com/oscore-edhoc/wire/pkg/oscore"
	"github.com/oscore-edhoc/wire/pkg/oscore/option"
	"github.com/oscore-edhoc/wire/pkg/oscore/ssn"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrRequiresStore   = errors.New("command requires a sequence number store (set -store or OSCORE_STORE_TYPE)")
)

// absent is the command-line spelling of a field that should be left out entirely, as opposed to
// an empty byte string.
const absent = "-"

// maxCommandCount bounds the number of sequence numbers handed out by a single ssn-next.
const maxCommandCount = 1000

type Argument struct {
	name string
	help string
}

// environment carries the state shared by every command in a session.
type environment struct {
	config *cli.Config
	out    io.Writer
}

type Handler func(env *environment, args map[string]string) error

type Command struct {
	help          string
	requiresStore bool
	args          []Argument
	optional      []Argument
	handler       Handler
}

var diagMode fxcbor.DiagMode

func init() {
	var err error
	if diagMode, err = (fxcbor.DiagOptions{CBORSequence: true}).DiagMode(); err != nil {
		panic(err)
	}
}

func parseHex(name, value string) ([]byte, error) {
	if value == absent {
		return nil, nil
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid hex: %s", ErrCommandLineArgs, name, err)
	}
	return b, nil
}

// parseHexArgs decodes the named arguments. Missing optional arguments decode to nil.
func parseHexArgs(args map[string]string, names ...string) ([][]byte, error) {
	values := make([][]byte, len(names))
	for i, name := range names {
		value, ok := args[name]
		if !ok {
			continue
		}
		b, err := parseHex(name, value)
		if err != nil {
			return nil, err
		}
		values[i] = b
	}
	return values, nil
}

func parseUint(name, value string, max uint64) (uint64, error) {
	v, err := strconv.ParseUint(value, 0, 64)
	if err != nil || v > max {
		return 0, fmt.Errorf("%w: %s must be an integer in [0, %d]", ErrCommandLineArgs, name, max)
	}
	return v, nil
}

func formatBytes(b []byte) string {
	return fmt.Sprintf("h'%x'", b)
}

func (env *environment) printEncoding(encoded []byte) {
	fmt.Fprintf(env.out, "hex: %x\n", encoded)
	if diag, err := diagMode.Diagnose(encoded); err == nil {
		fmt.Fprintf(env.out, "diag: %s\n", diag)
	}
}

func (env *environment) printOption(opt *option.CompressedOption) {
	fmt.Fprintf(env.out, "n: %d\n", opt.N)
	if opt.HasPIV() {
		seq, err := option.SSNFromPIV(opt.PIV)
		if err == nil {
			fmt.Fprintf(env.out, "piv: %s (ssn %d)\n", formatBytes(opt.PIV), seq)
		}
	}
	if opt.H {
		fmt.Fprintf(env.out, "kid_context: %s\n", formatBytes(opt.KIDContext))
	}
	if opt.K {
		fmt.Fprintf(env.out, "kid: %s\n", formatBytes(opt.KID))
	}
}

func (env *environment) manager() (*ssn.Manager, error) {
	return env.config.Manager()
}

func checkReadiness(env *environment, commandName string) (*Command, error) {
	info, ok := commands[commandName]
	if !ok {
		return nil, ErrUnknownCommand
	}
	if info.requiresStore && env.config.StoreType == "" {
		return nil, ErrRequiresStore
	}
	return info, nil
}

func execute(env *environment, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}

	info, err := checkReadiness(env, args[0])
	if err != nil {
		return err
	}

	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(env, keywords)
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" [")
	}
	for _, arg := range c.optional {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" ]")
	}
	fmt.Printf("\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

var (
	senderIDArg  = Argument{name: "SENDER_ID", help: "Sender ID in hex"}
	idContextArg = Argument{name: "ID_CONTEXT", help: "ID Context in hex, or - if there is none"}
)

var commands = map[string]*Command{
	"option-decode": &Command{
		help: "Decode an OSCORE option VALUE",
		args: []Argument{
			Argument{name: "VALUE", help: "option value in hex"},
		},
		handler: func(env *environment, args map[string]string) error {
			value, err := parseHex("VALUE", args["VALUE"])
			if err != nil {
				return err
			}
			opt, err := option.Decode(value)
			if err != nil {
				return err
			}
			env.printOption(&opt)
			return nil
		},
	},
	"option-encode": &Command{
		help: "Encode an OSCORE option value",
		args: []Argument{
			Argument{name: "SSN", help: "sender sequence number used as Partial IV, or - to omit it"},
		},
		optional: []Argument{
			Argument{name: "KID", help: "kid in hex, or - to omit it"},
			Argument{name: "KID_CONTEXT", help: "kid context in hex, or - to omit it"},
		},
		handler: func(env *environment, args map[string]string) error {
			var (
				piv []byte
				buf [option.MaxPIVLen]byte
			)
			if args["SSN"] != absent {
				seq, err := parseUint("SSN", args["SSN"], option.MaxSSN)
				if err != nil {
					return err
				}
				if piv, err = option.PIVFromSSN(seq, &buf); err != nil {
					return err
				}
			}
			values, err := parseHexArgs(args, "KID", "KID_CONTEXT")
			if err != nil {
				return err
			}
			kid, kidContext := values[0], values[1]
			out := make([]byte, option.EncodedLen(piv, kidContext, kid))
			n, err := option.Encode(out, piv, kidContext, kid)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "hex: %x\n", out[:n])
			return nil
		},
	},
	"external-aad": &Command{
		help: "Encode the OSCORE external AAD for a request",
		args: []Argument{
			Argument{name: "ALG", help: "COSE AEAD algorithm identifier (for example 10 for AES-CCM-16-64-128)"},
			Argument{name: "KID", help: "request kid in hex"},
			Argument{name: "PIV", help: "request Partial IV in hex"},
		},
		handler: func(env *environment, args map[string]string) error {
			alg, err := strconv.ParseInt(args["ALG"], 0, 64)
			if err != nil {
				return fmt.Errorf("%w: ALG must be an integer", ErrCommandLineArgs)
			}
			values, err := parseHexArgs(args, "KID", "PIV")
			if err != nil {
				return err
			}
			aad := oscore.NewExternalAAD(cose.Algorithm(alg), values[0], values[1])
			out := make([]byte, aad.EncodedLen())
			n, err := aad.Encode(out)
			if err != nil {
				return err
			}
			env.printEncoding(out[:n])
			return nil
		},
	},
	"enc-structure": &Command{
		help: "Encode a COSE Enc_structure for Encrypt0",
		args: []Argument{
			Argument{name: "PROTECTED", help: "serialized protected header in hex"},
		},
		optional: []Argument{
			Argument{name: "EXTERNAL_AAD", help: "external AAD in hex"},
		},
		handler: func(env *environment, args map[string]string) error {
			values, err := parseHexArgs(args, "PROTECTED", "EXTERNAL_AAD")
			if err != nil {
				return err
			}
			s := cose.NewEncStructure(values[0], values[1])
			out := make([]byte, s.EncodedLen())
			n, err := s.Encode(out)
			if err != nil {
				return err
			}
			env.printEncoding(out[:n])
			return nil
		},
	},
	"sig-structure": &Command{
		help: "Encode a COSE Sig_structure for Signature1",
		args: []Argument{
			Argument{name: "PROTECTED", help: "serialized protected header in hex"},
			Argument{name: "PAYLOAD", help: "payload in hex"},
		},
		optional: []Argument{
			Argument{name: "EXTERNAL_AAD", help: "external AAD in hex"},
		},
		handler: func(env *environment, args map[string]string) error {
			values, err := parseHexArgs(args, "PROTECTED", "PAYLOAD", "EXTERNAL_AAD")
			if err != nil {
				return err
			}
			s := cose.NewSigStructure(values[0], values[2], values[1])
			out := make([]byte, s.EncodedLen())
			n, err := s.Encode(out)
			if err != nil {
				return err
			}
			env.printEncoding(out[:n])
			return nil
		},
	},
	"info": &Command{
		help: "Encode an EDHOC info structure and optionally expand PRK with it using HKDF-SHA256",
		args: []Argument{
			Argument{name: "TRANSCRIPT_HASH", help: "transcript hash in hex"},
			Argument{name: "LABEL", help: "label text"},
			Argument{name: "LENGTH", help: "output length in bytes"},
		},
		optional: []Argument{
			Argument{name: "CONTEXT", help: "context in hex"},
			Argument{name: "PRK", help: "pseudorandom key in hex"},
		},
		handler: func(env *environment, args map[string]string) error {
			length, err := parseUint("LENGTH", args["LENGTH"], 255*sha256.Size)
			if err != nil {
				return err
			}
			values, err := parseHexArgs(args, "TRANSCRIPT_HASH", "CONTEXT", "PRK")
			if err != nil {
				return err
			}
			info := edhoc.Info{
				TranscriptHash: values[0],
				Label:          args["LABEL"],
				Context:        values[1],
				Length:         uint32(length),
			}
			scratch := make([]byte, info.EncodedLen())
			n, err := info.Encode(scratch)
			if err != nil {
				return err
			}
			env.printEncoding(scratch[:n])
			if values[2] == nil {
				return nil
			}
			okm := make([]byte, length)
			if err := edhoc.KDF(sha256.New, values[2], info, scratch, okm); err != nil {
				return err
			}
			fmt.Fprintf(env.out, "output: %x\n", okm)
			return nil
		},
	},
	"message1-decode": &Command{
		help: "Decode an EDHOC message_1",
		args: []Argument{
			Argument{name: "MESSAGE", help: "message_1 in hex"},
		},
		handler: func(env *environment, args map[string]string) error {
			b, err := parseHex("MESSAGE", args["MESSAGE"])
			if err != nil {
				return err
			}
			msg, err := edhoc.DecodeMessage1(b)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "method: %d\n", msg.Method)
			fmt.Fprintf(env.out, "suites: %v\n", msg.SuitesI())
			fmt.Fprintf(env.out, "selected_suite: %d\n", msg.SelectedSuite())
			fmt.Fprintf(env.out, "g_x: %s\n", formatBytes(msg.GX))
			if msg.CI.IsBytes {
				fmt.Fprintf(env.out, "c_i: %s\n", formatBytes(msg.CI.Bytes))
			} else {
				fmt.Fprintf(env.out, "c_i: %d\n", msg.CI.Int)
			}
			for _, item := range msg.EADItems() {
				if item.Value == nil {
					fmt.Fprintf(env.out, "ead: %d\n", item.Label)
				} else {
					fmt.Fprintf(env.out, "ead: %d %s\n", item.Label, formatBytes(item.Value))
				}
			}
			return nil
		},
	},
	"diag": &Command{
		help: "Print CBOR (or a CBOR sequence) in diagnostic notation",
		args: []Argument{
			Argument{name: "CBOR", help: "encoded data in hex"},
		},
		handler: func(env *environment, args map[string]string) error {
			b, err := parseHex("CBOR", args["CBOR"])
			if err != nil {
				return err
			}
			diag, err := diagMode.Diagnose(b)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.out, diag)
			return nil
		},
	},
	"ssn-init": &Command{
		help:          "Recover the first sender sequence number usable after a restart",
		requiresStore: true,
		args:          []Argument{senderIDArg},
		optional:      []Argument{idContextArg},
		handler: func(env *environment, args map[string]string) error {
			values, err := parseHexArgs(args, "SENDER_ID", "ID_CONTEXT")
			if err != nil {
				return err
			}
			manager, err := env.manager()
			if err != nil {
				return err
			}
			seq, err := manager.Init(values[0], values[1], true)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "ssn: %d\n", seq)
			return nil
		},
	},
	"ssn-show": &Command{
		help:          "Print the persisted sender sequence number checkpoint",
		requiresStore: true,
		args:          []Argument{senderIDArg},
		optional:      []Argument{idContextArg},
		handler: func(env *environment, args map[string]string) error {
			values, err := parseHexArgs(args, "SENDER_ID", "ID_CONTEXT")
			if err != nil {
				return err
			}
			store, err := env.config.OpenStore()
			if err != nil {
				return err
			}
			seq, err := store.ReadSSN(values[0], values[1])
			if errors.Is(err, ssn.ErrNoRecord) {
				fmt.Fprintln(env.out, "no checkpoint")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "checkpoint: %d\n", seq)
			return nil
		},
	},
	"ssn-store": &Command{
		help:          "Offer SSN to the checkpoint policy, persisting it if it falls on an interval boundary",
		requiresStore: true,
		args: []Argument{
			senderIDArg,
			Argument{name: "SSN", help: "sender sequence number"},
		},
		optional: []Argument{idContextArg},
		handler: func(env *environment, args map[string]string) error {
			seq, err := parseUint("SSN", args["SSN"], ssn.MaxSSN)
			if err != nil {
				return err
			}
			values, err := parseHexArgs(args, "SENDER_ID", "ID_CONTEXT")
			if err != nil {
				return err
			}
			manager, err := env.manager()
			if err != nil {
				return err
			}
			if err := manager.StoreInNVM(values[0], values[1], seq, true); err != nil {
				return err
			}
			if seq%manager.Policy().StoreInterval == 0 {
				fmt.Fprintf(env.out, "checkpointed %d\n", seq)
			} else {
				fmt.Fprintf(env.out, "%d is not on a checkpoint boundary\n", seq)
			}
			return nil
		},
	},
	"ssn-next": &Command{
		help:          "Hand out COUNT sequence numbers and print the OSCORE option for each",
		requiresStore: true,
		args:          []Argument{senderIDArg},
		optional: []Argument{
			idContextArg,
			Argument{name: "COUNT", help: "number of sequence numbers (default 1)"},
		},
		handler: func(env *environment, args map[string]string) error {
			count := uint64(1)
			if value, ok := args["COUNT"]; ok {
				var err error
				if count, err = parseUint("COUNT", value, maxCommandCount); err != nil {
					return err
				}
			}
			values, err := parseHexArgs(args, "SENDER_ID", "ID_CONTEXT")
			if err != nil {
				return err
			}
			manager, err := env.manager()
			if err != nil {
				return err
			}
			counter, err := manager.NewCounter(values[0], values[1], true)
			if err != nil {
				return err
			}
			sender := oscore.Sender{Counter: counter, IncludeIDContext: values[1] != nil}
			out := make([]byte, 1+option.MaxPIVLen+1+len(values[1])+len(values[0]))
			for i := uint64(0); i < count; i++ {
				n, seq, err := sender.NextOption(out)
				if n > 0 {
					fmt.Fprintf(env.out, "%d %x\n", seq, out[:n])
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	},
}
