package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/oscore-edhoc/wire/internal/log"
	"github.com/oscore-edhoc/wire/pkg/cli"
	"github.com/oscore-edhoc/wire/pkg/oscore/ssn"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Byte strings are given in hex. Use - to leave an optional field out entirely.
 * Sequence number commands require a store (-store, or OSCORE_STORE_TYPE).
 * Without a COMMAND, commands are read from standard input.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(env *environment, args []string) int {
	if err := execute(env, args); err != nil {
		switch {
		case errors.Is(err, ssn.ErrCheckpointFailed):
			writeErr("Sequence number was used but not persisted: %s", err)
		case errors.Is(err, protocol.ErrMalformedInput):
			writeErr("Malformed input: %s", err)
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(env *environment) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		runCommand(env, args)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var debug bool
	config := cli.NewConfig()
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	config.RegisterCommandLineFlags()
	flag.Parse()
	if !debug {
		if debugEnv, ok := os.LookupEnv("OSCORE_VERBOSE"); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	}
	config.ReadFromEnvironment()
	if err := config.LoadFile(config.ConfigFilename); err != nil {
		writeErr("Error loading configuration: %s", err)
		return
	}
	defer func() {
		if err := config.Close(); err != nil {
			writeErr("Error closing store: %s", err)
		}
	}()

	args := flag.Args()
	if len(args) > 0 && args[0] == "help" {
		if len(args) == 1 {
			Usage()
			status = 0
			return
		}
		info, ok := commands[args[1]]
		if !ok {
			writeErr("Unrecognized command: %s", args[1])
			return
		}
		info.Usage(args[1])
		status = 0
		return
	}

	env := &environment{config: config, out: os.Stdout}
	if len(args) > 0 {
		status = runCommand(env, args)
	} else {
		status = runInteractiveShell(env)
	}
}
