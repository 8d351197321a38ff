/*
Package cli facilitates building command-line applications that manage OSCORE sender sequence
numbers. It defines a [Config] type that registers common command-line flags (using the Golang flag
package), environment variable equivalents and an optional TOML configuration file.

Sequence numbers can be persisted to a CBOR file, a LevelDB database or, using [keyring]'s
platform-agnostic interface, an OS-dependent credential store.

# Examples

	config := NewConfig()
	config.RegisterCommandLineFlags() // Adds command-line flags for the store and policy.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables
	if err := config.LoadFile(config.ConfigFilename); err != nil { // Then from the config file
		panic(err)
	}

	manager, err := config.Manager() // Opens the configured store, prompting for a password if needed.
	if err != nil {
		panic(err)
	}
	defer config.Close()

Values are never overwritten once set, so command-line flags take precedence over the environment,
which takes precedence over the configuration file. Unset policy fields fall back to
[ssn.DefaultPolicy].
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/99designs/keyring"
	"github.com/BurntSushi/toml"

	"github.com/oscore-edhoc/wire/internal/log"
	"github.com/oscore-edhoc/wire/pkg/oscore/ssn"
)

// Environment variable names used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvOSCOREConfigFile         = "OSCORE_CONFIG_FILE"
	EnvOSCOREStoreType          = "OSCORE_STORE_TYPE"
	EnvOSCOREStorePath          = "OSCORE_STORE_PATH"
	EnvOSCOREStoreInterval      = "OSCORE_STORE_INTERVAL"
	EnvOSCOREWriteFailureMargin = "OSCORE_WRITE_FAILURE_MARGIN"
	EnvOSCOREKeyringType        = "OSCORE_KEYRING_TYPE"
	EnvOSCOREKeyringPass        = "OSCORE_KEYRING_PASSWORD"
	EnvOSCOREKeyringPath        = "OSCORE_KEYRING_PATH"
	EnvOSCOREKeyringDebug       = "OSCORE_KEYRING_DEBUG"
)

// StoreType selects the backend that persists sequence numbers.
type StoreType string

const (
	StoreNone    StoreType = "none" // No persistence. Persistent contexts fail to initialize.
	StoreMemory  StoreType = "memory"
	StoreFile    StoreType = "file"
	StoreLevelDB StoreType = "leveldb"
	StoreKeyring StoreType = "keyring"
)

var storeTypes = []StoreType{StoreNone, StoreMemory, StoreFile, StoreLevelDB, StoreKeyring}

func (s *StoreType) String() string {
	return string(*s)
}

// Set updates a StoreType from a command-line argument.
func (s *StoreType) Set(value string) error {
	canonical := StoreType(strings.ToLower(value))
	for _, t := range storeTypes {
		if t == canonical {
			*s = t
			return nil
		}
	}
	return fmt.Errorf("unknown store type '%s'", value)
}

var (
	ErrNoStorePath = errors.New("store path not provided")
	ErrNoStoreType = errors.New("store type not provided")
)

// Config fields determine where sequence numbers are persisted and how often.
type Config struct {
	ConfigFilename string
	StoreType      StoreType
	StorePath      string // File or directory for file-backed stores.
	Policy         ssn.Policy
	Backend        keyring.Config
	BackendType    backendType
	Debug          bool // Enable keyring debug messages

	password *string
	store    ssn.Store
	closers  []io.Closer
}

func NewConfig() *Config {
	c := Config{
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword
	return &c
}

// RegisterCommandLineFlags adds c's flags to the default flag set.
func (c *Config) RegisterCommandLineFlags() {
	c.RegisterFlags(flag.CommandLine)
}

// RegisterFlags adds c's flags to fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	var names []string
	for _, t := range storeTypes {
		names = append(names, string(t))
	}
	fs.StringVar(&c.ConfigFilename, "config", "", "TOML configuration `file`. Defaults to $OSCORE_CONFIG_FILE.")
	fs.Var(&c.StoreType, "store", "Sequence number store `type` ("+strings.Join(names, "|")+"). Defaults to $OSCORE_STORE_TYPE.")
	fs.StringVar(&c.StorePath, "store-path", "", "State `path` for file and leveldb stores. Defaults to $OSCORE_STORE_PATH.")
	fs.Uint64Var(&c.Policy.StoreInterval, "store-interval", 0, "Checkpoint every `n` sequence numbers. Defaults to $OSCORE_STORE_INTERVAL or 10.")
	fs.Uint64Var(&c.Policy.WriteFailureMargin, "write-failure-margin", 0, "Extra `n` sequence numbers skipped on recovery. Defaults to $OSCORE_WRITE_FAILURE_MARGIN or 10.")

	var backends []string
	for _, name := range keyring.AvailableBackends() {
		backends = append(backends, string(name))
	}
	sort.Strings(backends)
	fs.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(backends, "|")+"). Defaults to $OSCORE_KEYRING_TYPE.")
	fs.StringVar(&c.Backend.FileDir, "keyring-file-dir", "", "keyring `directory` for file-backed keyring types. Defaults to $OSCORE_KEYRING_PATH or "+keyringDirectory+".")
	fs.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
}

func readUint64Env(name string, dst *uint64) {
	if *dst != 0 {
		return
	}
	value, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		log.Warning("Ignoring invalid $%s: %s", name, err)
		return
	}
	*dst = n
	log.Debug("Set %s to %d", name, n)
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if c.ConfigFilename == "" {
		c.ConfigFilename = os.Getenv(EnvOSCOREConfigFile)
		log.Debug("Set config file to '%s'", c.ConfigFilename)
	}
	if c.StoreType == "" {
		if value := os.Getenv(EnvOSCOREStoreType); value != "" {
			if err := c.StoreType.Set(value); err != nil {
				log.Warning("Ignoring $%s: %s", EnvOSCOREStoreType, err)
			} else {
				log.Debug("Set store type to '%s'", c.StoreType)
			}
		}
	}
	if c.StorePath == "" {
		c.StorePath = os.Getenv(EnvOSCOREStorePath)
		log.Debug("Set store path to '%s'", c.StorePath)
	}
	readUint64Env(EnvOSCOREStoreInterval, &c.Policy.StoreInterval)
	readUint64Env(EnvOSCOREWriteFailureMargin, &c.Policy.WriteFailureMargin)

	if c.BackendType.String() == string(keyring.InvalidBackend) {
		if err := c.BackendType.Set(os.Getenv(EnvOSCOREKeyringType)); err == nil {
			log.Debug("Set keyring type to '%s'", c.BackendType)
		}
	}
	if c.password == nil {
		password := os.Getenv(EnvOSCOREKeyringPass)
		c.password = &password
		if len(password) > 0 {
			log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
		}
	}
	if c.Backend.FileDir == "" {
		c.Backend.FileDir = os.Getenv(EnvOSCOREKeyringPath)
		log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
	}
	if !c.Debug {
		_, c.Debug = os.LookupEnv(EnvOSCOREKeyringDebug)
		log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
	}
}

// fileConfig maps config.toml keys to Config fields.
type fileConfig struct {
	StoreType          string `toml:"store_type"`
	StorePath          string `toml:"store_path"`
	StoreInterval      uint64 `toml:"store_interval"`
	WriteFailureMargin uint64 `toml:"write_failure_margin"`
	KeyringType        string `toml:"keyring_type"`
	KeyringDir         string `toml:"keyring_dir"`
}

// LoadFile populates c from a TOML file. Only keys present in the file are considered, and values
// that are already populated are not overwritten. An empty filename is ignored.
func (c *Config) LoadFile(filename string) error {
	if filename == "" {
		return nil
	}
	var raw fileConfig
	meta, err := toml.DecodeFile(filename, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.Warning("Ignoring unknown keys in %s: %v", filename, undecoded)
	}

	if meta.IsDefined("store_type") && c.StoreType == "" {
		if err := c.StoreType.Set(strings.TrimSpace(raw.StoreType)); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if meta.IsDefined("store_path") && c.StorePath == "" {
		c.StorePath = strings.TrimSpace(raw.StorePath)
	}
	if meta.IsDefined("store_interval") && c.Policy.StoreInterval == 0 {
		c.Policy.StoreInterval = raw.StoreInterval
	}
	if meta.IsDefined("write_failure_margin") && c.Policy.WriteFailureMargin == 0 {
		c.Policy.WriteFailureMargin = raw.WriteFailureMargin
	}
	if meta.IsDefined("keyring_type") && c.BackendType.String() == string(keyring.InvalidBackend) {
		if err := c.BackendType.Set(strings.TrimSpace(raw.KeyringType)); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if meta.IsDefined("keyring_dir") && c.Backend.FileDir == "" {
		c.Backend.FileDir = strings.TrimSpace(raw.KeyringDir)
	}
	log.Debug("Loaded config from %s", filename)
	return nil
}

// EffectivePolicy returns c.Policy with unset fields taken from ssn.DefaultPolicy.
func (c *Config) EffectivePolicy() ssn.Policy {
	policy := c.Policy
	if policy.StoreInterval == 0 {
		policy.StoreInterval = ssn.DefaultPolicy.StoreInterval
	}
	if policy.WriteFailureMargin == 0 {
		policy.WriteFailureMargin = ssn.DefaultPolicy.WriteFailureMargin
	}
	return policy
}

// OpenStore returns the configured store. The store is cached after it is first opened, and
// subsequent calls return the same store. Call [Config.Close] to release it.
func (c *Config) OpenStore() (ssn.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	var err error
	switch c.StoreType {
	case "":
		return nil, ErrNoStoreType
	case StoreNone:
		c.store = ssn.UnimplementedStore{}
	case StoreMemory:
		c.store = ssn.NewMemoryStore()
	case StoreFile:
		if c.StorePath == "" {
			return nil, ErrNoStorePath
		}
		c.store = ssn.NewFileStore(c.StorePath)
	case StoreLevelDB:
		if c.StorePath == "" {
			return nil, ErrNoStorePath
		}
		var db *ssn.LevelDBStore
		if db, err = ssn.OpenLevelDBStore(c.StorePath); err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db)
		c.store = db
	case StoreKeyring:
		var kr keyring.Keyring
		if kr, err = c.openKeyring(); err != nil {
			return nil, err
		}
		c.store = ssn.NewKeyringStore(kr)
	default:
		return nil, fmt.Errorf("unknown store type '%s'", c.StoreType)
	}
	log.Debug("Opened %s store", c.StoreType)
	return c.store, nil
}

// Manager opens the configured store and returns a Manager using the effective policy.
func (c *Config) Manager() (*ssn.Manager, error) {
	store, err := c.OpenStore()
	if err != nil {
		return nil, err
	}
	return ssn.NewManager(store, c.EffectivePolicy())
}

// Close releases any store opened by c.
func (c *Config) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	c.closers = nil
	c.store = nil
	return errors.Join(errs...)
}
