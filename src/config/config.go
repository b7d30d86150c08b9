// Package config holds the command line options shared by the feebuckets
// binaries. Values come from built-in defaults, then an optional YAML file,
// then the command line.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/0xb10c/feebuckets/src/buckets"
	"github.com/0xb10c/feebuckets/src/features"
	"github.com/0xb10c/feebuckets/src/histogram"
)

const (
	DefaultRPCAddress       = "http://127.0.0.1:8332"
	DefaultZMQAddress       = "tcp://127.0.0.1:28332"
	DefaultDBPath           = "feebuckets.db"
	DefaultSnapshotInterval = time.Minute
	DefaultLogLevel         = "info"
	DefaultModelDir         = "models"
)

// DefaultCookiePath is the cookie file of a mainnet bitcoind with the
// default data directory.
var DefaultCookiePath = filepath.Join(btcutil.AppDataDir("bitcoin", false), ".cookie")

// Options are the settings of the daemon and the estimate tool.
type Options struct {
	ConfigFile       string        `short:"C" long:"config" description:"Path to a YAML configuration file" yaml:"-"`
	RPCAddress       string        `long:"rpc-address" description:"bitcoind RPC address, http://[user:pass@]host:port" yaml:"rpc_address"`
	CookiePath       string        `long:"cookie-path" description:"bitcoind cookie file, used if the RPC address has no password" yaml:"cookie_path"`
	ZMQAddress       string        `long:"zmq-address" description:"bitcoind ZMQ publisher address" yaml:"zmq_address"`
	DBPath           string        `long:"db" description:"Path to the snapshot database" yaml:"db"`
	WindowSize       int           `long:"window-size" description:"Number of recent blocks in the block histogram" yaml:"window_size"`
	IncrementPercent uint32        `long:"increment-percent" description:"Growth of each bucket boundary over the previous one, in percent" yaml:"increment_percent"`
	UpperLimit       float64       `long:"upper-limit" description:"Fee rate in sat/vbyte covered by the last bucket boundary" yaml:"upper_limit"`
	SnapshotInterval time.Duration `long:"snapshot-interval" description:"Interval of mempool snapshots and resyncs" yaml:"snapshot_interval"`
	LogLevel         string        `long:"log-level" description:"Logging level {trace, debug, info, warn, error}" yaml:"log_level"`
	LogDir           string        `long:"log-dir" description:"Directory for rotated log files, stdout only if empty" yaml:"log_dir"`
	BlockTarget      uint16        `long:"block-target" description:"Additional confirmation target in blocks (estimate only)" yaml:"block_target"`
	ModelDir         string        `long:"model-dir" description:"Directory containing mean-std.json (estimate only)" yaml:"model_dir"`
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		RPCAddress:       DefaultRPCAddress,
		CookiePath:       DefaultCookiePath,
		ZMQAddress:       DefaultZMQAddress,
		DBPath:           DefaultDBPath,
		WindowSize:       histogram.DefaultWindowSize,
		IncrementPercent: buckets.DefaultIncrementPercent,
		UpperLimit:       buckets.DefaultUpperLimit,
		SnapshotInterval: DefaultSnapshotInterval,
		LogLevel:         DefaultLogLevel,
		ModelDir:         DefaultModelDir,
	}
}

// LoadFile decodes the YAML file at path over opts. Keys missing from the
// file leave the current values untouched, unknown keys are an error.
func LoadFile(path string, opts *Options) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "could not open config file %s", path)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.SetStrict(true)
	if err := decoder.Decode(opts); err != nil {
		return errors.Wrapf(err, "could not decode config file %s", path)
	}
	return nil
}

// Parse builds the options from args (without the program name). A config
// file named with --config is applied before the remaining flags, so flags
// always take precedence. Asking for help returns a *flags.Error of type
// flags.ErrHelp carrying the usage text.
func Parse(args []string) (*Options, error) {
	var pre struct {
		ConfigFile string `short:"C" long:"config"`
	}
	if _, err := flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return nil, errors.WithStack(err)
	}

	opts := DefaultOptions()
	if pre.ConfigFile != "" {
		if err := LoadFile(pre.ConfigFile, &opts); err != nil {
			return nil, err
		}
	}

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return &opts, nil
}

// IsHelp reports whether err is the result of -h/--help.
func IsHelp(err error) bool {
	e, ok := errors.Cause(err).(*flags.Error)
	return ok && e.Type == flags.ErrHelp
}

// Boundaries builds the bucket boundaries configured by the options.
func (o *Options) Boundaries() (*buckets.Boundaries, error) {
	return buckets.BuildBoundaries(o.IncrementPercent, o.UpperLimit)
}

// Validate checks the options shared by all binaries.
func (o *Options) Validate() error {
	if o.WindowSize < 1 {
		return errors.Wrapf(histogram.ErrInvalidWindowSize, "window size %d", o.WindowSize)
	}
	if _, err := o.Boundaries(); err != nil {
		return err
	}
	u, err := url.Parse(o.RPCAddress)
	if err != nil {
		return errors.Wrapf(err, "invalid RPC address")
	}
	if u.Host == "" {
		return errors.Errorf("RPC address %q has no host", o.RPCAddress)
	}
	if _, ok := u.User.Password(); !ok && o.CookiePath == "" {
		return errors.New("RPC address has no password and no cookie path is set")
	}
	if o.ZMQAddress == "" {
		return errors.New("ZMQ address must not be empty")
	}
	if o.SnapshotInterval <= 0 {
		return errors.Errorf("snapshot interval must be positive, got %s", o.SnapshotInterval)
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return errors.WithStack(err)
	}
	if o.BlockTarget != 0 {
		if err := features.ValidateBlockTarget(o.BlockTarget); err != nil {
			return err
		}
	}
	return nil
}
