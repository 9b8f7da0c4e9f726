package config

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/ascii"
	"github.com/dselans/funnyimg/source"
	"github.com/dselans/funnyimg/validate"
)

const (
	EnvVarPrefix = "FUNNYIMG"

	DefaultConfigFile     = "funnyimg.toml"
	DefaultLogLevel       = "info"
	DefaultReportInterval = duration(1 * time.Second)
	DefaultMaxPixels      = validate.DefaultMaxPixels
	DefaultFileType       = string(source.FileTypeAuto)
	DefaultFormat         = FormatAuto
	DefaultCharTable      = ascii.DefaultTable

	MinReportInterval = duration(10 * time.Millisecond)
	MaxReportInterval = duration(1 * time.Hour)
	MinWidth          = 0
	MaxWidth          = 10_000
	MinMaxPixels      = 1
	MaxMaxPixels      = 1 << 32

	FormatAuto = "auto"
	FormatPNG  = "png"
	FormatBMP  = "bmp"
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	validFormats = map[string]struct{}{
		FormatAuto: {},
		FormatPNG:  {},
		FormatBMP:  {},
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML
}

type TOML struct {
	Config *TOMLConfig `toml:"config"`
	Source *TOMLSource `toml:"source"`
	Output *TOMLOutput `toml:"output"`
}

type TOMLConfig struct {
	LogLevel       string   `toml:"log_level"`
	ReportInterval duration `toml:"report_interval"`
	MaxPixels      int64    `toml:"max_pixels"`
}

type TOMLSource struct {
	File     string `toml:"file"`
	FileType string `toml:"file_type"`
	Format   string `toml:"format"`
}

type TOMLOutput struct {
	File      string `toml:"file"`
	CharTable string `toml:"char_table"`
	Width     int    `toml:"width"`
	Color     bool   `toml:"color"`
	Invert    bool   `toml:"invert"`
}

type CLI struct {
	Input string `kong:"arg,optional,help='Image to convert (PNG or BMP, optionally gzip/zstd compressed)',type='path'"`
	Table string `kong:"arg,optional,help='Character table, darkest first (default ABCDEFG)'"`

	ConfigFile     string        `kong:"help='Path to the TOML config file',default='funnyimg.toml',short='c'"`
	Output         string        `kong:"help='Write the ASCII art to this file instead of stdout',short='o'"`
	Width          int           `kong:"help='Scale the image to this many columns',short='w'"`
	Info           bool          `kong:"help='Print the image header and exit',short='i'"`
	ReportInterval time.Duration `kong:"help='Interval to report progress',short='r'"`
	ReportOutput   string        `kong:"help='Output file for progress reports',short='R'"`
	Color          bool          `kong:"help='Color characters with ANSI escapes'"`
	DisableColor   bool          `kong:"help='Disable color output',short='C'"`

	Debug   bool             `kong:"help='Enable debug output',short='d'"`
	Quiet   bool             `kong:"help='Disable showing pre/post output',short='q'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`

	// Internal bits
	Ctx *kong.Context `kong:"-"`
}

// NewConfig reads .env, the command line and the TOML config file.
func NewConfig() (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	return New(os.Args[1:])
}

// New builds the config from args, which exclude the program name.
func New(args []string) (*Config, error) {
	cli, err := readCLIArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	tomlConfig, err := readTOML(cli.ConfigFile, cli.ConfigFile == DefaultConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	applyCLI(cli, tomlConfig)

	if err := validateTOML(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error validating TOML config")
	}

	return &Config{
		CLI:  cli,
		TOML: tomlConfig,
	}, nil
}

// applyCLI lets command line args override the config file.
func applyCLI(cli *CLI, t *TOML) {
	if cli.Input != "" {
		t.Source.File = cli.Input
	}

	if cli.Table != "" {
		t.Output.CharTable = cli.Table
	}

	if cli.Output != "" {
		t.Output.File = cli.Output
	}

	if cli.Width != 0 {
		t.Output.Width = cli.Width
	}

	if cli.ReportInterval != 0 {
		t.Config.ReportInterval = duration(cli.ReportInterval)
	}

	if cli.Color {
		t.Output.Color = true
	}

	if cli.DisableColor {
		t.Output.Color = false
	}

	if cli.Debug {
		t.Config.LogLevel = logrus.DebugLevel.String()
	}
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Config == nil {
		t.Config = &TOMLConfig{}
	}

	if t.Source == nil {
		t.Source = &TOMLSource{}
	}

	if t.Output == nil {
		t.Output = &TOMLOutput{}
	}

	// Set defaults for [config]
	if t.Config.LogLevel == "" {
		t.Config.LogLevel = DefaultLogLevel
	}

	if t.Config.ReportInterval == 0 {
		t.Config.ReportInterval = DefaultReportInterval
	}

	if t.Config.MaxPixels == 0 {
		t.Config.MaxPixels = DefaultMaxPixels
	}

	// Set defaults for [source]
	if t.Source.FileType == "" {
		t.Source.FileType = DefaultFileType
	}

	if t.Source.Format == "" {
		t.Source.Format = DefaultFormat
	}

	// Set defaults for [output]
	if t.Output.CharTable == "" {
		t.Output.CharTable = DefaultCharTable
	}

	return nil
}

func Validate(c *Config) error {
	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if err := validateTOML(c.TOML); err != nil {
		return errors.Wrap(err, "error validating toml config")
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	// Validate [config]
	if err := validateTOMLConfig(t.Config); err != nil {
		return errors.Wrap(err, "config error(s)")
	}

	// Validate [source]
	if err := validateTOMLSource(t.Source); err != nil {
		return errors.Wrap(err, "error validating toml [source]")
	}

	// Validate [output]
	if err := validateTOMLOutput(t.Output); err != nil {
		return errors.Wrap(err, "output error(s)")
	}

	return nil
}

func validateTOMLConfig(c *TOMLConfig) error {
	if c == nil {
		return errors.New("config cannot be empty")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "config.log_level %s is invalid", c.LogLevel)
	}

	if c.ReportInterval < MinReportInterval || c.ReportInterval > MaxReportInterval {
		return errors.Errorf("config.report_interval must be between %s and %s", MinReportInterval, MaxReportInterval)
	}

	if c.MaxPixels < MinMaxPixels || c.MaxPixels > MaxMaxPixels {
		return errors.Errorf("config.max_pixels must be between %d and %d", MinMaxPixels, int64(MaxMaxPixels))
	}

	return nil
}

func validateTOMLSource(s *TOMLSource) error {
	if s == nil {
		return errors.New("source cannot be empty")
	}

	if s.File == "" {
		return errors.New("source.file cannot be empty")
	}

	// Check if .File exists
	info, err := os.Stat(s.File)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("source.file %s does not exist", s.File)
		}
		return errors.Wrapf(err, "unable to stat source.file %s", s.File)
	}

	if info.IsDir() {
		return errors.Errorf("source.file %s is a directory", s.File)
	}

	// Check if .FileType is valid
	if !validFileType(s.FileType) {
		return errors.Errorf("source.file_type %s is invalid", s.FileType)
	}

	// Check if .Format is valid
	if _, ok := validFormats[s.Format]; !ok {
		return errors.Errorf("source.format %s is invalid", s.Format)
	}

	return nil
}

func validFileType(ft string) bool {
	for _, v := range source.FileTypes {
		if string(v) == ft {
			return true
		}
	}
	return false
}

func validateTOMLOutput(o *TOMLOutput) error {
	if o == nil {
		return errors.New("output cannot be empty")
	}

	if o.CharTable == "" {
		return errors.New("output.char_table cannot be empty")
	}

	if o.Width < MinWidth || o.Width > MaxWidth {
		return errors.Errorf("output.width must be between %d and %d", MinWidth, MaxWidth)
	}

	return nil
}

func readCLIArgs(args []string) (*CLI, error) {
	cli := &CLI{}

	parser, err := kong.New(cli,
		kong.Name("funnyimg"),
		kong.Description("Turn PNG and BMP images into ASCII art"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create CLI parser")
	}

	cli.Ctx, err = parser.Parse(args)
	if err != nil {
		return nil, err
	}

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

// readTOML loads file. A missing file is only an error when it was asked for
// explicitly; otherwise every setting takes its default.
func readTOML(file string, optional bool) (*TOML, error) {
	tomlConfig := &TOML{}

	// Attempt to load file
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, tomlConfig); err != nil {
			return nil, errors.Wrap(err, "error parsing TOML config")
		}
	case os.IsNotExist(err) && optional:
	default:
		return nil, errors.Wrap(err, "error reading file")
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	return tomlConfig, nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if cli.Color && cli.DisableColor {
		return errors.New("--color and --disable-color are mutually exclusive")
	}

	if cli.Width < 0 {
		return errors.New("--width cannot be negative")
	}

	return nil
}

type duration time.Duration

func (d duration) String() string {
	return time.Duration(d).String()
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(dur)
	return nil
}
