package config

import (
	"errors"
	"fmt"

	"github.com/setanarut/shapefill"
	"github.com/spf13/viper"
)

type Config struct {
	Log          LogConfig          `mapstructure:"log"`
	Input        InputConfig        `mapstructure:"input"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Inpaint      InpaintConfig      `mapstructure:"inpaint"`
	Output       OutputConfig       `mapstructure:"output"`
	Edges        []EdgeConfig       `mapstructure:"edges"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type InputConfig struct {
	Drawing   string `mapstructure:"drawing"`
	Scribbles string `mapstructure:"scribbles"`
	Block     string `mapstructure:"block"`
	// Zero width or height keeps the drawing size.
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	// ColorTolerance is the CIE76 distance under which two scribble colors
	// mean the same segment.
	ColorTolerance float64 `mapstructure:"color_tolerance"`
}

type SegmentationConfig struct {
	K           int32   `mapstructure:"k"`
	SoftDivisor int32   `mapstructure:"soft_divisor"`
	Exponent    float64 `mapstructure:"exponent"`
	FrameRadius int     `mapstructure:"frame_radius"`
}

type InpaintConfig struct {
	Scale            int     `mapstructure:"scale"`
	WhiteThreshold   float32 `mapstructure:"white_threshold"`
	MergeDepthGap    int     `mapstructure:"merge_depth_gap"`
	AnnealIterations int     `mapstructure:"anneal_iterations"`
	MaxIterations    int     `mapstructure:"max_iterations"`
	Epsilon          float32 `mapstructure:"epsilon"`
	Preprocess       bool    `mapstructure:"preprocess"`
}

type OutputConfig struct {
	Dir           string `mapstructure:"dir"`
	PaletteMethod string `mapstructure:"palette_method"`
	PaletteSize   int    `mapstructure:"palette_size"`
}

// EdgeConfig places segment To in front of segment From.
type EdgeConfig struct {
	From int    `mapstructure:"from"`
	To   int    `mapstructure:"to"`
	Type string `mapstructure:"type"`
}

// Load reads a YAML file on top of the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ErrNoDrawing is returned by Validate when no input drawing is configured.
var ErrNoDrawing = errors.New("config: input.drawing is not set")

// Validate reports settings the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Input.Drawing == "" {
		return ErrNoDrawing
	}
	_, err := c.OcclusionEdges()
	return err
}

// New loads config.yaml from the working directory or falls back to the
// defaults.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.mode", d.Log.Mode)

	v.SetDefault("input.width", d.Input.Width)
	v.SetDefault("input.height", d.Input.Height)
	v.SetDefault("input.color_tolerance", d.Input.ColorTolerance)

	v.SetDefault("segmentation.k", d.Segmentation.K)
	v.SetDefault("segmentation.soft_divisor", d.Segmentation.SoftDivisor)
	v.SetDefault("segmentation.exponent", d.Segmentation.Exponent)
	v.SetDefault("segmentation.frame_radius", d.Segmentation.FrameRadius)

	v.SetDefault("inpaint.scale", d.Inpaint.Scale)
	v.SetDefault("inpaint.white_threshold", d.Inpaint.WhiteThreshold)
	v.SetDefault("inpaint.merge_depth_gap", d.Inpaint.MergeDepthGap)
	v.SetDefault("inpaint.anneal_iterations", d.Inpaint.AnnealIterations)
	v.SetDefault("inpaint.max_iterations", d.Inpaint.MaxIterations)
	v.SetDefault("inpaint.epsilon", d.Inpaint.Epsilon)
	v.SetDefault("inpaint.preprocess", d.Inpaint.Preprocess)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.palette_method", d.Output.PaletteMethod)
	v.SetDefault("output.palette_size", d.Output.PaletteSize)
}

func Default() *Config {
	seg := shapefill.DefaultSegmentOptions()
	inp := shapefill.DefaultInpaintOptions()
	return &Config{
		Log: LogConfig{Mode: "debug"},
		Input: InputConfig{
			ColorTolerance: 0.05,
		},
		Segmentation: SegmentationConfig{
			K:           seg.K,
			SoftDivisor: seg.SoftDivisor,
			Exponent:    seg.Exponent,
			FrameRadius: shapefill.DefaultOptions().FrameRadius,
		},
		Inpaint: InpaintConfig{
			Scale:            inp.Scale,
			WhiteThreshold:   inp.WhiteThreshold,
			MergeDepthGap:    inp.MergeDepthGap,
			AnnealIterations: inp.AnnealIterations,
			MaxIterations:    inp.MaxIterations,
			Epsilon:          inp.Epsilon,
			Preprocess:       inp.Preprocess,
		},
		Output: OutputConfig{
			Dir:           "output",
			PaletteMethod: "dominantcolor",
			PaletteSize:   8,
		},
	}
}

// Options converts the config into pipeline options.
func (c *Config) Options() shapefill.Options {
	opt := shapefill.DefaultOptions()
	opt.Segment.K = c.Segmentation.K
	opt.Segment.SoftDivisor = c.Segmentation.SoftDivisor
	opt.Segment.Exponent = c.Segmentation.Exponent
	opt.FrameRadius = c.Segmentation.FrameRadius
	opt.Inpaint = shapefill.InpaintOptions{
		Scale:            c.Inpaint.Scale,
		WhiteThreshold:   c.Inpaint.WhiteThreshold,
		MergeDepthGap:    c.Inpaint.MergeDepthGap,
		AnnealIterations: c.Inpaint.AnnealIterations,
		MaxIterations:    c.Inpaint.MaxIterations,
		Epsilon:          c.Inpaint.Epsilon,
		Preprocess:       c.Inpaint.Preprocess,
	}
	return opt
}

// OcclusionEdges converts the configured edges. Unknown type names are an
// error.
func (c *Config) OcclusionEdges() ([]shapefill.Edge, error) {
	out := make([]shapefill.Edge, 0, len(c.Edges))
	for i, e := range c.Edges {
		var typ shapefill.EdgeType
		switch e.Type {
		case "", "default":
			typ = shapefill.EdgeDefault
		case "split":
			typ = shapefill.EdgeSplit
		case "merge":
			typ = shapefill.EdgeMerge
		default:
			return nil, fmt.Errorf("edge %d: unknown type %q", i, e.Type)
		}
		if e.From < 0 || e.From >= shapefill.MaxSegments || e.To < 0 || e.To >= shapefill.MaxSegments {
			return nil, fmt.Errorf("edge %d: %d -> %d: %w", i, e.From, e.To, shapefill.ErrInvalidLabel)
		}
		out = append(out, shapefill.Edge{From: shapefill.SegmentID(e.From), To: shapefill.SegmentID(e.To), Type: typ})
	}
	return out, nil
}
