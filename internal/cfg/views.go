package cfg

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/common/config"
)

// RuntimeConfig is the typed view of the [runtime] section.
type RuntimeConfig struct {
	Nodes          []string `mapstructure:"nodes"`
	Threads        []string `mapstructure:"threads"`
	RanksPerNode   []string `mapstructure:"ranks_per_node"`
	MaxRunningJobs string   `mapstructure:"max_running_jobs"`
	GPUs           string   `mapstructure:"gpus"`
	HostStr        string   `mapstructure:"host_str"`
}

// ConfigSection is the typed view of the [config] section.
type ConfigSection struct {
	Label      string `mapstructure:"label"`
	Dataset    string `mapstructure:"dataset"`
	Exe        string `mapstructure:"exe"`
	OutputFile string `mapstructure:"output_file"`
}

// RequirementsConfig is the typed view of the [requirements] section.
type RequirementsConfig struct {
	Code     string `mapstructure:"code"`
	Version  string `mapstructure:"version"`
	System   string `mapstructure:"system"`
	Compiler string `mapstructure:"compiler"`
	MPI      string `mapstructure:"mpi"`
}

// ResultConfig is the typed view of the [result] section.
type ResultConfig struct {
	Method string `mapstructure:"method"`
	Expr   string `mapstructure:"expr"`
	Script string `mapstructure:"script"`
	Unit   string `mapstructure:"unit"`
}

// MetadataConfig is the typed view of the [metadata] section.
type MetadataConfig struct {
	CfgFile       string `mapstructure:"cfg_file"`
	CfgLabel      string `mapstructure:"cfg_label"`
	Template      string `mapstructure:"template"`
	WorkingDir    string `mapstructure:"working_dir"`
	WorkingPath   string `mapstructure:"working_path"`
	JobScript     string `mapstructure:"job_script"`
	BenchmarkRepo string `mapstructure:"benchmark_repo"`
	BuildReport   string `mapstructure:"build_report"`
}

func (r *Record) RuntimeView() (RuntimeConfig, error) {
	var out RuntimeConfig
	return out, decodeSection(r.Runtime, &out)
}

func (r *Record) ConfigView() (ConfigSection, error) {
	var out ConfigSection
	return out, decodeSection(r.Config, &out)
}

func (r *Record) RequirementsView() (RequirementsConfig, error) {
	var out RequirementsConfig
	return out, decodeSection(r.Requirements, &out)
}

func (r *Record) ResultView() (ResultConfig, error) {
	var out ResultConfig
	return out, decodeSection(r.Result, &out)
}

func (r *Record) MetadataView() (MetadataConfig, error) {
	var out MetadataConfig
	return out, decodeSection(r.Metadata, &out)
}

// decodeSection decodes s into out. Keys without a matching field are ignored; they stay
// available through the section itself.
func decodeSection(s Section, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       config.ListDecodeHook(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(decoder.Decode(s.Map()))
}
